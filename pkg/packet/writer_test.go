package packet

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packetlog/pkg/codec"
)

func readAll(t *testing.T, data []byte, registry *Registry, policy UnknownPolicy) (pkts []Packet) {
	t.Helper()
	reader := NewReader(bytes.NewReader(data), registry, policy)
	for {
		pkt, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err)
		pkts = append(pkts, pkt)
	}
}

func flushed(t *testing.T, w *Writer) []byte {
	t.Helper()
	var out bytes.Buffer
	_, err := w.Flush(&out)
	require.NoError(t, err)
	return out.Bytes()
}

func TestInvalidUTF8DoesNotBreakStream(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.Write(&wrapperPacket{Header: Header{Sequence: 1}, Text: "caf\xe9 latin1 line"}))
	require.NoError(t, w.Write(&wrapperPacket{Header: Header{Sequence: 2}, Text: "ok"}))

	pkts := readAll(t, flushed(t, w), testRegistry(), UnknownIsFatal)
	require.Len(t, pkts, 2)
	assert.Equal(t, "caf� latin1 line", pkts[0].(*wrapperPacket).Text)
	assert.Equal(t, "ok", pkts[1].(*wrapperPacket).Text)
}

func TestWrapperPacketSize(t *testing.T) {
	original := &wrapperPacket{
		Header: Header{Sequence: 1, Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		Text:   "Test1",
		ID:     100,
	}

	w := NewWriter()
	require.NoError(t, w.Write(original))
	data := flushed(t, w)
	if len(data) != 108 {
		t.Fatalf("expected 108 bytes, got %d", len(data))
	}

	pkts := readAll(t, data, testRegistry(), UnknownIsFatal)
	require.Len(t, pkts, 1)
	got, ok := pkts[0].(*wrapperPacket)
	require.True(t, ok)
	assert.Equal(t, original.Text, got.Text)
	assert.Equal(t, original.ID, got.ID)
	assert.Nil(t, got.Description)
	assert.Equal(t, original.Sequence, got.Sequence)
	assert.True(t, original.Timestamp.Equal(got.Timestamp))
}

func TestDefinitionWrittenOnce(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.Write(&wrapperPacket{Text: "a", ID: 1}))
	first := w.Pending()
	require.NoError(t, w.Write(&wrapperPacket{Text: "b", ID: 2}))
	second := w.Pending() - first
	if second >= first/2 {
		t.Fatalf("expected second packet to skip its definition, got %d bytes after %d", second, first)
	}

	pkts := readAll(t, flushed(t, w), testRegistry(), UnknownIsFatal)
	require.Len(t, pkts, 2)
	assert.Equal(t, "b", pkts[1].(*wrapperPacket).Text)
}

func TestDependencyOrdering(t *testing.T) {
	root := newNode("root")
	left := newNode("left", root)
	right := newNode("right", root)
	leaf := newNode("leaf", left, right)

	events := []*eventPacket{
		{Node: leaf, Message: "one"},
		{Node: right, Message: "two"},
		{Node: leaf, Message: "three"},
		{Node: root, Message: "four"},
	}

	w := NewWriter()
	for _, e := range events {
		require.NoError(t, w.Write(e))
	}
	assert.True(t, w.Emitted(root.ID()))

	pkts := readAll(t, flushed(t, w), testRegistry(), UnknownIsFatal)
	require.Len(t, pkts, 4+len(events))

	position := make(map[string]int)
	var messages []string
	for i, pkt := range pkts {
		switch p := pkt.(type) {
		case *nodePacket:
			_, dup := position[p.name]
			require.False(t, dup, "node %s written twice", p.name)
			position[p.name] = i
		case *eventPacket:
			require.NotNil(t, p.Node)
			_, seen := position[p.Node.name]
			require.True(t, seen, "event %q decoded before its node", p.Message)
			messages = append(messages, p.Message)
		}
	}
	assert.Less(t, position["root"], position["left"])
	assert.Less(t, position["root"], position["right"])
	assert.Less(t, position["left"], position["leaf"])
	assert.Less(t, position["right"], position["leaf"])
	assert.Equal(t, []string{"one", "two", "three", "four"}, messages)
}

func TestDependencyCyclePanics(t *testing.T) {
	a := newNode("a")
	b := newNode("b", a)
	a.requires = []Packet{b}

	w := NewWriter()
	require.NoError(t, w.Write(&wrapperPacket{Text: "before"}))
	pending := w.Pending()

	func() {
		defer func() {
			recovered := recover()
			cycle, ok := recovered.(*DependencyCycleError)
			if !ok {
				t.Fatalf("expected *DependencyCycleError panic, got %v", recovered)
			}
			assert.Equal(t, []string{"Event", "Node", "Node", "Node"}, cycle.Path)
		}()
		_ = w.Write(&eventPacket{Node: a, Message: "never"})
	}()

	assert.Equal(t, pending, w.Pending())
	assert.False(t, w.Emitted(a.ID()))

	// Writer stays usable
	require.NoError(t, w.Write(&wrapperPacket{Text: "after"}))
	pkts := readAll(t, flushed(t, w), testRegistry(), UnknownIsFatal)
	require.Len(t, pkts, 2)
}

func TestSelfRequiringPacketPanics(t *testing.T) {
	self := newNode("self")
	self.requires = []Packet{self}

	assert.Panics(t, func() {
		_ = NewWriter().Write(self)
	})
}

func TestFailedWriteRollsBack(t *testing.T) {
	node := newNode("shared")

	w := NewWriter()
	require.NoError(t, w.Write(&wrapperPacket{Text: "first"}))
	pending := w.Pending()

	err := w.Write(&eventPacket{Node: node, Message: "bad", fail: true})
	require.Error(t, err)
	assert.Equal(t, pending, w.Pending())
	assert.False(t, w.Emitted(node.ID()), "node of the failed packet must be written again")

	require.NoError(t, w.Write(&eventPacket{Node: node, Message: "good"}))

	pkts := readAll(t, flushed(t, w), testRegistry(), UnknownIsFatal)
	require.Len(t, pkts, 3)
	assert.IsType(t, &nodePacket{}, pkts[1])
	assert.Equal(t, "good", pkts[2].(*eventPacket).Message)
}

func TestChangedDefinitionRejected(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.Write(&wrapperPacket{Text: "a"}))

	changed := *wrapperDefinition
	changed.Fields = changed.Fields[:1]
	err := w.Write(&GenericPacket{def: &changed, bag: NewSerializedPacket(&changed)})
	require.Error(t, err)
}

func TestCachedPacketWithoutID(t *testing.T) {
	def := NewDefinition("Broken", 1, true).AddField("Name", codec.FieldString)
	err := NewWriter().Write(&plainPacket{def: def})
	require.Error(t, err)
}

type plainPacket struct {
	def *Definition
}

func (p *plainPacket) Definition() *Definition                                  { return p.def }
func (p *plainPacket) WriteFields(def *Definition, bag *SerializedPacket) error { return nil }
func (p *plainPacket) ReadFields(def *Definition, bag *SerializedPacket) error  { return nil }
