package messenger

import (
	"bytes"
	"context"
	"sync"
	"time"

	"packetlog/pkg/codec"
	"packetlog/pkg/packet"
)

var testDefinition = packet.NewDefinition("TestPacket", 1, false).
	AddField("Value", codec.FieldInt32).
	AddField("Text", codec.FieldString).
	AddSubPacket(packet.HeaderDefinition())

type testPacket struct {
	packet.Header
	Value    int32
	Text     string
	requires []packet.Packet
}

func (p *testPacket) Definition() *packet.Definition   { return testDefinition }
func (p *testPacket) RequiredPackets() []packet.Packet { return p.requires }

func (p *testPacket) WriteFields(def *packet.Definition, bag *packet.SerializedPacket) error {
	p.WriteHeader(bag)
	bag.SetInt32("Value", p.Value)
	bag.SetString("Text", p.Text)
	return nil
}

func (p *testPacket) ReadFields(def *packet.Definition, bag *packet.SerializedPacket) error {
	p.ReadHeader(bag)
	p.Value = bag.GetInt32("Value")
	p.Text = bag.GetString("Text")
	return nil
}

func testRegistry() (registry *packet.Registry) {
	registry = packet.NewRegistry()
	err := registry.Register(func() packet.Packet { return &testPacket{} })
	if err != nil {
		panic(err)
	}
	return
}

// Backend keeping every output file in memory
type memoryBackend struct {
	mu       sync.Mutex
	writer   *packet.Writer
	current  bytes.Buffer
	files    [][]byte
	opened   time.Time
	written  []int64 // sequences in write order
	durable  int     // written entries covered by a flush
	flushes  int
	rolls    int
	isOpen   bool
	isClosed bool

	writeErr error
	flushErr error

	writeGate   chan struct{} // when set each Write waits for a receive
	openGate    chan struct{} // when set Open signals openEntered, then waits for a receive
	openEntered chan struct{}
	rollHook    func()
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{}
}

func (b *memoryBackend) Open(ctx context.Context) error {
	if b.openGate != nil {
		close(b.openEntered)
		<-b.openGate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.writer = packet.NewWriter()
	b.opened = time.Now()
	b.isOpen = true
	return nil
}

func (b *memoryBackend) Write(ctx context.Context, pkt packet.Packet) error {
	if b.writeGate != nil {
		<-b.writeGate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return b.writeErr
	}
	err := b.writer.Write(pkt)
	if err != nil {
		return err
	}
	if seq, ok := pkt.(packet.Sequenced); ok {
		b.written = append(b.written, seq.PacketHeader().Sequence)
	}
	return nil
}

func (b *memoryBackend) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushes++
	if b.flushErr != nil {
		return b.flushErr
	}
	_, err := b.writer.Flush(&b.current)
	if err != nil {
		return err
	}
	b.durable = len(b.written)
	return nil
}

func (b *memoryBackend) Maintenance(ctx context.Context) error {
	if b.rollHook != nil {
		b.rollHook()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.files = append(b.files, bytes.Clone(b.current.Bytes()))
	b.current.Reset()
	b.writer = packet.NewWriter()
	b.opened = time.Now()
	b.rolls++
	return nil
}

func (b *memoryBackend) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files = append(b.files, bytes.Clone(b.current.Bytes()))
	b.current.Reset()
	b.isClosed = true
	return nil
}

func (b *memoryBackend) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(b.current.Len() + b.writer.Pending())
}

func (b *memoryBackend) OpenedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened
}

func (b *memoryBackend) snapshot() (written []int64, durable int, rolls int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int64(nil), b.written...), b.durable, b.rolls
}

func (b *memoryBackend) set(writeErr, flushErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeErr = writeErr
	b.flushErr = flushErr
}
