package packet

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"packetlog/pkg/codec"
)

// Serializes packets into one stream. Not safe for concurrent use: a stream has a single writer.
type Writer struct {
	enc     *codec.Encoder
	defs    map[string]int // definition key -> stream index
	defList []*Definition
	emitted map[uuid.UUID]bool // cached packets already in the stream

	visiting map[any]bool
	path     []string
}

func NewWriter() (w *Writer) {
	w = &Writer{
		enc:      codec.NewEncoder(),
		defs:     make(map[string]int),
		emitted:  make(map[uuid.UUID]bool),
		visiting: make(map[any]bool),
	}
	return
}

// State recorded before a packet write so a failure leaves the stream untouched
type writeTxn struct {
	checkpoint codec.Checkpoint
	defCount   int
	emitted    []uuid.UUID
}

// Appends pkt, preceded by any required packets not yet in the stream.
// On error nothing of the attempt remains in the pending bytes or writer tables.
// A dependency cycle panics with *DependencyCycleError after the rollback.
func (w *Writer) Write(pkt Packet) (err error) {
	txn := &writeTxn{
		checkpoint: w.enc.Checkpoint(),
		defCount:   len(w.defList),
	}
	defer func() {
		fatal := recover()
		if fatal != nil || err != nil {
			w.rollback(txn)
		}
		clear(w.visiting)
		w.path = w.path[:0]
		if fatal != nil {
			panic(fatal)
		}
	}()

	err = w.writePacket(pkt, txn)
	return
}

// Reports whether the cached packet with id was already written to this stream
func (w *Writer) Emitted(id uuid.UUID) bool {
	return w.emitted[id]
}

// Bytes written but not yet flushed
func (w *Writer) Pending() int {
	return w.enc.Len()
}

// Moves pending bytes to out. Stream state (definitions, strings, cached packets) is kept.
func (w *Writer) Flush(out io.Writer) (written int, err error) {
	written, err = w.enc.Flush(out)
	return
}

func (w *Writer) rollback(txn *writeTxn) {
	w.enc.Rollback(txn.checkpoint)
	for _, def := range w.defList[txn.defCount:] {
		delete(w.defs, def.Key())
	}
	w.defList = w.defList[:txn.defCount]
	for _, id := range txn.emitted {
		delete(w.emitted, id)
	}
}

func (w *Writer) writePacket(pkt Packet, txn *writeTxn) (err error) {
	if pkt == nil {
		err = fmt.Errorf("cannot write nil packet")
		return
	}
	def := pkt.Definition()
	if def == nil {
		err = fmt.Errorf("packet %T has no definition", pkt)
		return
	}

	var id uuid.UUID
	var identity any = pkt
	if def.Cached {
		cacheable, ok := pkt.(Cacheable)
		if !ok {
			err = fmt.Errorf("cached packet %s does not implement ID()", def.TypeName)
			return
		}
		id = cacheable.ID()
		if w.emitted[id] {
			return
		}
		identity = id
	}

	w.path = append(w.path, def.TypeName)
	if w.visiting[identity] {
		panic(&DependencyCycleError{Path: append([]string(nil), w.path...)})
	}
	w.visiting[identity] = true
	defer func() {
		delete(w.visiting, identity)
		w.path = w.path[:len(w.path)-1]
	}()

	dependent, ok := pkt.(Dependent)
	if ok {
		for _, required := range dependent.RequiredPackets() {
			if required == nil {
				continue
			}
			err = w.writePacket(required, txn)
			if err != nil {
				err = fmt.Errorf("failed to write %s required by %s: %w", required.Definition().TypeName, def.TypeName, err)
				return
			}
		}
	}

	bag := NewSerializedPacket(def)
	err = pkt.WriteFields(def, bag)
	if err == nil {
		err = bag.Err()
	}
	if err != nil {
		err = fmt.Errorf("failed to collect fields of %s: %w", def.TypeName, err)
		return
	}

	err = w.writeTypeIndex(def)
	if err != nil {
		return
	}
	err = w.writeBody(def, bag)
	if err != nil {
		err = fmt.Errorf("failed to serialize %s: %w", def.TypeName, err)
		return
	}

	if def.Cached {
		w.emitted[id] = true
		txn.emitted = append(txn.emitted, id)
	}
	return
}

// Writes the stream index of def, introducing the definition on first use
func (w *Writer) writeTypeIndex(def *Definition) (err error) {
	idx, known := w.defs[def.Key()]
	if known {
		if w.defList[idx] != def && !w.defList[idx].Equal(def) {
			err = fmt.Errorf("definition %s changed within the stream", def.Key())
			return
		}
		w.enc.WriteUvarint(uint64(idx))
		return
	}

	err = def.Validate()
	if err != nil {
		err = fmt.Errorf("invalid definition: %w", err)
		return
	}
	idx = len(w.defList)
	w.defs[def.Key()] = idx
	w.defList = append(w.defList, def)

	w.enc.WriteUvarint(uint64(idx))
	w.writeDefinition(def)
	return
}

func (w *Writer) writeDefinition(def *Definition) {
	w.enc.WriteString(def.TypeName)
	w.enc.WriteUvarint(uint64(def.Version))
	w.enc.WriteBool(def.Cached)
	w.enc.WriteUvarint(uint64(len(def.Fields)))
	for _, field := range def.Fields {
		w.enc.WriteString(field.Name)
		w.enc.WriteUvarint(uint64(field.Type))
	}
	w.enc.WriteUvarint(uint64(len(def.SubPackets)))
	for _, sub := range def.SubPackets {
		w.writeDefinition(sub)
	}
}

func (w *Writer) writeBody(def *Definition, bag *SerializedPacket) (err error) {
	for i, field := range def.Fields {
		err = w.enc.WriteValue(field.Type, bag.values[i])
		if err != nil {
			err = fmt.Errorf("field %s: %w", field.Name, err)
			return
		}
	}
	for i, sub := range def.SubPackets {
		err = w.writeBody(sub, bag.subs[i])
		if err != nil {
			return
		}
	}
	return
}
