package packet

import (
	"time"

	"github.com/google/uuid"

	"packetlog/pkg/codec"
)

// Contract every serializable packet type implements.
// Packets are handled by pointer; the writer uses pointer identity to detect dependency cycles.
type Packet interface {
	// Schema of the packet, normally a shared package level value
	Definition() *Definition
	// Stores the packet's values into bag (bag was built from def)
	WriteFields(def *Definition, bag *SerializedPacket) error
	// Loads the packet from bag. def is the definition found in the stream and may be older
	// than the one the packet currently writes.
	ReadFields(def *Definition, bag *SerializedPacket) error
}

// Packets whose definition is Cached identify themselves by GUID
type Cacheable interface {
	ID() uuid.UUID
}

// Packets that must be preceded in the stream by other packets
type Dependent interface {
	RequiredPackets() []Packet
}

// Packets that refer to cached packets by ID and rebuild those links after reading
type Resolver interface {
	ResolveReferences(lookup func(id uuid.UUID) (Packet, bool)) error
}

// Packets carrying the shared header, stamped at enqueue time
type Sequenced interface {
	Stamp(sequence int64, timestamp time.Time)
	PacketHeader() Header
	RestoreHeader(previous Header)
}

const HeaderTypeName = "PacketHeader"

var headerDefinition = NewDefinition(HeaderTypeName, 1, false).
	AddField("Sequence", codec.FieldInt64).
	AddField("Timestamp", codec.FieldDateTime)

// Sub packet definition holding the shared header fields
func HeaderDefinition() *Definition {
	return headerDefinition
}

// Fields shared by all concrete packets, embedded by value
type Header struct {
	Sequence  int64
	Timestamp time.Time
}

func (h *Header) Stamp(sequence int64, timestamp time.Time) {
	h.Sequence = sequence
	if h.Timestamp.IsZero() {
		h.Timestamp = timestamp
	}
}

func (h *Header) PacketHeader() Header {
	return *h
}

// Undoes a stamp for a packet that never reached a queue
func (h *Header) RestoreHeader(previous Header) {
	*h = previous
}

func (h *Header) WriteHeader(bag *SerializedPacket) {
	sub := bag.Sub(HeaderTypeName)
	sub.SetInt64("Sequence", h.Sequence)
	sub.SetDateTime("Timestamp", h.Timestamp)
}

func (h *Header) ReadHeader(bag *SerializedPacket) {
	sub := bag.Sub(HeaderTypeName)
	h.Sequence = sub.GetInt64("Sequence")
	h.Timestamp = sub.GetDateTime("Timestamp")
}
