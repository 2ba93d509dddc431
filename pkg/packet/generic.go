package packet

import (
	"fmt"

	"github.com/google/uuid"

	"packetlog/pkg/codec"
)

// Packet of a type without a registered factory. Keeps the stream definition and decoded
// values so writing it through a Writer reproduces the original bytes.
type GenericPacket struct {
	def *Definition
	bag *SerializedPacket
	Raw []byte // body bytes exactly as read (string references are relative to the source stream)
}

func (g *GenericPacket) Definition() *Definition {
	return g.def
}

func (g *GenericPacket) Values() *SerializedPacket {
	return g.bag
}

func (g *GenericPacket) WriteFields(def *Definition, bag *SerializedPacket) (err error) {
	if !def.Equal(g.def) {
		err = fmt.Errorf("generic packet %s written with foreign definition %s", g.def.Key(), def.Key())
		return
	}
	copyBag(bag, g.bag)
	return
}

func (g *GenericPacket) ReadFields(def *Definition, bag *SerializedPacket) (err error) {
	g.def = def
	g.bag = bag
	return
}

// Cached generic packets are identified by their GUID field named "ID", or the first GUID field.
// Without any GUID field the identity is derived from the body bytes.
func (g *GenericPacket) ID() (id uuid.UUID) {
	idx := g.def.FieldIndex("ID")
	if idx >= 0 && g.def.Fields[idx].Type == codec.FieldGUID {
		id, _ = g.bag.values[idx].(uuid.UUID)
		return
	}
	for i, field := range g.def.Fields {
		if field.Type == codec.FieldGUID {
			id, _ = g.bag.values[i].(uuid.UUID)
			return
		}
	}
	id = uuid.NewSHA1(uuid.NameSpaceOID, g.Raw)
	return
}

func copyBag(dst, src *SerializedPacket) {
	copy(dst.values, src.values)
	for i := range dst.subs {
		if i < len(src.subs) {
			copyBag(dst.subs[i], src.subs[i])
		}
	}
}
