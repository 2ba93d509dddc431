package packet

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"packetlog/pkg/codec"
)

var wrapperDefinition = NewDefinition("WrapperPacket", 1, false).
	AddField("Text", codec.FieldString).
	AddField("Id", codec.FieldInt32).
	AddField("Description", codec.FieldString).
	AddSubPacket(HeaderDefinition())

type wrapperPacket struct {
	Header
	Text        string
	ID          int32
	Description *string
}

func (p *wrapperPacket) Definition() *Definition { return wrapperDefinition }

func (p *wrapperPacket) WriteFields(def *Definition, bag *SerializedPacket) error {
	p.WriteHeader(bag)
	bag.SetString("Text", p.Text)
	bag.SetInt32("Id", p.ID)
	bag.SetNullableString("Description", p.Description)
	return nil
}

func (p *wrapperPacket) ReadFields(def *Definition, bag *SerializedPacket) error {
	p.ReadHeader(bag)
	p.Text = bag.GetString("Text")
	p.ID = bag.GetInt32("Id")
	p.Description = bag.GetNullableString("Description")
	return nil
}

var nodeDefinition = NewDefinition("Node", 1, true).
	AddField("ID", codec.FieldGUID).
	AddField("Name", codec.FieldString)

// Cached packet with arbitrary requirements
type nodePacket struct {
	id       uuid.UUID
	name     string
	requires []Packet
}

func newNode(name string, requires ...Packet) *nodePacket {
	return &nodePacket{id: uuid.New(), name: name, requires: requires}
}

func (n *nodePacket) Definition() *Definition   { return nodeDefinition }
func (n *nodePacket) ID() uuid.UUID             { return n.id }
func (n *nodePacket) RequiredPackets() []Packet { return n.requires }

func (n *nodePacket) WriteFields(def *Definition, bag *SerializedPacket) error {
	bag.SetGUID("ID", n.id)
	bag.SetString("Name", n.name)
	return nil
}

func (n *nodePacket) ReadFields(def *Definition, bag *SerializedPacket) error {
	n.id = bag.GetGUID("ID")
	n.name = bag.GetString("Name")
	return nil
}

var eventDefinition = NewDefinition("Event", 1, false).
	AddField("NodeID", codec.FieldGUID).
	AddField("Message", codec.FieldString).
	AddSubPacket(HeaderDefinition())

// Non-cached packet referencing a node
type eventPacket struct {
	Header
	Node    *nodePacket
	Message string
	nodeID  uuid.UUID
	fail    bool
}

func (e *eventPacket) Definition() *Definition { return eventDefinition }

func (e *eventPacket) RequiredPackets() []Packet {
	if e.Node == nil {
		return nil
	}
	return []Packet{e.Node}
}

func (e *eventPacket) WriteFields(def *Definition, bag *SerializedPacket) error {
	if e.fail {
		return errors.New("refusing to serialize")
	}
	e.WriteHeader(bag)
	bag.SetGUID("NodeID", e.Node.ID())
	bag.SetString("Message", e.Message)
	return nil
}

func (e *eventPacket) ReadFields(def *Definition, bag *SerializedPacket) error {
	e.ReadHeader(bag)
	e.nodeID = bag.GetGUID("NodeID")
	e.Message = bag.GetString("Message")
	return nil
}

func (e *eventPacket) ResolveReferences(lookup func(uuid.UUID) (Packet, bool)) error {
	pkt, ok := lookup(e.nodeID)
	if !ok {
		return fmt.Errorf("node %s not found", e.nodeID)
	}
	node, ok := pkt.(*nodePacket)
	if !ok {
		return fmt.Errorf("packet %s is not a node", e.nodeID)
	}
	e.Node = node
	return nil
}

// Same type name as eventPacket with an extra field
var eventV2Definition = NewDefinition("Event", 2, false).
	AddField("NodeID", codec.FieldGUID).
	AddField("Message", codec.FieldString).
	AddField("Level", codec.FieldInt32).
	AddSubPacket(HeaderDefinition())

type eventV2Packet struct {
	eventPacket
	Level int32
}

func (e *eventV2Packet) Definition() *Definition { return eventV2Definition }

func (e *eventV2Packet) WriteFields(def *Definition, bag *SerializedPacket) error {
	err := e.eventPacket.WriteFields(def, bag)
	bag.SetInt32("Level", e.Level)
	return err
}

func testRegistry() *Registry {
	registry := NewRegistry()
	registry.Register(func() Packet { return &wrapperPacket{} })
	registry.Register(func() Packet { return &nodePacket{} })
	registry.Register(func() Packet { return &eventPacket{} })
	return registry
}
