// Packet schema model plus the stream writer and reader built on the field codec
package packet

import (
	"fmt"
	"strconv"

	"packetlog/pkg/codec"
)

// Limits applied to definitions read from a stream
const (
	maxDefinitionFields = 1024
	maxDefinitionSubs   = 64
	maxDefinitionDepth  = 8
)

type FieldDefinition struct {
	Name string
	Type codec.FieldType
}

// Versioned, ordered schema of one packet type.
// Field order is the wire order and must not change for a given (TypeName, Version).
type Definition struct {
	TypeName   string
	Version    int
	Cached     bool // instances are written once per stream, identified by GUID
	Fields     []FieldDefinition
	SubPackets []*Definition // bodies follow the parent's fields, depth-first
}

// Starts a definition, fields and sub packets are added with the builder methods
func NewDefinition(typeName string, version int, cached bool) (def *Definition) {
	def = &Definition{
		TypeName: typeName,
		Version:  version,
		Cached:   cached,
	}
	return
}

func (def *Definition) AddField(name string, typ codec.FieldType) *Definition {
	def.Fields = append(def.Fields, FieldDefinition{Name: name, Type: typ})
	return def
}

func (def *Definition) AddSubPacket(sub *Definition) *Definition {
	def.SubPackets = append(def.SubPackets, sub)
	return def
}

// Identity of the definition within a stream
func (def *Definition) Key() string {
	return def.TypeName + "/v" + strconv.Itoa(def.Version)
}

// Position of the named field, -1 when absent
func (def *Definition) FieldIndex(name string) (index int) {
	index = -1
	if def == nil {
		return
	}
	for i, field := range def.Fields {
		if field.Name == name {
			index = i
			return
		}
	}
	return
}

// Position of the named sub packet, -1 when absent
func (def *Definition) SubPacketIndex(typeName string) (index int) {
	index = -1
	if def == nil {
		return
	}
	for i, sub := range def.SubPackets {
		if sub.TypeName == typeName {
			index = i
			return
		}
	}
	return
}

// Structural equality including nested definitions
func (def *Definition) Equal(other *Definition) bool {
	if def == other {
		return true
	}
	if def == nil || other == nil {
		return false
	}
	if def.TypeName != other.TypeName || def.Version != other.Version || def.Cached != other.Cached {
		return false
	}
	if len(def.Fields) != len(other.Fields) || len(def.SubPackets) != len(other.SubPackets) {
		return false
	}
	for i := range def.Fields {
		if def.Fields[i] != other.Fields[i] {
			return false
		}
	}
	for i := range def.SubPackets {
		if !def.SubPackets[i].Equal(other.SubPackets[i]) {
			return false
		}
	}
	return true
}

// Checks the definition can be written to a stream
func (def *Definition) Validate() (err error) {
	err = def.validate(0)
	return
}

func (def *Definition) validate(depth int) (err error) {
	if depth > maxDefinitionDepth {
		err = fmt.Errorf("sub packet nesting deeper than %d", maxDefinitionDepth)
		return
	}
	if def.TypeName == "" {
		err = fmt.Errorf("definition has no type name")
		return
	}
	if def.Version < 0 {
		err = fmt.Errorf("definition %s has negative version", def.TypeName)
		return
	}
	if len(def.Fields) > maxDefinitionFields || len(def.SubPackets) > maxDefinitionSubs {
		err = fmt.Errorf("definition %s is too large", def.TypeName)
		return
	}

	seen := make(map[string]bool, len(def.Fields))
	for _, field := range def.Fields {
		if !field.Type.Valid() {
			err = fmt.Errorf("field %s.%s has invalid type %d", def.TypeName, field.Name, field.Type)
			return
		}
		if seen[field.Name] {
			err = fmt.Errorf("field %s.%s declared twice", def.TypeName, field.Name)
			return
		}
		seen[field.Name] = true
	}
	for _, sub := range def.SubPackets {
		if sub == nil {
			err = fmt.Errorf("definition %s has a nil sub packet", def.TypeName)
			return
		}
		err = sub.validate(depth + 1)
		if err != nil {
			return
		}
	}
	return
}

func (def *Definition) String() string {
	return def.Key()
}
