package packet

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"packetlog/pkg/codec"
)

// Positional field values of one packet, addressed by field name.
// Accessor failures are recorded once and reported by Err so packet code can set fields without
// checking each call.
type SerializedPacket struct {
	def    *Definition
	values []any
	subs   []*SerializedPacket
	err    *error // shared with sub packets
}

// Creates a bag holding zero values for every field of def
func NewSerializedPacket(def *Definition) (bag *SerializedPacket) {
	var shared error
	bag = newBag(def, &shared)
	return
}

func newBag(def *Definition, errp *error) (bag *SerializedPacket) {
	bag = &SerializedPacket{
		def:    def,
		values: make([]any, len(def.Fields)),
		subs:   make([]*SerializedPacket, len(def.SubPackets)),
		err:    errp,
	}
	for i, field := range def.Fields {
		bag.values[i] = codec.ZeroValue(field.Type)
	}
	for i, sub := range def.SubPackets {
		bag.subs[i] = newBag(sub, errp)
	}
	return
}

func (bag *SerializedPacket) Definition() *Definition {
	return bag.def
}

// First accessor failure on this bag or any of its sub packets
func (bag *SerializedPacket) Err() error {
	return *bag.err
}

func (bag *SerializedPacket) fail(err error) {
	if *bag.err == nil {
		*bag.err = err
	}
}

// Reports whether the definition has the named field
func (bag *SerializedPacket) Has(name string) bool {
	return bag.def.FieldIndex(name) >= 0
}

// Sub packet values by type name. A missing sub packet is recorded as a failure and an
// empty detached bag is returned.
func (bag *SerializedPacket) Sub(typeName string) (sub *SerializedPacket) {
	idx := bag.def.SubPacketIndex(typeName)
	if idx < 0 {
		bag.fail(fmt.Errorf("packet %s has no sub packet %s", bag.def.TypeName, typeName))
		sub = newBag(NewDefinition(typeName, 0, false), bag.err)
		return
	}
	sub = bag.subs[idx]
	return
}

// Sets a field value, v must be the Go type the codec uses for the field type
func (bag *SerializedPacket) Set(name string, v any) {
	idx := bag.def.FieldIndex(name)
	if idx < 0 {
		bag.fail(fmt.Errorf("packet %s has no field %s", bag.def.TypeName, name))
		return
	}
	bag.values[idx] = v
}

func (bag *SerializedPacket) Get(name string) (v any, ok bool) {
	idx := bag.def.FieldIndex(name)
	if idx < 0 {
		return
	}
	v = bag.values[idx]
	ok = true
	return
}

// Values in field order
func (bag *SerializedPacket) Values() []any {
	return bag.values
}

func (bag *SerializedPacket) SetInt32(name string, v int32)            { bag.Set(name, v) }
func (bag *SerializedPacket) SetInt64(name string, v int64)            { bag.Set(name, v) }
func (bag *SerializedPacket) SetUInt32(name string, v uint32)          { bag.Set(name, v) }
func (bag *SerializedPacket) SetUInt64(name string, v uint64)          { bag.Set(name, v) }
func (bag *SerializedPacket) SetDouble(name string, v float64)         { bag.Set(name, v) }
func (bag *SerializedPacket) SetBool(name string, v bool)              { bag.Set(name, v) }
func (bag *SerializedPacket) SetString(name string, v string)          { bag.Set(name, v) }
func (bag *SerializedPacket) SetGUID(name string, v uuid.UUID)         { bag.Set(name, v) }
func (bag *SerializedPacket) SetDateTime(name string, v time.Time)     { bag.Set(name, v) }
func (bag *SerializedPacket) SetTimeSpan(name string, v time.Duration) { bag.Set(name, v) }
func (bag *SerializedPacket) SetStringArray(name string, v []string)   { bag.Set(name, v) }
func (bag *SerializedPacket) SetDoubleArray(name string, v []float64)  { bag.Set(name, v) }

// Sets a string field that may be null
func (bag *SerializedPacket) SetNullableString(name string, v *string) {
	if v == nil {
		bag.Set(name, nil)
		return
	}
	bag.Set(name, *v)
}

func (bag *SerializedPacket) GetInt32(name string) int32        { return get[int32](bag, name) }
func (bag *SerializedPacket) GetInt64(name string) int64        { return get[int64](bag, name) }
func (bag *SerializedPacket) GetUInt32(name string) uint32      { return get[uint32](bag, name) }
func (bag *SerializedPacket) GetUInt64(name string) uint64      { return get[uint64](bag, name) }
func (bag *SerializedPacket) GetDouble(name string) float64     { return get[float64](bag, name) }
func (bag *SerializedPacket) GetBool(name string) bool          { return get[bool](bag, name) }
func (bag *SerializedPacket) GetGUID(name string) uuid.UUID     { return get[uuid.UUID](bag, name) }
func (bag *SerializedPacket) GetDateTime(name string) time.Time { return get[time.Time](bag, name) }
func (bag *SerializedPacket) GetTimeSpan(name string) time.Duration {
	return get[time.Duration](bag, name)
}
func (bag *SerializedPacket) GetStringArray(name string) []string  { return get[[]string](bag, name) }
func (bag *SerializedPacket) GetDoubleArray(name string) []float64 { return get[[]float64](bag, name) }

// Null strings read as empty
func (bag *SerializedPacket) GetString(name string) (s string) {
	ptr := bag.GetNullableString(name)
	if ptr != nil {
		s = *ptr
	}
	return
}

func (bag *SerializedPacket) GetNullableString(name string) (s *string) {
	v, ok := bag.Get(name)
	if !ok {
		bag.fail(fmt.Errorf("packet %s has no field %s", bag.def.TypeName, name))
		return
	}
	switch val := v.(type) {
	case nil:
	case string:
		s = &val
	default:
		bag.fail(fmt.Errorf("field %s.%s holds %T, not string", bag.def.TypeName, name, v))
	}
	return
}

func get[T any](bag *SerializedPacket, name string) (val T) {
	v, ok := bag.Get(name)
	if !ok {
		bag.fail(fmt.Errorf("packet %s has no field %s", bag.def.TypeName, name))
		return
	}
	if v == nil {
		return
	}
	val, ok = v.(T)
	if !ok {
		bag.fail(fmt.Errorf("field %s.%s holds %T, not %T", bag.def.TypeName, name, v, val))
	}
	return
}
