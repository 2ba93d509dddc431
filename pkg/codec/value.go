package codec

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Writes v as a field of type typ.
// Go types: Int32 int32, Int64 int64, UInt32 uint32, UInt64 uint64, Double float64, Bool bool,
// String string or nil (null), Guid uuid.UUID, DateTime time.Time, TimeSpan time.Duration,
// arrays as slices of the element type.
func (enc *Encoder) WriteValue(typ FieldType, v any) (err error) {
	switch typ {
	case FieldInt32:
		val, ok := v.(int32)
		if !ok {
			err = mismatch(typ, v)
			return
		}
		enc.WriteInt32(val)
	case FieldInt64:
		val, ok := v.(int64)
		if !ok {
			err = mismatch(typ, v)
			return
		}
		enc.WriteInt64(val)
	case FieldUInt32:
		val, ok := v.(uint32)
		if !ok {
			err = mismatch(typ, v)
			return
		}
		enc.WriteUInt32(val)
	case FieldUInt64:
		val, ok := v.(uint64)
		if !ok {
			err = mismatch(typ, v)
			return
		}
		enc.WriteUInt64(val)
	case FieldDouble:
		val, ok := v.(float64)
		if !ok {
			err = mismatch(typ, v)
			return
		}
		enc.WriteDouble(val)
	case FieldBool:
		val, ok := v.(bool)
		if !ok {
			err = mismatch(typ, v)
			return
		}
		enc.WriteBool(val)
	case FieldString:
		switch val := v.(type) {
		case nil:
			enc.WriteNullableString(nil)
		case string:
			enc.WriteString(val)
		case *string:
			enc.WriteNullableString(val)
		default:
			err = mismatch(typ, v)
			return
		}
	case FieldGUID:
		val, ok := v.(uuid.UUID)
		if !ok {
			err = mismatch(typ, v)
			return
		}
		enc.WriteGUID(val)
	case FieldDateTime:
		val, ok := v.(time.Time)
		if !ok {
			err = mismatch(typ, v)
			return
		}
		enc.WriteDateTime(val)
	case FieldTimeSpan:
		val, ok := v.(time.Duration)
		if !ok {
			err = mismatch(typ, v)
			return
		}
		enc.WriteTimeSpan(val)
	case FieldBoolArray:
		val, ok := v.([]bool)
		if !ok && v != nil {
			err = mismatch(typ, v)
			return
		}
		enc.WriteBoolArray(val)
	case FieldInt32Array:
		val, ok := v.([]int32)
		if !ok && v != nil {
			err = mismatch(typ, v)
			return
		}
		enc.WriteInt32Array(val)
	case FieldInt64Array:
		val, ok := v.([]int64)
		if !ok && v != nil {
			err = mismatch(typ, v)
			return
		}
		enc.WriteInt64Array(val)
	case FieldDoubleArray:
		val, ok := v.([]float64)
		if !ok && v != nil {
			err = mismatch(typ, v)
			return
		}
		enc.WriteDoubleArray(val)
	case FieldStringArray:
		val, ok := v.([]string)
		if !ok && v != nil {
			err = mismatch(typ, v)
			return
		}
		enc.WriteStringArray(val)
	default:
		err = fmt.Errorf("unsupported field type %d", typ)
	}
	return
}

// Reads a field of type typ, returning the Go type WriteValue accepts (nil for a null string)
func (dec *Decoder) ReadValue(typ FieldType) (v any, err error) {
	switch typ {
	case FieldInt32:
		v, err = dec.ReadInt32()
	case FieldInt64:
		v, err = dec.ReadInt64()
	case FieldUInt32:
		v, err = dec.ReadUInt32()
	case FieldUInt64:
		v, err = dec.ReadUInt64()
	case FieldDouble:
		v, err = dec.ReadDouble()
	case FieldBool:
		v, err = dec.ReadBool()
	case FieldString:
		var s *string
		s, err = dec.ReadNullableString()
		if err == nil && s != nil {
			v = *s
		}
	case FieldGUID:
		v, err = dec.ReadGUID()
	case FieldDateTime:
		v, err = dec.ReadDateTime()
	case FieldTimeSpan:
		v, err = dec.ReadTimeSpan()
	case FieldBoolArray:
		v, err = dec.ReadBoolArray()
	case FieldInt32Array:
		v, err = dec.ReadInt32Array()
	case FieldInt64Array:
		v, err = dec.ReadInt64Array()
	case FieldDoubleArray:
		v, err = dec.ReadDoubleArray()
	case FieldStringArray:
		v, err = dec.ReadStringArray()
	default:
		err = dec.corrupt("unsupported field type %d", typ)
	}
	if err != nil {
		v = nil
	}
	return
}

// Zero value WriteValue accepts for typ
func ZeroValue(typ FieldType) (v any) {
	switch typ {
	case FieldInt32:
		v = int32(0)
	case FieldInt64:
		v = int64(0)
	case FieldUInt32:
		v = uint32(0)
	case FieldUInt64:
		v = uint64(0)
	case FieldDouble:
		v = float64(0)
	case FieldBool:
		v = false
	case FieldGUID:
		v = uuid.Nil
	case FieldDateTime:
		v = time.Time{}
	case FieldTimeSpan:
		v = time.Duration(0)
	}
	return
}

func mismatch(typ FieldType, v any) error {
	return fmt.Errorf("value of type %T cannot be written as %s field", v, typ)
}
