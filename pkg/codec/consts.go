package codec

// Field types understood by the codec. Values are persisted inside packet definitions
// and must never be renumbered.
type FieldType uint8

const (
	FieldInt32 FieldType = iota + 1
	FieldInt64
	FieldUInt32
	FieldUInt64
	FieldDouble
	FieldBool
	FieldString
	FieldGUID
	FieldDateTime
	FieldTimeSpan
	FieldBoolArray
	FieldInt32Array
	FieldInt64Array
	FieldDoubleArray
	FieldStringArray

	fieldTypeMax = FieldStringArray
)

const (
	// First byte of a signed value: [continuation|sign|6 payload bits]
	contBit      byte = 0x80
	signBit      byte = 0x40
	firstPayload byte = 0x3F
	nextPayload  byte = 0x7F

	// String reference tags
	tagNull       uint64 = 0
	tagLiteral    uint64 = 1
	tagFirstIndex uint64 = 2

	// Compact double: signed varint of mantissa<<4 | scale
	doubleScaleBits        = 4
	doubleScaleMask  int64 = 1<<doubleScaleBits - 1
	doubleMaxScale         = 14
	doubleFullMarker int64 = 15
	doubleMaxExact         = 1 << 53

	// Numeric array layouts
	arrayPlain byte = 0
	arrayRuns  byte = 1

	// Zone offset written for the zero time.Time (outside any real offset)
	zeroTimeOffset int64 = 1 << 20

	// Upper bounds accepted while decoding (larger values are treated as corruption)
	maxStringLen = 1 << 24
	maxArrayLen  = 1 << 24
)

var fieldTypeNames = map[FieldType]string{
	FieldInt32:       "Int32",
	FieldInt64:       "Int64",
	FieldUInt32:      "UInt32",
	FieldUInt64:      "UInt64",
	FieldDouble:      "Double",
	FieldBool:        "Bool",
	FieldString:      "String",
	FieldGUID:        "Guid",
	FieldDateTime:    "DateTime",
	FieldTimeSpan:    "TimeSpan",
	FieldBoolArray:   "BoolArray",
	FieldInt32Array:  "Int32Array",
	FieldInt64Array:  "Int64Array",
	FieldDoubleArray: "DoubleArray",
	FieldStringArray: "StringArray",
}

func (typ FieldType) String() (name string) {
	name, ok := fieldTypeNames[typ]
	if !ok {
		name = "Unknown"
	}
	return
}

// Reports whether the type is one the codec can encode
func (typ FieldType) Valid() (valid bool) {
	valid = typ >= FieldInt32 && typ <= fieldTypeMax
	return
}
