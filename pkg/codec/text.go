package codec

import (
	"strings"
	"unicode/utf8"
)

// Written in place of each run of bytes that is not valid UTF-8
const replacementChar = "\uFFFD"

// Writes s, referencing the string table when s was written before in this stream.
// Invalid UTF-8 is replaced so readers never see a literal they must reject.
func (enc *Encoder) WriteString(s string) {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, replacementChar)
	}

	idx, seen := enc.table[s]
	if seen {
		enc.writeUnsigned(tagFirstIndex + idx)
		return
	}

	enc.writeUnsigned(tagLiteral)
	enc.writeUnsigned(uint64(len(s)))
	enc.buf.WriteString(s)
	if s == "" {
		// Empty literal is already minimal, not worth a table slot
		return
	}
	enc.table[s] = uint64(len(enc.list))
	enc.list = append(enc.list, s)
}

// Writes s, or the null marker when s is nil
func (enc *Encoder) WriteNullableString(s *string) {
	if s == nil {
		enc.writeUnsigned(tagNull)
		return
	}
	enc.WriteString(*s)
}

// Reads a string, null is returned as empty
func (dec *Decoder) ReadString() (s string, err error) {
	ptr, err := dec.ReadNullableString()
	if err != nil || ptr == nil {
		return
	}
	s = *ptr
	return
}

func (dec *Decoder) ReadNullableString() (s *string, err error) {
	tag, err := dec.readUnsigned(uint64Bits, "string tag")
	if err != nil {
		return
	}

	switch tag {
	case tagNull:
		return
	case tagLiteral:
		var length int
		length, err = dec.readCount(maxStringLen, "string length")
		if err != nil {
			return
		}
		var raw []byte
		raw, err = dec.readFull(length, "string")
		if err != nil {
			return
		}
		if !utf8.Valid(raw) {
			err = dec.corrupt("string literal is not valid UTF-8")
			return
		}
		text := string(raw)
		if text != "" {
			dec.list = append(dec.list, text)
		}
		s = &text
	default:
		idx := tag - tagFirstIndex
		if idx >= uint64(len(dec.list)) {
			err = dec.corrupt("string index %d outside table of %d entries", idx, len(dec.list))
			return
		}
		text := dec.list[idx]
		s = &text
	}
	return
}
