package codec

import (
	"math"
)

// Significant magnitude bits per integer width (sign excluded for signed types)
const (
	int32Bits  = 31
	int64Bits  = 63
	uint32Bits = 32
	uint64Bits = 64
)

// Signed layout: first byte carries 6 magnitude bits and the sign, later bytes carry 7 bits each.
// Negative values store the complement so -1 costs the same as 0.
func (enc *Encoder) writeSigned(v int64) {
	var sign byte
	mag := uint64(v)
	if v < 0 {
		sign = signBit
		mag = uint64(^v)
	}

	first := byte(mag&uint64(firstPayload)) | sign
	mag >>= 6
	if mag == 0 {
		enc.writeByte(first)
		return
	}
	enc.writeByte(first | contBit)
	for mag > uint64(nextPayload) {
		enc.writeByte(byte(mag&uint64(nextPayload)) | contBit)
		mag >>= 7
	}
	enc.writeByte(byte(mag))
}

// Unsigned layout: plain little-endian base-128 groups
func (enc *Encoder) writeUnsigned(v uint64) {
	for v > uint64(nextPayload) {
		enc.writeByte(byte(v&uint64(nextPayload)) | contBit)
		v >>= 7
	}
	enc.writeByte(byte(v))
}

func (enc *Encoder) WriteInt32(v int32) {
	enc.writeSigned(int64(v))
}

func (enc *Encoder) WriteInt64(v int64) {
	enc.writeSigned(v)
}

func (enc *Encoder) WriteUInt32(v uint32) {
	enc.writeUnsigned(uint64(v))
}

func (enc *Encoder) WriteUInt64(v uint64) {
	enc.writeUnsigned(v)
}

// Writes a count or index (structural values outside typed fields)
func (enc *Encoder) WriteUvarint(v uint64) {
	enc.writeUnsigned(v)
}

// Number of bytes the signed layout needs for v
func SignedSize(v int64) (size int) {
	mag := uint64(v)
	if v < 0 {
		mag = uint64(^v)
	}
	size = 1
	mag >>= 6
	for mag > 0 {
		size++
		mag >>= 7
	}
	return
}

// Number of bytes the unsigned layout needs for v
func UnsignedSize(v uint64) (size int) {
	size = 1
	for v > uint64(nextPayload) {
		size++
		v >>= 7
	}
	return
}

func (dec *Decoder) readSigned(limitBits uint, what string) (v int64, err error) {
	b, err := dec.readByte(what)
	if err != nil {
		return
	}

	negative := b&signBit != 0
	mag := uint64(b & firstPayload)
	shift := uint(6)
	for b&contBit != 0 {
		b, err = dec.readByte(what)
		if err != nil {
			return
		}
		group := uint64(b & nextPayload)
		if shift >= limitBits || (limitBits-shift < 7 && group>>(limitBits-shift) != 0) {
			err = dec.corrupt("%s overflows %d bits", what, limitBits+1)
			return
		}
		mag |= group << shift
		shift += 7
	}

	if mag > math.MaxInt64 {
		err = dec.corrupt("%s overflows 64 bits", what)
		return
	}
	v = int64(mag)
	if negative {
		v = ^v
	}
	return
}

func (dec *Decoder) readUnsigned(limitBits uint, what string) (v uint64, err error) {
	var shift uint
	for {
		var b byte
		b, err = dec.readByte(what)
		if err != nil {
			return
		}
		group := uint64(b & nextPayload)
		if shift >= limitBits || (limitBits-shift < 7 && group>>(limitBits-shift) != 0) {
			err = dec.corrupt("%s overflows %d bits", what, limitBits)
			return
		}
		v |= group << shift
		if b&contBit == 0 {
			return
		}
		shift += 7
	}
}

func (dec *Decoder) ReadInt32() (v int32, err error) {
	n, err := dec.readSigned(int32Bits, "int32")
	if err != nil {
		return
	}
	v = int32(n)
	return
}

func (dec *Decoder) ReadInt64() (v int64, err error) {
	v, err = dec.readSigned(int64Bits, "int64")
	return
}

func (dec *Decoder) ReadUInt32() (v uint32, err error) {
	n, err := dec.readUnsigned(uint32Bits, "uint32")
	if err != nil {
		return
	}
	v = uint32(n)
	return
}

func (dec *Decoder) ReadUInt64() (v uint64, err error) {
	v, err = dec.readUnsigned(uint64Bits, "uint64")
	return
}

// Reads a count or index written by WriteUvarint
func (dec *Decoder) ReadUvarint() (v uint64, err error) {
	v, err = dec.readUnsigned(uint64Bits, "uvarint")
	return
}

// Reads a count and rejects values above limit
func (dec *Decoder) readCount(limit int, what string) (count int, err error) {
	n, err := dec.readUnsigned(uint64Bits, what)
	if err != nil {
		return
	}
	if n > uint64(limit) {
		err = dec.corrupt("%s %d exceeds limit %d", what, n, limit)
		return
	}
	count = int(n)
	return
}
