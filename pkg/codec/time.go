package codec

import (
	"time"

	"github.com/google/uuid"
)

// Writes t as a nanosecond delta from the previous DateTime of the stream plus its zone offset.
// The zero time is encoded out of band and does not move the reference.
func (enc *Encoder) WriteDateTime(t time.Time) {
	if t.IsZero() {
		enc.writeSigned(0)
		enc.writeSigned(zeroTimeOffset)
		return
	}
	ns := t.UnixNano()
	_, offset := t.Zone()
	enc.writeSigned(ns - enc.lastTime)
	enc.writeSigned(int64(offset))
	enc.lastTime = ns
}

func (enc *Encoder) WriteTimeSpan(d time.Duration) {
	enc.writeSigned(int64(d))
}

func (enc *Encoder) WriteGUID(id uuid.UUID) {
	enc.writeBytes(id[:])
}

func (enc *Encoder) WriteBool(v bool) {
	if v {
		enc.writeByte(1)
	} else {
		enc.writeByte(0)
	}
}

func (dec *Decoder) ReadDateTime() (t time.Time, err error) {
	delta, err := dec.readSigned(int64Bits, "datetime delta")
	if err != nil {
		return
	}
	offset, err := dec.readSigned(int64Bits, "datetime offset")
	if err != nil {
		return
	}

	if offset == zeroTimeOffset {
		if delta != 0 {
			err = dec.corrupt("zero datetime carries delta %d", delta)
		}
		return
	}
	if offset > zeroTimeOffset || offset < -zeroTimeOffset {
		err = dec.corrupt("datetime zone offset %d out of range", offset)
		return
	}

	dec.lastTime += delta
	t = dec.reference()
	if offset == 0 {
		t = t.UTC()
	} else {
		t = t.In(time.FixedZone("", int(offset)))
	}
	return
}

func (dec *Decoder) ReadTimeSpan() (d time.Duration, err error) {
	n, err := dec.readSigned(int64Bits, "timespan")
	if err != nil {
		return
	}
	d = time.Duration(n)
	return
}

func (dec *Decoder) ReadGUID() (id uuid.UUID, err error) {
	raw, err := dec.readFull(len(id), "guid")
	if err != nil {
		return
	}
	copy(id[:], raw)
	return
}

func (dec *Decoder) ReadBool() (v bool, err error) {
	b, err := dec.readByte("bool")
	if err != nil {
		return
	}
	switch b {
	case 0:
	case 1:
		v = true
	default:
		err = dec.corrupt("invalid bool byte 0x%02x", b)
	}
	return
}
