package codec

import (
	"encoding/binary"
	"math"
)

var pow10 = [doubleMaxScale + 1]float64{1, 1e1, 1e2, 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9, 1e10, 1e11, 1e12, 1e13, 1e14}

// Finds the smallest decimal scale at which v is an exact integer mantissa.
// Only accepted when dividing back reproduces the identical bits.
func compactDouble(v float64) (packed int64, ok bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || (v == 0 && math.Signbit(v)) {
		return
	}
	bits := math.Float64bits(v)
	for scale := 0; scale <= doubleMaxScale; scale++ {
		scaled := v * pow10[scale]
		if math.Abs(scaled) >= doubleMaxExact {
			return
		}
		if scaled != math.Trunc(scaled) {
			continue
		}
		mantissa := int64(scaled)
		if math.Float64bits(float64(mantissa)/pow10[scale]) != bits {
			continue
		}
		packed = mantissa<<doubleScaleBits | int64(scale)
		ok = true
		return
	}
	return
}

// Writes v compactly when possible, else as the marker plus 8 raw bytes
func (enc *Encoder) WriteDouble(v float64) {
	packed, ok := compactDouble(v)
	if ok {
		enc.writeSigned(packed)
		return
	}
	enc.writeSigned(doubleFullMarker)
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], math.Float64bits(v))
	enc.writeBytes(raw[:])
}

func (dec *Decoder) ReadDouble() (v float64, err error) {
	packed, err := dec.readSigned(int64Bits, "double")
	if err != nil {
		return
	}

	scale := packed & doubleScaleMask
	if scale == doubleFullMarker {
		if packed != doubleFullMarker {
			err = dec.corrupt("full precision double marker carries mantissa %d", packed>>doubleScaleBits)
			return
		}
		var raw []byte
		raw, err = dec.readFull(8, "double")
		if err != nil {
			return
		}
		v = math.Float64frombits(binary.LittleEndian.Uint64(raw))
		return
	}

	mantissa := packed >> doubleScaleBits
	v = float64(mantissa) / pow10[scale]
	return
}
