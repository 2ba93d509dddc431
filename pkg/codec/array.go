package codec

import (
	"math"
)

// Bit-packed, least significant bit first, final byte zero padded
func (enc *Encoder) WriteBoolArray(vals []bool) {
	enc.writeUnsigned(uint64(len(vals)))
	packed := make([]byte, (len(vals)+7)/8)
	for i, v := range vals {
		if v {
			packed[i/8] |= 1 << (i % 8)
		}
	}
	enc.writeBytes(packed)
}

func (enc *Encoder) WriteInt32Array(vals []int32) {
	writeNumericArray(enc, vals, func(a, b int32) bool { return a == b }, enc.WriteInt32)
}

func (enc *Encoder) WriteInt64Array(vals []int64) {
	writeNumericArray(enc, vals, func(a, b int64) bool { return a == b }, enc.WriteInt64)
}

// Doubles compare by bits so -0 and NaN payloads survive run folding
func (enc *Encoder) WriteDoubleArray(vals []float64) {
	writeNumericArray(enc, vals, func(a, b float64) bool { return math.Float64bits(a) == math.Float64bits(b) }, enc.WriteDouble)
}

func (enc *Encoder) WriteStringArray(vals []string) {
	enc.writeUnsigned(uint64(len(vals)))
	for _, v := range vals {
		enc.WriteString(v)
	}
}

// Count, then layout byte, then either each value or (run length, value) pairs.
// Runs are used when they take at most half as many entries as the values.
func writeNumericArray[T any](enc *Encoder, vals []T, equal func(a, b T) bool, write func(T)) {
	enc.writeUnsigned(uint64(len(vals)))
	if len(vals) == 0 {
		return
	}

	runs := 1
	for i := 1; i < len(vals); i++ {
		if !equal(vals[i], vals[i-1]) {
			runs++
		}
	}

	if runs*2 > len(vals) {
		enc.writeByte(arrayPlain)
		for _, v := range vals {
			write(v)
		}
		return
	}

	enc.writeByte(arrayRuns)
	start := 0
	for i := 1; i <= len(vals); i++ {
		if i < len(vals) && equal(vals[i], vals[start]) {
			continue
		}
		enc.writeUnsigned(uint64(i - start))
		write(vals[start])
		start = i
	}
}

func (dec *Decoder) ReadBoolArray() (vals []bool, err error) {
	count, err := dec.readCount(maxArrayLen, "bool array length")
	if err != nil {
		return
	}
	packed, err := dec.readFull((count+7)/8, "bool array")
	if err != nil {
		return
	}
	vals = make([]bool, count)
	for i := range vals {
		vals[i] = packed[i/8]&(1<<(i%8)) != 0
	}
	if count%8 != 0 && packed[len(packed)-1]>>(count%8) != 0 {
		vals = nil
		err = dec.corrupt("bool array padding bits are set")
	}
	return
}

func (dec *Decoder) ReadInt32Array() (vals []int32, err error) {
	vals, err = readNumericArray(dec, "int32 array", dec.ReadInt32)
	return
}

func (dec *Decoder) ReadInt64Array() (vals []int64, err error) {
	vals, err = readNumericArray(dec, "int64 array", dec.ReadInt64)
	return
}

func (dec *Decoder) ReadDoubleArray() (vals []float64, err error) {
	vals, err = readNumericArray(dec, "double array", dec.ReadDouble)
	return
}

func (dec *Decoder) ReadStringArray() (vals []string, err error) {
	count, err := dec.readCount(maxArrayLen, "string array length")
	if err != nil {
		return
	}
	vals = make([]string, 0, min(count, 1024))
	for range count {
		var s string
		s, err = dec.ReadString()
		if err != nil {
			vals = nil
			return
		}
		vals = append(vals, s)
	}
	return
}

func readNumericArray[T any](dec *Decoder, what string, read func() (T, error)) (vals []T, err error) {
	count, err := dec.readCount(maxArrayLen, what+" length")
	if err != nil {
		return
	}
	vals = make([]T, 0, min(count, 1024))
	if count == 0 {
		return
	}

	layout, err := dec.readByte(what + " layout")
	if err != nil {
		vals = nil
		return
	}

	switch layout {
	case arrayPlain:
		for range count {
			var v T
			v, err = read()
			if err != nil {
				vals = nil
				return
			}
			vals = append(vals, v)
		}
	case arrayRuns:
		for len(vals) < count {
			var runLen int
			runLen, err = dec.readCount(count-len(vals), what+" run length")
			if err != nil {
				vals = nil
				return
			}
			if runLen == 0 {
				vals = nil
				err = dec.corrupt("%s has an empty run", what)
				return
			}
			var v T
			v, err = read()
			if err != nil {
				vals = nil
				return
			}
			for range runLen {
				vals = append(vals, v)
			}
		}
	default:
		vals = nil
		err = dec.corrupt("%s has unknown layout %d", what, layout)
	}
	return
}
