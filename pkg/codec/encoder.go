// Compact field-level binary codec for packet streams.
// Values are read back strictly in the order they were written.
package codec

import (
	"bytes"
	"io"
)

// Encoder serializes field values into a pending buffer.
// String table and DateTime reference are per stream, so one Encoder serves one stream only.
type Encoder struct {
	buf      bytes.Buffer
	table    map[string]uint64 // string -> insertion index
	list     []string          // insertion order, mirrors the reader table
	lastTime int64             // previous DateTime (unix nanoseconds)
}

// Saved encoder state for undoing a partially serialized packet
type Checkpoint struct {
	size     int
	strings  int
	lastTime int64
}

// Creates new encoder with empty string table
func NewEncoder() (enc *Encoder) {
	enc = &Encoder{
		table: make(map[string]uint64),
	}
	return
}

// Records current state
func (enc *Encoder) Checkpoint() (cp Checkpoint) {
	cp = Checkpoint{
		size:     enc.buf.Len(),
		strings:  len(enc.list),
		lastTime: enc.lastTime,
	}
	return
}

// Restores state recorded by Checkpoint. Strings interned since then are forgotten.
func (enc *Encoder) Rollback(cp Checkpoint) {
	enc.buf.Truncate(cp.size)
	for _, s := range enc.list[cp.strings:] {
		delete(enc.table, s)
	}
	enc.list = enc.list[:cp.strings]
	enc.lastTime = cp.lastTime
}

// Pending (not yet flushed) bytes
func (enc *Encoder) Bytes() []byte {
	return enc.buf.Bytes()
}

// Number of pending bytes
func (enc *Encoder) Len() int {
	return enc.buf.Len()
}

// Number of distinct strings interned so far
func (enc *Encoder) StringCount() int {
	return len(enc.list)
}

// Writes pending bytes to w and clears the buffer (tables are kept)
func (enc *Encoder) Flush(w io.Writer) (written int, err error) {
	data := enc.buf.Bytes()
	for len(data) > 0 {
		var n int
		n, err = w.Write(data)
		written += n
		if err != nil {
			// Keep what was not written so the caller can decide
			enc.buf.Next(written)
			return
		}
		data = data[n:]
	}
	enc.buf.Reset()
	return
}

func (enc *Encoder) writeByte(b byte) {
	enc.buf.WriteByte(b)
}

func (enc *Encoder) writeBytes(b []byte) {
	enc.buf.Write(b)
}
