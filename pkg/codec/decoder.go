package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"
)

// Decoder reads field values from a stream, mirroring the Encoder's tables
type Decoder struct {
	src      *bufio.Reader
	offset   int64
	list     []string
	lastTime int64

	capturing bool
	captured  []byte
}

// Creates new decoder reading from r
func NewDecoder(r io.Reader) (dec *Decoder) {
	src, ok := r.(*bufio.Reader)
	if !ok {
		src = bufio.NewReader(r)
	}
	dec = &Decoder{src: src}
	return
}

// Current stream position in bytes
func (dec *Decoder) Offset() int64 {
	return dec.offset
}

// Number of distinct strings known to the decoder
func (dec *Decoder) StringCount() int {
	return len(dec.list)
}

// Reports whether the stream ended cleanly (no bytes left at a value boundary)
func (dec *Decoder) AtEnd() (end bool, err error) {
	_, err = dec.src.Peek(1)
	if errors.Is(err, io.EOF) {
		end = true
		err = nil
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to read stream at offset %d: %w", dec.offset, err)
	}
	return
}

// Starts recording every byte consumed until EndCapture
func (dec *Decoder) BeginCapture() {
	dec.capturing = true
	dec.captured = nil
}

// Stops recording and returns the consumed bytes
func (dec *Decoder) EndCapture() (raw []byte) {
	raw = dec.captured
	dec.capturing = false
	dec.captured = nil
	return
}

func (dec *Decoder) readByte(what string) (b byte, err error) {
	b, err = dec.src.ReadByte()
	if err != nil {
		err = dec.readFailure(err, what)
		return
	}
	dec.offset++
	if dec.capturing {
		dec.captured = append(dec.captured, b)
	}
	return
}

func (dec *Decoder) readFull(n int, what string) (data []byte, err error) {
	data = make([]byte, n)
	read, err := io.ReadFull(dec.src, data)
	dec.offset += int64(read)
	if err != nil {
		data = nil
		err = dec.readFailure(err, what)
		return
	}
	if dec.capturing {
		dec.captured = append(dec.captured, data...)
	}
	return
}

// Maps end-of-stream conditions to truncation, passes through other I/O failures
func (dec *Decoder) readFailure(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &TruncatedStreamError{Offset: dec.offset, What: what}
	}
	return fmt.Errorf("failed to read %s at offset %d: %w", what, dec.offset, err)
}

func (dec *Decoder) corrupt(format string, vars ...any) error {
	return &CorruptStreamError{Offset: dec.offset, Reason: fmt.Sprintf(format, vars...)}
}

// Unix epoch based reference used to rebuild DateTime values
func (dec *Decoder) reference() time.Time {
	return time.Unix(0, dec.lastTime)
}
