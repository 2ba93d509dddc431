package codec

import (
	"errors"
	"fmt"
)

// Returned when the stream ends in the middle of a value
type TruncatedStreamError struct {
	Offset int64 // stream position where more bytes were required
	What   string
}

func (e *TruncatedStreamError) Error() string {
	return fmt.Sprintf("truncated stream at offset %d: unexpected end while reading %s", e.Offset, e.What)
}

// Returned when decoded bytes cannot be valid output of an encoder
type CorruptStreamError struct {
	Offset int64
	Reason string
}

func (e *CorruptStreamError) Error() string {
	return fmt.Sprintf("corrupt stream at offset %d: %s", e.Offset, e.Reason)
}

// Reports whether err ends decoding of the stream it came from.
// Nothing after such an error can be trusted.
func IsStreamFatal(err error) (fatal bool) {
	var truncated *TruncatedStreamError
	var corrupt *CorruptStreamError
	fatal = errors.As(err, &truncated) || errors.As(err, &corrupt)
	return
}
