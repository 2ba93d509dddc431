package file

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

var (
	headerEncMode cbor.EncMode
	headerDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}
	headerEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create session header encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
		MaxMapPairs: 64,
	}
	headerDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create session header decoder mode: %v", err))
	}
}

// Writes magic, header length and the CBOR header
func writeHeader(out io.Writer, header SessionHeader) (written int, err error) {
	encoded, err := headerEncMode.Marshal(header)
	if err != nil {
		err = fmt.Errorf("failed to encode session header: %w", err)
		return
	}

	prefix := binary.AppendUvarint([]byte(Magic), uint64(len(encoded)))
	written, err = out.Write(append(prefix, encoded...))
	if err != nil {
		err = fmt.Errorf("failed to write session header: %w", err)
	}
	return
}

func readHeader(in *bufio.Reader) (header SessionHeader, err error) {
	magic := make([]byte, len(Magic))
	_, err = io.ReadFull(in, magic)
	if err != nil {
		err = fmt.Errorf("failed to read file signature: %w", err)
		return
	}
	if string(magic) != Magic {
		err = fmt.Errorf("not a session file (signature %q)", magic)
		return
	}

	length, err := binary.ReadUvarint(in)
	if err != nil {
		err = fmt.Errorf("failed to read session header length: %w", err)
		return
	}
	if length == 0 || length > maxHeaderLength {
		err = fmt.Errorf("invalid session header length %d", length)
		return
	}

	encoded := make([]byte, length)
	_, err = io.ReadFull(in, encoded)
	if err != nil {
		err = fmt.Errorf("failed to read session header: %w", err)
		return
	}

	err = headerDecMode.Unmarshal(encoded, &header)
	if err != nil {
		err = fmt.Errorf("failed to decode session header: %w", err)
		return
	}
	if header.FormatVersion > FormatVersion {
		err = fmt.Errorf("session file format version %d is newer than supported version %d", header.FormatVersion, FormatVersion)
		return
	}
	if header.Compression != "" && header.Compression != CompressionZstd {
		err = fmt.Errorf("unsupported session compression %q", header.Compression)
		return
	}
	return
}

// Name of a session file: product_application_start_session_sequence.plog
func FileName(header SessionHeader, extension string) (name string) {
	name = fmt.Sprintf("%s_%s_%s_%s_%04d%s",
		SanitizeName(header.Product),
		SanitizeName(header.Application),
		header.StartTime.UTC().Format("20060102T150405"),
		header.SessionID.String()[:8],
		header.FileSequence,
		extension)
	return
}

// Makes part safe to use as one segment of a file name
func SanitizeName(part string) string {
	if part == "" {
		return "-"
	}
	return strings.Map(func(char rune) rune {
		if char == filepath.Separator || char == '_' || char == ' ' || char < 0x20 {
			return '-'
		}
		return char
	}, part)
}
