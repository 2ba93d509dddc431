package file

import (
	"bufio"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"packetlog/pkg/packet"
)

const (
	Magic             string = "PKTLOG01"
	FormatVersion     int    = 1
	CompressionZstd   string = "zstd"
	pendingFlushBytes int    = 64 << 10 // packet bytes buffered before they are handed to the file
	maxHeaderLength   uint64 = 64 << 10
)

// Metadata at the start of every session file
type SessionHeader struct {
	FormatVersion int       `cbor:"1,keyasint"`
	SessionID     uuid.UUID `cbor:"2,keyasint"`
	FileID        uuid.UUID `cbor:"3,keyasint"`
	FileSequence  int       `cbor:"4,keyasint"`
	Product       string    `cbor:"5,keyasint"`
	Application   string    `cbor:"6,keyasint"`
	SessionName   string    `cbor:"7,keyasint,omitempty"`
	Hostname      string    `cbor:"8,keyasint"`
	PID           int       `cbor:"9,keyasint"`
	StartTime     time.Time `cbor:"10,keyasint"`
	Compression   string    `cbor:"11,keyasint,omitempty"`
}

type Options struct {
	Folder      string
	Product     string
	Application string
	SessionName string
	SessionID   uuid.UUID // zero generates one
	Hostname    string
	PID         int
	Compress    bool
}

// Session file output. Methods other than Size, OpenedAt and CollectMetrics are called from a
// single goroutine (the messenger's dispatch).
type OutModule struct {
	Namespace []string
	opts      Options

	file       *os.File
	counter    *countingWriter
	compressor *zstd.Encoder
	sink       io.Writer // compressor or counter
	writer     *packet.Writer
	header     SessionHeader
	sequence   int

	path     atomic.Pointer[string]
	size     atomic.Int64
	openedAt atomic.Int64 // unix nanoseconds
	pending  atomic.Int64

	Metrics *MetricStorage
}

type MetricStorage struct {
	PacketsWritten atomic.Uint64
	BytesWritten   atomic.Uint64
	FilesOpened    atomic.Uint64
	Syncs          atomic.Uint64
}

// Sequential reader of one session file
type SessionReader struct {
	Path   string
	Header SessionHeader

	file         *os.File
	decompressor *zstd.Decoder
	packets      *packet.Reader
	err          error
}

type countingWriter struct {
	dst     *bufio.Writer
	written int64
}

func (counter *countingWriter) Write(p []byte) (n int, err error) {
	n, err = counter.dst.Write(p)
	counter.written += int64(n)
	return
}
