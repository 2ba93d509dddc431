package messenger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"packetlog/internal/queue/mpsc"
	"packetlog/pkg/packet"
)

var (
	ErrClosed     = errors.New("messenger is closed")
	ErrNotStarted = errors.New("messenger has not been started")
)

// Delivery mode of a write
type WriteMode uint8

const (
	Queued        WriteMode = iota // return once enqueued, failures are only logged
	WaitForCommit                  // block until the packet and everything before it is flushed
)

func (mode WriteMode) String() string {
	switch mode {
	case Queued:
		return "Queued"
	case WaitForCommit:
		return "WaitForCommit"
	}
	return "Unknown"
}

type State int32

const (
	Created State = iota
	Initialized
	Running
	Maintenance
	Exiting
	Closed
)

func (state State) String() string {
	switch state {
	case Created:
		return "Created"
	case Initialized:
		return "Initialized"
	case Running:
		return "Running"
	case Maintenance:
		return "Maintenance"
	case Exiting:
		return "Exiting"
	case Closed:
		return "Closed"
	}
	return "Unknown"
}

// Control message carried through the queue, never persisted
type Command uint8

const (
	CommandFlush Command = iota + 1
	CommandCloseFile
	CommandShutdown
)

func (cmd Command) String() string {
	switch cmd {
	case CommandFlush:
		return "Flush"
	case CommandCloseFile:
		return "CloseFile"
	case CommandShutdown:
		return "Shutdown"
	}
	return "Unknown"
}

// Destination of a messenger. Only the dispatch goroutine calls these methods.
type Backend interface {
	// Prepares the destination (open the first file, dial, ...)
	Open(ctx context.Context) error
	// Appends one packet. Data may stay buffered until Flush.
	Write(ctx context.Context, pkt packet.Packet) error
	// Makes everything written so far durable
	Flush(ctx context.Context) error
	// Rollover: close the current output and start a new one
	Maintenance(ctx context.Context) error
	Close(ctx context.Context) error
}

// Optional backend interface used for size and duration maintenance thresholds
type Measured interface {
	Size() int64
	OpenedAt() time.Time
}

type Config struct {
	QueueLimit        int           // 0 derives the limit from host memory
	AutoFlushInterval time.Duration // 0 disables the timer
	MaxBatchSize      int
	MaxSize           int64         // bytes, 0 disables
	MaxDuration       time.Duration // 0 disables
}

// Queue element: a packet or a command
type entry struct {
	sequence uint64
	pkt      packet.Packet
	command  Command
	mode     WriteMode
	done     chan error // buffered, set for WaitForCommit writes and commands issued by callers
}

type Messenger struct {
	Namespace []string
	cfg       Config
	backend   Backend
	queue     *mpsc.Queue[*entry]

	enqueueMutex sync.Mutex
	sequence     uint64

	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
	exited chan struct{}

	// Owned by the dispatch goroutine
	epochErr error
	waiting  []*entry
	batch    []*entry
	dirty    atomic.Bool

	Metrics *MetricStorage
}

type MetricStorage struct {
	Enqueued     atomic.Uint64
	Written      atomic.Uint64
	WriteErrors  atomic.Uint64
	Flushes      atomic.Uint64
	FlushErrors  atomic.Uint64
	Commits      atomic.Uint64
	Maintenances atomic.Uint64
	Panics       atomic.Uint64
	WriteNanos   atomic.Uint64
	MaxBatch     atomic.Uint64
}
