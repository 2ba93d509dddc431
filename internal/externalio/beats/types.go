package beats

import (
	"sync/atomic"
	"time"
)

// Connection to a beats server, satisfied by the lumberjack v2 sync client
type Sender interface {
	Send(events []interface{}) (int, error)
	Close() error
}

type Dialer func(address string, timeout time.Duration, compressionLevel int) (Sender, error)

type Options struct {
	Address          string
	Timeout          time.Duration
	CompressionLevel int
	BatchSize        int // events buffered before they are sent without a flush
	Product          string
	Application      string
	Hostname         string
	SessionID        string
}

type OutModule struct {
	Namespace []string
	opts      Options
	dial      Dialer
	sink      Sender
	pending   []interface{}
	pid       int

	EventsSent     atomic.Uint64
	SendFailures   atomic.Uint64
	PacketsSkipped atomic.Uint64
}
