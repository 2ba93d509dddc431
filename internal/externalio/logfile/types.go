package logfile

import (
	"os"
	"sync/atomic"
	"time"

	"packetlog/internal/queue/mpsc"
)

// One parsed line of a text log
type LogLine struct {
	Timestamp   time.Time
	Hostname    string
	Application string
	PID         int
	Severity    string // lowercase name as found in the line, "info" when absent
	Facility    string // syslog facility of a "<PRI>" prefixed line
	Text        string
	Source      string // file path or "stdin"
}

type InModule struct {
	Namespace []string
	filePath  string
	stateFile string
	sink      *os.File
	outbox    *mpsc.Queue[LogLine]
	defaults  LogLine
	Metrics   MetricStorage
}

type MetricStorage struct {
	LinesRead  atomic.Uint64
	Success    atomic.Uint64 // lines handed to the outbox
	Rotations  atomic.Uint64
	ReadErrors atomic.Uint64
}
