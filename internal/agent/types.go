package agent

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"packetlog/internal/externalio/beats"
	"packetlog/internal/externalio/file"
	"packetlog/internal/externalio/logfile"
	"packetlog/internal/messenger"
	"packetlog/internal/metrics"
	"packetlog/internal/queue/mpsc"
	"packetlog/pkg/packets"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Runtime agent configuration
type Config struct {
	Product     string
	Application string
	SessionName string

	LogLevel  int
	LogFormat string
	LogFile   string

	QueueLimit        int
	AutoFlushInterval time.Duration
	MaxBatchSize      int

	File  FileConfig
	CSV   CSVConfig
	Beats BeatsConfig

	InputFiles  []string
	StateFolder string

	MetricInterval      time.Duration
	MetricRetention     time.Duration
	MetricListenAddress string

	BeatsDialer beats.Dialer // nil dials the configured address
}

type FileConfig struct {
	Enabled         bool
	Folder          string
	MaxFileSize     int64
	MaxFileDuration time.Duration
	Compress        bool
	EnablePruning   bool
	MaxAge          time.Duration
	MaxDiskUsage    int64
	PruneInterval   time.Duration
}

type CSVConfig struct {
	Enabled         bool
	Folder          string
	MaxFileSize     int64
	MaxFileDuration time.Duration
}

type BeatsConfig struct {
	Enabled          bool
	Address          string
	Timeout          time.Duration
	CompressionLevel int
}

// A configured destination: the messenger and the backend it owns
type output struct {
	name      string
	messenger *messenger.Messenger
	backend   messenger.Backend
}

type metricCollector interface {
	CollectMetrics(interval time.Duration) []metrics.Metric
}

// Logging session fanning packets out to every configured output
type Agent struct {
	Namespace []string
	cfg       Config
	sessionID uuid.UUID
	startedAt time.Time

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup // background maintenance
	closeStarted atomic.Bool

	// Set by Close before it takes the mutex, checked by writers under the mutex
	closed atomic.Bool

	// Guards sequence assignment, the packet caches and fan-out order
	mutex       sync.Mutex
	sequence    int64
	threads     map[string]*packets.ThreadInfo
	definitions map[string]*packets.MetricDefinition
	instances   map[string]*packets.Metric

	outputs     []output
	sessionFile *file.OutModule // nil when the file output is disabled

	outbox      *mpsc.Queue[logfile.LogLine]
	inputs      []*logfile.InModule
	inputCtx    context.Context
	inputCancel context.CancelFunc
	inputWg     sync.WaitGroup
	ingestDone  chan struct{}
	gatherer    *Gatherer

	Registry     *metrics.Registry
	metricServer *http.Server

	Metrics MetricStorage
}

type MetricStorage struct {
	Logged        atomic.Uint64
	Samples       atomic.Uint64
	Rejected      atomic.Uint64 // writes after close or refused by every output
	IngestedLines atomic.Uint64
	PruneRuns     atomic.Uint64
	PrunedFiles   atomic.Uint64
}
