package global

import "time"

const (
	// Descriptive Names for available verbosity levels
	VerbosityNone int = iota
	VerbosityStandard
	VerbosityProgress
	VerbosityData
	VerbosityFullData
	VerbosityDebug

	// Descriptive names for available severity levels
	ErrorLog string = "Error"
	WarnLog  string = "Warn"
	InfoLog  string = "Info"
)

const (
	ProgVersion string = "v0.3.0"

	// Context keys
	LoggerKey  CtxKey = "logger"  // Event queue (mostly for variable log verbosity handling)
	LogTagsKey CtxKey = "logtags" // List of tags in order of broad->specific appended/popped at various parts of the program

	DefaultConfigPath       string = "/etc/packetlog.json"
	DefaultBinaryPath       string = "/usr/local/bin/packetlog"
	DefaultServiceUnitPath  string = "/etc/systemd/system/packetlog.service"
	DefaultRepositoryFolder string = "/var/lib/packetlog"
	DefaultProduct          string = "packetlog"
	DefaultApplication      string = "agent"

	// Messenger defaults
	DefaultMinQueueSize      int           = 512
	DefaultMaxQueueSize      int           = 1 << 20
	DefaultAutoFlushInterval time.Duration = 15 * time.Second
	DefaultMaxBatchSize      int           = 256

	// Session file defaults
	DefaultMaxFileSizeMB          int           = 20
	DefaultMaxFileDurationMinutes int           = 1440
	DefaultMaxAgeDays             int           = 90
	DefaultMaxDiskUsageMB         int           = 150
	DefaultPruneInterval          time.Duration = 1 * time.Hour
	DefaultStateFolderName        string        = "state"

	DefaultBeatsTimeout time.Duration = 30 * time.Second

	DefaultMetricInterval  time.Duration = 10 * time.Second
	DefaultMetricRetention time.Duration = 1 * time.Hour
	DefaultMetricPrefix    string        = "packetlog"

	// Metric aggregation types
	MetricSum        string = "sum"
	MetricMin        string = "min"
	MetricMax        string = "max"
	MetricAvg        string = "avg"
	MetricTrimmedAvg string = "tavg" // mean without the top and bottom 10%
	MetricP95        string = "p95"

	// Metric HTTP server
	DataPath         string        = "/data/"
	DiscoveryPath    string        = "/discover/"
	AggregationPath  string        = "/aggregation/"
	PrometheusPath   string        = "/metrics"
	HTTPReadTimeout  time.Duration = 10 * time.Second
	HTTPWriteTimeout time.Duration = 10 * time.Second
	HTTPIdleTimeout  time.Duration = 60 * time.Second

	// Timeout values
	MessengerShutdownTimeout time.Duration = 10 * time.Second
	AgentShutdownTimeout     time.Duration = 20 * time.Second

	// File naming
	SessionFileExt string = ".plog"
	CSVFileExt     string = ".csv"
	LockFileName   string = ".lock"

	// Namespacing Name Components
	NSMetric    string = "Metrics"
	NSTest      string = "Test"
	NSCLI       string = "CLI"
	NSAgent     string = "Agent"
	NSMessenger string = "Messenger"
	NSQueue     string = "Queue"
	NSWatcher   string = "Watcher"
	NSIngest    string = "Ingest"
	NSRepo      string = "Repository"
	NSReplay    string = "Replay"
	NSLifecycle string = "Lifecycle"
	NSoFile     string = "File"
	NSoCSV      string = "CSV"
	NSoBeats    string = "Beats"
	NSoStdIn    string = "Stdin"
)
