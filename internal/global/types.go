package global

type CommandSet struct {
	CommandName     string                 // Exact name of cli command
	UsageOption     string                 // Expected command value in usage top line
	Description     string                 // Short text displayed on parent command
	FullDescription string                 // Long text displayed on current command
	ChildCommands   map[string]*CommandSet // Available subcommands
}

type CtxKey string

// Agent configuration file (JSON, YAML or TOML)

type AgentConfig struct {
	Product     string         `json:"product" yaml:"product" toml:"product"`
	Application string         `json:"application" yaml:"application" toml:"application"`
	SessionName string         `json:"sessionName" yaml:"sessionName" toml:"sessionName"`
	Logging     Logging        `json:"logging" yaml:"logging" toml:"logging"`
	Messenger   MessengerConf  `json:"messenger" yaml:"messenger" toml:"messenger"`
	File        FileOutputConf `json:"file" yaml:"file" toml:"file"`
	CSV         CSVOutputConf  `json:"csv" yaml:"csv" toml:"csv"`
	Beats       BeatsConf      `json:"beats" yaml:"beats" toml:"beats"`
	Metrics     MetricConf     `json:"metrics" yaml:"metrics" toml:"metrics"`
	Inputs      InputConf      `json:"inputs" yaml:"inputs" toml:"inputs"`
}

type InputConf struct {
	FilePaths   []string `json:"filePaths" yaml:"filePaths" toml:"filePaths"`       // text logs tailed into log messages
	StateFolder string   `json:"stateFolder" yaml:"stateFolder" toml:"stateFolder"` // read positions, default under the file output folder
}

type Logging struct {
	Level   int    `json:"level" yaml:"level" toml:"level"`
	Format  string `json:"format,omitempty" yaml:"format,omitempty" toml:"format,omitempty"` // text or json
	LogFile string `json:"logFile,omitempty" yaml:"logFile,omitempty" toml:"logFile,omitempty"`
}

type MessengerConf struct {
	QueueLimit        int    `json:"queueLimit" yaml:"queueLimit" toml:"queueLimit"` // 0 derives the limit from host memory
	AutoFlushInterval string `json:"autoFlushInterval" yaml:"autoFlushInterval" toml:"autoFlushInterval"`
	MaxBatchSize      int    `json:"maxBatchSize" yaml:"maxBatchSize" toml:"maxBatchSize"`
}

type FileOutputConf struct {
	Enabled                bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Folder                 string `json:"folder" yaml:"folder" toml:"folder"`
	MaxFileSizeMB          int    `json:"maxFileSizeMB" yaml:"maxFileSizeMB" toml:"maxFileSizeMB"`
	MaxFileDurationMinutes int    `json:"maxFileDurationMinutes" yaml:"maxFileDurationMinutes" toml:"maxFileDurationMinutes"`
	Compress               bool   `json:"compress" yaml:"compress" toml:"compress"`
	EnablePruning          bool   `json:"enablePruning" yaml:"enablePruning" toml:"enablePruning"`
	MaxAgeDays             int    `json:"maxAgeDays" yaml:"maxAgeDays" toml:"maxAgeDays"`
	MaxDiskUsageMB         int    `json:"maxDiskUsageMB" yaml:"maxDiskUsageMB" toml:"maxDiskUsageMB"`
	PruneInterval          string `json:"pruneInterval" yaml:"pruneInterval" toml:"pruneInterval"`
}

type CSVOutputConf struct {
	Enabled                bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Folder                 string `json:"folder" yaml:"folder" toml:"folder"`
	MaxFileSizeMB          int    `json:"maxFileSizeMB" yaml:"maxFileSizeMB" toml:"maxFileSizeMB"`
	MaxFileDurationMinutes int    `json:"maxFileDurationMinutes" yaml:"maxFileDurationMinutes" toml:"maxFileDurationMinutes"`
}

type BeatsConf struct {
	Enabled          bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Address          string `json:"address" yaml:"address" toml:"address"`
	Timeout          string `json:"timeout" yaml:"timeout" toml:"timeout"`
	CompressionLevel int    `json:"compressionLevel" yaml:"compressionLevel" toml:"compressionLevel"`
}

type MetricConf struct {
	CollectionInterval string `json:"collectionInterval" yaml:"collectionInterval" toml:"collectionInterval"`
	MaximumRetention   string `json:"maximumRetention" yaml:"maximumRetention" toml:"maximumRetention"`
	ListenAddress      string `json:"listenAddress" yaml:"listenAddress" toml:"listenAddress"` // empty disables the prometheus endpoint
}
