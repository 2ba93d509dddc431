package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"packetlog/internal/global"
)

// Loads the agent configuration file. The format follows the extension (.json, .yaml/.yml, .toml).
func LoadConfig(path string) (cfg global.AgentConfig, err error) {
	configFile, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read config file: %w", err)
		return
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(configFile))
		decoder.KnownFields(true)
		err = decoder.Decode(&cfg)
	case ".toml":
		var meta toml.MetaData
		meta, err = toml.Decode(string(configFile), &cfg)
		if err == nil && len(meta.Undecoded()) > 0 {
			err = fmt.Errorf("unknown keys %v", meta.Undecoded())
		}
	default:
		decoder := json.NewDecoder(bytes.NewReader(configFile))
		decoder.DisallowUnknownFields()
		err = decoder.Decode(&cfg)
	}
	if err != nil {
		err = fmt.Errorf("invalid config syntax in '%s': %w", path, err)
		return
	}
	return
}

// Parses the file configuration into the runtime agent configuration
func NewAgentConf(cfg global.AgentConfig) (config Config, err error) {
	config.Product = cfg.Product
	config.Application = cfg.Application
	config.SessionName = cfg.SessionName

	config.LogLevel = cfg.Logging.Level
	config.LogFormat = cfg.Logging.Format
	config.LogFile = cfg.Logging.LogFile
	if config.LogFormat != "" && config.LogFormat != LogFormatText && config.LogFormat != LogFormatJSON {
		err = fmt.Errorf("unknown logging format '%s' (text or json)", config.LogFormat)
		return
	}

	// Messenger
	config.QueueLimit = cfg.Messenger.QueueLimit
	config.MaxBatchSize = cfg.Messenger.MaxBatchSize
	config.AutoFlushInterval, err = parseDuration(cfg.Messenger.AutoFlushInterval)
	if err != nil {
		err = fmt.Errorf("failed to parse auto flush interval: %w", err)
		return
	}

	// Session files
	config.File.Enabled = cfg.File.Enabled
	config.File.Folder = cfg.File.Folder
	config.File.MaxFileSize = int64(cfg.File.MaxFileSizeMB) << 20
	config.File.MaxFileDuration = time.Duration(cfg.File.MaxFileDurationMinutes) * time.Minute
	config.File.Compress = cfg.File.Compress
	config.File.EnablePruning = cfg.File.EnablePruning
	config.File.MaxAge = time.Duration(cfg.File.MaxAgeDays) * 24 * time.Hour
	config.File.MaxDiskUsage = int64(cfg.File.MaxDiskUsageMB) << 20
	config.File.PruneInterval, err = parseDuration(cfg.File.PruneInterval)
	if err != nil {
		err = fmt.Errorf("failed to parse prune interval: %w", err)
		return
	}

	// CSV
	config.CSV.Enabled = cfg.CSV.Enabled
	config.CSV.Folder = cfg.CSV.Folder
	config.CSV.MaxFileSize = int64(cfg.CSV.MaxFileSizeMB) << 20
	config.CSV.MaxFileDuration = time.Duration(cfg.CSV.MaxFileDurationMinutes) * time.Minute

	// Beats
	config.Beats.Enabled = cfg.Beats.Enabled
	config.Beats.Address = cfg.Beats.Address
	config.Beats.CompressionLevel = cfg.Beats.CompressionLevel
	config.Beats.Timeout, err = parseDuration(cfg.Beats.Timeout)
	if err != nil {
		err = fmt.Errorf("failed to parse beats timeout: %w", err)
		return
	}

	// Inputs
	config.InputFiles = cfg.Inputs.FilePaths
	config.StateFolder = cfg.Inputs.StateFolder

	// Metrics
	config.MetricListenAddress = cfg.Metrics.ListenAddress
	config.MetricInterval, err = parseDuration(cfg.Metrics.CollectionInterval)
	if err != nil {
		err = fmt.Errorf("failed to parse collection interval time: %w", err)
		return
	}
	config.MetricRetention, err = parseDuration(cfg.Metrics.MaximumRetention)
	if err != nil {
		err = fmt.Errorf("failed to parse metric max age time: %w", err)
		return
	}

	config.setDefaults()
	return
}

// Empty means unset
func parseDuration(raw string) (duration time.Duration, err error) {
	if raw == "" {
		return
	}
	duration, err = time.ParseDuration(raw)
	if err == nil && duration < 0 {
		err = fmt.Errorf("duration %s is negative", raw)
	}
	return
}

// Sets defaults for any missing/invalid values
func (cfg *Config) setDefaults() {
	if cfg.Product == "" {
		cfg.Product = global.DefaultProduct
	}
	if cfg.Application == "" {
		cfg.Application = global.DefaultApplication
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = LogFormatText
	}

	if cfg.AutoFlushInterval == 0 {
		cfg.AutoFlushInterval = global.DefaultAutoFlushInterval
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = global.DefaultMaxBatchSize
	}

	if cfg.File.Folder == "" {
		cfg.File.Folder = global.DefaultRepositoryFolder
	}
	if cfg.File.MaxFileSize == 0 {
		cfg.File.MaxFileSize = int64(global.DefaultMaxFileSizeMB) << 20
	}
	if cfg.File.MaxFileDuration == 0 {
		cfg.File.MaxFileDuration = time.Duration(global.DefaultMaxFileDurationMinutes) * time.Minute
	}
	if cfg.File.MaxAge == 0 {
		cfg.File.MaxAge = time.Duration(global.DefaultMaxAgeDays) * 24 * time.Hour
	}
	if cfg.File.MaxDiskUsage == 0 {
		cfg.File.MaxDiskUsage = int64(global.DefaultMaxDiskUsageMB) << 20
	}
	if cfg.File.PruneInterval == 0 {
		cfg.File.PruneInterval = global.DefaultPruneInterval
	}

	if cfg.CSV.Folder == "" {
		cfg.CSV.Folder = cfg.File.Folder
	}
	if cfg.CSV.MaxFileSize == 0 {
		cfg.CSV.MaxFileSize = cfg.File.MaxFileSize
	}
	if cfg.CSV.MaxFileDuration == 0 {
		cfg.CSV.MaxFileDuration = cfg.File.MaxFileDuration
	}

	if cfg.Beats.Timeout == 0 {
		cfg.Beats.Timeout = global.DefaultBeatsTimeout
	}

	if cfg.StateFolder == "" {
		cfg.StateFolder = filepath.Join(cfg.File.Folder, global.DefaultStateFolderName)
	}

	if cfg.MetricInterval == 0 {
		cfg.MetricInterval = global.DefaultMetricInterval
	}
	if cfg.MetricRetention == 0 {
		cfg.MetricRetention = global.DefaultMetricRetention
	}
}

// Checks that the configuration can produce at least one output
func (cfg Config) validate() (err error) {
	if !cfg.File.Enabled && !cfg.CSV.Enabled && !cfg.Beats.Enabled {
		err = fmt.Errorf("no output enabled (file, csv or beats)")
		return
	}
	if cfg.Beats.Enabled && cfg.Beats.Address == "" {
		err = fmt.Errorf("beats output enabled without an address")
		return
	}
	return
}
