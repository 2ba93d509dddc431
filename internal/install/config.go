package install

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"packetlog/internal/global"
)

func installConfig(configPath string) (err error) {
	err = os.MkdirAll(filepath.Dir(configPath), 0755)
	if err != nil {
		err = fmt.Errorf("failed to create configuration directory: %w", err)
		return
	}

	// Don't overwrite existing
	_, err = os.Stat(configPath)
	if err == nil {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Printf("Existing configuration file present, not overwriting\n")
			return
		}
		if !confirm(os.Stdin, os.Stdout, fmt.Sprintf("Configuration file already exists at '%s'. Are you SURE you want to overwrite it?", configPath)) {
			fmt.Printf("Not overwriting configuration file\n")
			return
		}
	}

	err = CreateTemplateConfig(configPath)
	if err != nil {
		return
	}
	fmt.Printf("Successfully wrote template configuration file to '%s'\n", configPath)
	return
}

// Starting point configuration with every section filled in
func TemplateConfig() (cfg global.AgentConfig) {
	cfg.Product = global.DefaultProduct
	cfg.Application = global.DefaultApplication

	cfg.Logging.Level = global.VerbosityStandard
	cfg.Logging.Format = "text"

	cfg.Messenger.AutoFlushInterval = global.DefaultAutoFlushInterval.String()
	cfg.Messenger.MaxBatchSize = global.DefaultMaxBatchSize

	cfg.File.Enabled = true
	cfg.File.Folder = global.DefaultRepositoryFolder
	cfg.File.MaxFileSizeMB = global.DefaultMaxFileSizeMB
	cfg.File.MaxFileDurationMinutes = global.DefaultMaxFileDurationMinutes
	cfg.File.Compress = true
	cfg.File.EnablePruning = true
	cfg.File.MaxAgeDays = global.DefaultMaxAgeDays
	cfg.File.MaxDiskUsageMB = global.DefaultMaxDiskUsageMB
	cfg.File.PruneInterval = global.DefaultPruneInterval.String()

	cfg.Beats.Address = "localhost:5044"
	cfg.Beats.Timeout = global.DefaultBeatsTimeout.String()
	cfg.Beats.CompressionLevel = 3

	cfg.Inputs.FilePaths = []string{"/var/log/syslog", "/var/log/nginx/error.log"}

	cfg.Metrics.CollectionInterval = global.DefaultMetricInterval.String()
	cfg.Metrics.MaximumRetention = global.DefaultMetricRetention.String()
	cfg.Metrics.ListenAddress = "127.0.0.1:9464"
	return
}

// Writes the template configuration, encoded by the file extension (.json, .yaml/.yml, .toml)
func CreateTemplateConfig(path string) (err error) {
	if path == "" {
		err = fmt.Errorf("specify template file path via the --config/-c arguments")
		return
	}

	newCfg := TemplateConfig()

	var confBytes []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		confBytes, err = yaml.Marshal(newCfg)
	case ".toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(newCfg)
		confBytes = buf.Bytes()
	default:
		confBytes, err = json.MarshalIndent(newCfg, "", "  ")
		confBytes = append(confBytes, '\n')
	}
	if err != nil {
		err = fmt.Errorf("error marshaling new config: %w", err)
		return
	}

	err = os.WriteFile(path, confBytes, 0600)
	if err != nil {
		err = fmt.Errorf("failed to write config to file: %w", err)
		return
	}
	return
}
