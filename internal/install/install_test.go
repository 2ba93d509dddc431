package install

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packetlog/internal/agent"
)

func TestCreateTemplateConfig(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
	}{
		{"json", "agent.json"},
		{"yaml", "agent.yaml"},
		{"toml", "agent.toml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.fileName)
			if err := CreateTemplateConfig(path); err != nil {
				t.Fatalf("failed to write template: %v", err)
			}

			// Template must load back and produce a valid agent configuration
			loaded, err := agent.LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, TemplateConfig(), loaded)

			cfg, err := agent.NewAgentConf(loaded)
			require.NoError(t, err)
			assert.True(t, cfg.File.Enabled)
			assert.True(t, cfg.File.EnablePruning)
		})
	}
}

func TestCreateTemplateConfig_NoPath(t *testing.T) {
	require.Error(t, CreateTemplateConfig(""))
}

func TestRenderUnit(t *testing.T) {
	unit, err := renderUnit("/opt/bin/packetlog", "/etc/pl/agent.yaml")
	require.NoError(t, err)

	assert.Contains(t, unit, "ExecStart=/opt/bin/packetlog run --config /etc/pl/agent.yaml\n")
	assert.Contains(t, unit, "Type=notify")
	assert.Contains(t, unit, "ExecReload=/bin/kill -HUP $MAINPID")
	assert.False(t, strings.Contains(unit, "$executableFilePath") || strings.Contains(unit, "$configFilePath"))
}
