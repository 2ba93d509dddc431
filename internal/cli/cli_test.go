package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packetlog/internal/externalio/file"
	"packetlog/internal/global"
	"packetlog/pkg/packet"
	"packetlog/pkg/packets"
)

// Writes a session file holding two log messages, a sample and the closing packet
func writeSession(t *testing.T, folder string) (path string) {
	t.Helper()
	ctx := context.Background()
	mod, err := file.NewOutput([]string{global.NSTest}, file.Options{
		Folder:      folder,
		Product:     "Shop",
		Application: "Checkout",
	})
	require.NoError(t, err)
	require.NoError(t, mod.Open(ctx))

	thread := packets.NewThreadInfo(1, "main")
	def := packets.NewMetricDefinition("Queue", "Depth", "items", packets.SampleGauge)
	metric := packets.NewMetric(def, "orders")
	pkts := []packet.Packet{
		packets.NewLogMessage(thread, packets.SeverityInformation, "Startup", "service ready"),
		packets.NewLogMessage(thread, packets.SeverityError, "Billing", "card declined"),
		packets.NewMetricSample(metric, 7),
		&packets.SessionClose{Status: packets.SessionNormal, Reason: "closed", PacketCount: 3},
	}
	for i, pkt := range pkts {
		pkt.(packet.Sequenced).Stamp(int64(i+1), time.Date(2025, 3, 1, 10, 0, i, 0, time.UTC))
		require.NoError(t, mod.Write(ctx, pkt))
	}
	path = mod.CurrentPath()
	require.NoError(t, mod.Close(ctx))
	return
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		width    int
		expected []string
	}{
		{"fits", "short text", 20, []string{"short text"}},
		{"wraps", "one two three four", 9, []string{"one two", "three", "four"}},
		{"long word kept", "abcdefghijkl x", 5, []string{"abcdefghijkl", "x"}},
		{"empty", "", 10, []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, tt.width)
			if !assert.Equal(t, tt.expected, got) {
				t.Fatalf("wrapText(%q, %d) = %q", tt.text, tt.width, got)
			}
		})
	}
}

func TestPrintFlagOptions_DefaultKeptWhole(t *testing.T) {
	tests := []struct {
		name  string
		usage string
		width int
	}{
		{"short usage", "Path", 60},
		{"usage fills line", "Path to the configuration file read at startup", 60},
		{"narrow", "Path to the configuration file read at startup", 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			fs.String("config", "/etc/packetlog/agent-settings.json", tt.usage)

			var out bytes.Buffer
			printFlagOptions(&out, fs, 2, tt.width)
			assert.Contains(t, out.String(), "[default: /etc/packetlog/agent-settings.json]")
			for _, word := range strings.Fields(tt.usage) {
				assert.Contains(t, out.String(), word)
			}
		})
	}
}

func TestPrintHelpMenu(t *testing.T) {
	cmdOpts := DefineOptions()
	var configPath string
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	SetGlobalArguments(fs)
	SetCommon(fs, &configPath)
	fs.Bool("stdin", false, "Log lines read from standard input")

	var out bytes.Buffer
	PrintHelpMenu(&out, fs, "run", cmdOpts)
	text := out.String()

	assert.Contains(t, text, "Usage: ")
	assert.Contains(t, text, " run [options]")
	assert.Contains(t, text, "Description:")
	assert.Contains(t, text, "-c, --config")
	assert.Contains(t, text, "-v, --verbosity")
	assert.Contains(t, text, "--stdin")
	assert.Contains(t, text, "[default: "+global.DefaultConfigPath+"]")
	assert.Equal(t, 1, strings.Count(text, "--config"), "aliases share one line")

	out.Reset()
	PrintHelpMenu(&out, flag.NewFlagSet("root", flag.ContinueOnError), RootCLICommand, cmdOpts)
	for _, name := range []string{"run", "inspect", "replay", "prune", "configure", "version"} {
		assert.Contains(t, out.String(), name+" ")
	}

	out.Reset()
	PrintHelpMenu(&out, fs, "bogus", cmdOpts)
	assert.Equal(t, "Unknown command: bogus\n", out.String())
}

func TestInspectFile(t *testing.T) {
	path := writeSession(t, t.TempDir())

	tests := []struct {
		name     string
		opts     inspectOptions
		contains []string
		absent   []string
	}{
		{
			name:     "all packets",
			opts:     inspectOptions{},
			contains: []string{"Shop/Checkout", "service ready", "Billing: card declined", "Queue/Depth[orders items] = 7", "after 3 packets"},
			absent:   []string{"THREAD"},
		},
		{
			name:     "cached shown",
			opts:     inspectOptions{showCached: true},
			contains: []string{"THREAD      #1 main", "DEFINITION  Queue/Depth"},
		},
		{
			name:     "limit",
			opts:     inspectOptions{limit: 1},
			contains: []string{"service ready"},
			absent:   []string{"card declined"},
		},
		{
			name:     "header only",
			opts:     inspectOptions{headerOnly: true},
			contains: []string{"session "},
			absent:   []string{"service ready", "packets read"},
		},
		{
			name:     "truncated",
			opts:     inspectOptions{width: 40},
			contains: []string{"..."},
			absent:   []string{"card declined"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := inspectFile(&out, path, packet.UnknownIsFatal, tt.opts); err != nil {
				t.Fatalf("inspect failed: %v", err)
			}
			for _, want := range tt.contains {
				assert.Contains(t, out.String(), want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, out.String(), unwanted)
			}
		})
	}
}

func TestDescribePacket(t *testing.T) {
	msg := packets.NewLogMessage(packets.NewThreadInfo(2, "worker"), packets.SeverityWarning, "Net", "retrying")
	msg.Stamp(42, time.Date(2025, 1, 2, 3, 4, 5, 6000, time.UTC))
	msg.Tags = []string{"a", "b"}

	line := describePacket(msg)
	assert.True(t, strings.HasPrefix(line, "      42 2025-01-02T03:04:05.000006Z "), line)
	assert.Contains(t, line, "[worker] Net: retrying {a,b}")
}

func TestExpandAndGroup(t *testing.T) {
	folder := t.TempDir()
	first := writeSession(t, folder)
	second := writeSession(t, folder)
	require.NoError(t, os.WriteFile(filepath.Join(folder, "notes.txt"), []byte("x"), 0600))

	paths, err := expandSessionPaths([]string{folder})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first, second}, paths)

	_, err = expandSessionPaths([]string{filepath.Join(folder, "missing.plog")})
	require.Error(t, err)

	results, err := file.ReplayAll(context.Background(), paths, packets.NewRegistry(), packet.UnknownAsGeneric, 2)
	require.NoError(t, err)
	sessions := groupBySession(results)
	assert.Len(t, sessions, 2, "separate outputs are separate sessions")
}

func TestReplayIntoCSV(t *testing.T) {
	path := writeSession(t, t.TempDir())
	results, err := file.ReplayAll(context.Background(), []string{path}, packets.NewRegistry(), packet.UnknownAsGeneric, 1)
	require.NoError(t, err)

	csvFolder := t.TempDir()
	targets, err := replayTargets(results[0].Header, csvFolder, "", time.Second)
	require.NoError(t, err)
	require.Len(t, targets, 1)

	written, err := replayInto(context.Background(), targets[0].backend, results)
	require.NoError(t, err)
	assert.Equal(t, 4, written)

	csvFiles, err := filepath.Glob(filepath.Join(csvFolder, "*"+global.CSVFileExt))
	require.NoError(t, err)
	require.Len(t, csvFiles, 1)
	content, err := os.Open(csvFiles[0])
	require.NoError(t, err)
	defer content.Close()
	rows, err := csv.NewReader(content).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header and both log messages")
	assert.Contains(t, strings.Join(rows[2], ","), "card declined")
}

func TestFlagWasSet(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	SetGlobalArguments(fs)
	require.NoError(t, fs.Parse([]string{"--verbosity", "3"}))
	assert.True(t, flagWasSet(fs, "v", "verbosity"))
	assert.False(t, flagWasSet(fs, "config"))
}

func TestLoadRunConfig_DefaultMissing(t *testing.T) {
	if _, err := os.Stat(global.DefaultConfigPath); err == nil {
		t.Skip("default configuration present on this host")
	}
	cfg, err := loadRunConfig(global.DefaultConfigPath)
	require.NoError(t, err)
	assert.True(t, cfg.File.Enabled)

	_, err = loadRunConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
