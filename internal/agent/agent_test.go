package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packetlog/internal/externalio/beats"
	"packetlog/internal/externalio/file"
	"packetlog/internal/externalio/logfile"
	"packetlog/internal/global"
	"packetlog/internal/messenger"
	"packetlog/pkg/packet"
	"packetlog/pkg/packets"
)

func testConfig(t *testing.T) (cfg Config) {
	t.Helper()
	cfg, err := NewAgentConf(global.AgentConfig{
		Product:     "Shop",
		Application: "Checkout",
		File:        global.FileOutputConf{Enabled: true, Folder: t.TempDir()},
		Metrics:     global.MetricConf{CollectionInterval: "50ms"},
	})
	require.NoError(t, err)
	return
}

func startAgent(t *testing.T, cfg Config) (agent *Agent) {
	t.Helper()
	agent, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, agent.Start())
	return
}

func closeAgent(t *testing.T, agent *Agent) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, agent.Close(ctx))
}

// Data packets (not cached definitions) of every session file in folder
func readSession(t *testing.T, folder string) (header file.SessionHeader, data []packet.Packet) {
	t.Helper()
	paths, err := file.ListSessionFiles(folder)
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		var pkts []packet.Packet
		header, pkts, err = file.ReadSession(path, packets.NewRegistry(), packet.UnknownAsGeneric)
		require.NoError(t, err)
		for _, pkt := range pkts {
			switch pkt.(type) {
			case *packets.LogMessage, *packets.MetricSample, *packets.SessionClose:
				data = append(data, pkt)
			}
		}
	}
	return
}

func sequenceOf(pkt packet.Packet) int64 {
	return pkt.(packet.Sequenced).PacketHeader().Sequence
}

func TestAgent_SessionRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	cfg.CSV.Enabled = true
	agent := startAgent(t, cfg)
	ctx := context.Background()

	main := agent.Thread("main")
	assert.Same(t, main, agent.Thread("main"))
	worker := agent.Thread("worker")
	assert.NotEqual(t, main.Index, worker.Index)

	require.NoError(t, agent.Log(ctx, main, packets.SeverityInformation, "Startup", "service ready"))
	require.NoError(t, agent.Log(ctx, worker, packets.SeverityWarning, "Billing", "card declined"))
	require.NoError(t, agent.RecordSample(ctx, "Queue", "Depth", "items", packets.SampleGauge, "orders", 3))
	require.NoError(t, agent.RecordSample(ctx, "Queue", "Depth", "items", packets.SampleGauge, "orders", 5))
	require.NoError(t, agent.Flush(ctx))
	closeAgent(t, agent)

	header, data := readSession(t, cfg.File.Folder)
	assert.Equal(t, agent.SessionID(), header.SessionID)
	assert.Equal(t, "Checkout", header.Application)
	require.Len(t, data, 5)

	for i, pkt := range data {
		assert.Equal(t, int64(i+1), sequenceOf(pkt), "packet %d", i)
	}

	first := data[0].(*packets.LogMessage)
	assert.Equal(t, "service ready", first.Caption)
	assert.Equal(t, "main", first.Thread.Name)
	second := data[1].(*packets.LogMessage)
	assert.Equal(t, "worker", second.Thread.Name)

	sample := data[3].(*packets.MetricSample)
	assert.Equal(t, 5.0, sample.Value)
	assert.Equal(t, "orders", sample.Metric.InstanceName)
	assert.Equal(t, "Depth", sample.Metric.Def.CounterName)

	closing := data[4].(*packets.SessionClose)
	assert.Equal(t, packets.SessionNormal, closing.Status)
	assert.Equal(t, int64(4), closing.PacketCount)

	// CSV carries the log messages only, next to the session file
	csvFiles, err := filepath.Glob(filepath.Join(cfg.CSV.Folder, "*"+global.CSVFileExt))
	require.NoError(t, err)
	require.Len(t, csvFiles, 1)
	content, err := os.ReadFile(csvFiles[0])
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(content), "\n"), "header and two rows")
	assert.Contains(t, string(content), "card declined")
}

func TestAgent_ConcurrentProducersShareOneSequence(t *testing.T) {
	cfg := testConfig(t)
	agent := startAgent(t, cfg)
	ctx := context.Background()

	const producers, perProducer = 6, 150
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			thread := agent.Thread(strings.Repeat("t", p+1))
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, agent.Log(ctx, thread, packets.SeverityVerbose, "Load", "line"))
			}
		}()
	}
	wg.Wait()
	closeAgent(t, agent)

	_, data := readSession(t, cfg.File.Folder)
	require.Len(t, data, producers*perProducer+1)
	for i, pkt := range data {
		require.Equal(t, int64(i+1), sequenceOf(pkt))
	}
}

func TestAgent_WriteAfterClose(t *testing.T) {
	agent := startAgent(t, testConfig(t))
	closeAgent(t, agent)

	err := agent.Log(context.Background(), agent.Thread("late"), packets.SeverityError, "Late", "too late")
	require.ErrorIs(t, err, messenger.ErrClosed)
	assert.Equal(t, uint64(1), agent.Metrics.Rejected.Load())

	// Second close is a no-op
	require.NoError(t, agent.Close(context.Background()))
}

func TestAgent_ReadLinesDrainedOnClose(t *testing.T) {
	cfg := testConfig(t)
	agent := startAgent(t, cfg)

	input := "Nov 17 12:18:00 Host1 nginx[77]: upstream timed out\n2025/03/15 10:47:59 [error] 33709#33709: disk full\nplain\n"
	lines, err := logfile.ReadLines(context.Background(), "stdin", strings.NewReader(input), agent.Outbox())
	require.NoError(t, err)
	require.Equal(t, 3, lines)
	closeAgent(t, agent)

	_, data := readSession(t, cfg.File.Folder)
	require.Len(t, data, 4)

	first := data[0].(*packets.LogMessage)
	assert.Equal(t, "upstream timed out", first.Caption)
	assert.Equal(t, "nginx", first.Category)
	assert.Equal(t, "nginx", first.Thread.Name)
	assert.Equal(t, "stdin", first.LogSystem)
	assert.Contains(t, first.Tags, "host:Host1")
	assert.Contains(t, first.Tags, "pid:77")

	second := data[1].(*packets.LogMessage)
	assert.Equal(t, packets.SeverityError, second.Severity)
	assert.Equal(t, time.Date(2025, 3, 15, 10, 47, 59, 0, time.UTC), second.Timestamp.UTC())
}

func TestAgent_FileInput(t *testing.T) {
	cfg := testConfig(t)
	logPath := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(logPath, []byte("one\ntwo\n"), 0600))
	cfg.InputFiles = []string{logPath}
	cfg.StateFolder = t.TempDir()

	agent := startAgent(t, cfg)
	require.Eventually(t, func() bool {
		return agent.Metrics.IngestedLines.Load() == 2
	}, 5*time.Second, 20*time.Millisecond)
	closeAgent(t, agent)

	_, data := readSession(t, cfg.File.Folder)
	require.Len(t, data, 3)
	assert.Equal(t, "one", data[0].(*packets.LogMessage).Caption)
	assert.Equal(t, logPath, data[1].(*packets.LogMessage).LogSystem)

	states, err := os.ReadDir(cfg.StateFolder)
	require.NoError(t, err)
	assert.Len(t, states, 1, "read position saved")
}

type capturingSender struct {
	mutex  sync.Mutex
	events []interface{}
}

func (sender *capturingSender) Send(events []interface{}) (int, error) {
	sender.mutex.Lock()
	defer sender.mutex.Unlock()
	sender.events = append(sender.events, events...)
	return len(events), nil
}

func (sender *capturingSender) Close() error { return nil }

func TestAgent_BeatsOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.File.Enabled = false
	cfg.Beats = BeatsConfig{Enabled: true, Address: "collector:5044", Timeout: time.Second}
	sink := &capturingSender{}
	cfg.BeatsDialer = func(address string, timeout time.Duration, level int) (beats.Sender, error) {
		return sink, nil
	}

	agent := startAgent(t, cfg)
	require.NoError(t, agent.Log(context.Background(), agent.Thread("main"), packets.SeverityInformation, "Net", "hello"))
	closeAgent(t, agent)

	sink.mutex.Lock()
	defer sink.mutex.Unlock()
	require.Len(t, sink.events, 2)
	assert.Equal(t, "hello", sink.events[0].(map[string]interface{})["message"])
	closing := sink.events[1].(map[string]interface{})["session_close"].(map[string]interface{})
	assert.Equal(t, int64(1), closing["packet_count"])
}

// Sender that holds every batch until released
type stalledSender struct {
	release chan struct{}
	sends   atomic.Int32
}

func (sender *stalledSender) Send(events []interface{}) (int, error) {
	sender.sends.Add(1)
	<-sender.release
	return len(events), nil
}

func (sender *stalledSender) Close() error { return nil }

func TestAgent_CloseBoundedWithStuckOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.File.Enabled = false
	cfg.QueueLimit = 2
	cfg.MaxBatchSize = 1
	cfg.Beats = BeatsConfig{Enabled: true, Address: "collector:5044", Timeout: time.Second}
	sink := &stalledSender{release: make(chan struct{})}
	cfg.BeatsDialer = func(address string, timeout time.Duration, level int) (beats.Sender, error) {
		return sink, nil
	}

	agent := startAgent(t, cfg)
	thread := agent.Thread("main")

	// One event stuck in Send, two filling the queue
	require.NoError(t, agent.Log(context.Background(), thread, packets.SeverityInformation, "Net", "held"))
	require.Eventually(t, func() bool { return sink.sends.Load() == 1 }, time.Second, time.Millisecond)
	for i := 0; i < 2; i++ {
		require.NoError(t, agent.Log(context.Background(), thread, packets.SeverityInformation, "Net", "queued"))
	}

	blocked := make(chan error, 1)
	go func() {
		blocked <- agent.Log(context.Background(), thread, packets.SeverityInformation, "Net", "waiting")
	}()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	closed := make(chan error, 1)
	go func() {
		closed <- agent.Close(ctx)
	}()

	select {
	case err := <-closed:
		require.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(3 * time.Second):
		t.Fatal("close ignored its deadline while a writer waited on a full output")
	}
	select {
	case err := <-blocked:
		require.ErrorIs(t, err, messenger.ErrClosed)
	case <-time.After(3 * time.Second):
		t.Fatal("waiting writer was not released by close")
	}
	close(sink.release)
}

func TestAgent_MetricsGathered(t *testing.T) {
	agent := startAgent(t, testConfig(t))
	defer closeAgent(t, agent)
	require.NoError(t, agent.Log(context.Background(), agent.Thread("main"), packets.SeverityInformation, "M", "x"))

	require.Eventually(t, func() bool {
		found := agent.Registry.Discover("written_packets", "", []string{global.NSAgent, global.NSoFile}, "", "")
		return len(found) > 0
	}, 5*time.Second, 20*time.Millisecond)

	logged := agent.Registry.Discover("messages_logged", "", []string{global.NSAgent}, "", "")
	assert.NotEmpty(t, logged)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no output", func(cfg *Config) { cfg.File.Enabled = false }},
		{"beats without address", func(cfg *Config) { cfg.Beats.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			_, err := New(context.Background(), cfg)
			if err == nil {
				t.Fatalf("expected configuration error")
			}
		})
	}
}
