package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Export(t *testing.T) {
	reg, ts := setupRegistryWithData(t)
	collector := NewCollector(reg, "packetlog")

	expected := `
# HELP packetlog_agent_beats_packets_sent packets sent to the collector
# TYPE packetlog_agent_beats_packets_sent counter
packetlog_agent_beats_packets_sent 5
# HELP packetlog_agent_messenger_queue_depth queue depth
# TYPE packetlog_agent_messenger_queue_depth gauge
packetlog_agent_messenger_queue_depth -5
`
	err := testutil.CollectAndCompare(collector, strings.NewReader(expected))
	if err != nil {
		t.Fatalf("unexpected export: %v", err)
	}

	// Non-numeric values are skipped
	count := testutil.CollectAndCount(collector)
	if count != 2 {
		t.Fatalf("expected 2 exported metrics, got %d", count)
	}

	// Later slices extend the running counter total once
	ts4 := reg.NewTimeSlice(ts["ts3"].Add(time.Minute), time.Minute)
	reg.Add(ts4, []Metric{
		{
			Name:        "packets_sent",
			Description: "packets sent to the collector",
			Namespace:   []string{"Agent", "Beats"},
			Type:        Counter,
			Timestamp:   ts4,
			Value:       MetricValue{Raw: uint64(7), Unit: "count", Interval: time.Minute},
		},
	})

	expected = `
# HELP packetlog_agent_beats_packets_sent packets sent to the collector
# TYPE packetlog_agent_beats_packets_sent counter
packetlog_agent_beats_packets_sent 12
`
	err = testutil.CollectAndCompare(collector, strings.NewReader(expected), "packetlog_agent_beats_packets_sent")
	if err != nil {
		t.Fatalf("unexpected counter total: %v", err)
	}
}

func TestCollector_EmptyRegistry(t *testing.T) {
	collector := NewCollector(New(), "packetlog")
	if count := testutil.CollectAndCount(collector); count != 0 {
		t.Fatalf("expected no metrics, got %d", count)
	}
}

func TestCollector_Names(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		metric   Metric
		expected string
	}{
		{"nested namespace", "packetlog", Metric{Name: "depth", Namespace: []string{"Agent", "Messenger", "File", "Queue"}}, "packetlog_agent_messenger_file_queue_depth"},
		{"invalid characters", "packetlog", Metric{Name: "time.ns", Namespace: []string{"Beats-Out"}}, "packetlog_beats_out_time_ns"},
		{"no prefix leading digit", "", Metric{Name: "x", Namespace: []string{"0"}}, "_0_x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := NewCollector(New(), tt.prefix)
			got := collector.fqName(tt.metric)
			if got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRegistry_Latest(t *testing.T) {
	reg, ts := setupRegistryWithData(t)

	latest := reg.Latest()
	if len(latest) != 2 {
		t.Fatalf("expected 2 metrics in newest slice, got %d", len(latest))
	}
	if latest[0].Name != "bad_metric" || latest[1].Name != "queue_depth" {
		t.Fatalf("unexpected order: %s, %s", latest[0].Name, latest[1].Name)
	}
	for _, metric := range latest {
		if !metric.Timestamp.Equal(ts["ts3"]) {
			t.Fatalf("metric %s from wrong slice %v", metric.Name, metric.Timestamp)
		}
	}

	if New().Latest() != nil {
		t.Fatalf("expected nil from empty registry")
	}
}
