package metrics

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

func TestConvert(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 1, 0, 1, time.UTC)
	tests := []struct {
		name  string
		input Metric
		want  JMetric
	}{
		{
			name: "messenger counter",
			input: Metric{
				Name:        "written_packets",
				Description: "packets written to the backend",
				Namespace:   []string{"Agent", "File", "Messenger"},
				Type:        Counter,
				Timestamp:   at,
				Value:       MetricValue{Raw: uint64(1200), Unit: "count", Interval: 10 * time.Second},
			},
			want: JMetric{
				Name:        "written_packets",
				Description: "packets written to the backend",
				Namespace:   "Agent/File/Messenger",
				Type:        "counter",
				Timestamp:   "2026-01-01T00:01:00.000000001Z",
				Value:       JMetricValue{Raw: "1200", Unit: "count", Interval: "10s"},
			},
		},
		{
			name: "dispatch time as nanoseconds",
			input: Metric{
				Name:      "dispatch_time",
				Namespace: []string{"Agent", "CSV", "Messenger"},
				Type:      Summary,
				Timestamp: at,
				Value:     MetricValue{Raw: 1500 * time.Microsecond, Unit: "ns", Interval: time.Second},
			},
			want: JMetric{
				Name:      "dispatch_time",
				Namespace: "Agent/CSV/Messenger",
				Type:      "summary",
				Timestamp: "2026-01-01T00:01:00.000000001Z",
				Value:     JMetricValue{Raw: "1500000", Unit: "ns", Interval: "1s"},
			},
		},
		{
			name:  "trimmed average keeps precision",
			input: Metric{Name: "queue_depth", Type: Summary, Value: MetricValue{Raw: 25.0 / 3.0}},
			want:  JMetric{Name: "queue_depth", Type: "summary", Value: JMetricValue{Raw: "8.333333333333334"}},
		},
		{
			name:  "negative gauge",
			input: Metric{Name: "clock_skew", Type: Gauge, Value: MetricValue{Raw: int64(-42), Unit: "ms"}},
			want:  JMetric{Name: "clock_skew", Type: "gauge", Value: JMetricValue{Raw: "-42", Unit: "ms"}},
		},
		{
			name:  "discovered series has no time",
			input: Metric{Name: "rows_written", Namespace: []string{"Agent", "CSV"}, Type: Counter, Value: MetricValue{Unit: "count"}},
			want:  JMetric{Name: "rows_written", Namespace: "Agent/CSV", Type: "counter", Value: JMetricValue{Unit: "count"}},
		},
		{
			name:  "plain int",
			input: Metric{Name: "outputs", Value: MetricValue{Raw: 3}},
			want:  JMetric{Name: "outputs", Value: JMetricValue{Raw: "3"}},
		},
		{
			name:  "numeric string passed through",
			input: Metric{Name: "ratio", Value: MetricValue{Raw: "0.5"}},
			want:  JMetric{Name: "ratio", Value: JMetricValue{Raw: "0.5"}},
		},
		{
			name:  "not a number",
			input: Metric{Name: "p95", Value: MetricValue{Raw: math.NaN()}},
			want:  JMetric{Name: "p95", Value: JMetricValue{Raw: "NaN"}},
		},
		{"empty", Metric{}, JMetric{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.input.Convert(); got != tt.want {
				t.Fatalf("\ngot  %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestConvertAll_JSON(t *testing.T) {
	if got := ConvertAll(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil batch, got %#v", got)
	}

	reg, ts := setupRegistryWithData(t)
	encoded, err := json.Marshal(ConvertAll(reg.Search("queue_depth", []string{"Agent", "Messenger"}, ts["ts1"], ts["ts3"])))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(encoded)
	for _, want := range []string{`"raw":"10"`, `"raw":"20"`, `"raw":"-5"`, `"namespace":"Agent/Messenger"`, `"interval":"1m0s"`} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %s in %s", want, text)
		}
	}

	encoded, err = json.Marshal(ConvertAll(reg.Discover("packets_sent", "", nil, "", "")))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(encoded), "timestamp") || strings.Contains(string(encoded), "interval") {
		t.Fatalf("discovered series must not carry time fields: %s", encoded)
	}
}
