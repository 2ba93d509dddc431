package metrics

import (
	"sync"
	"time"
)

// Time-sliced store of agent metrics
type Registry struct {
	mu     sync.RWMutex
	slices []timeSlice // ordered by start, oldest first
}

// Metrics gathered during one collection interval
type timeSlice struct {
	start  time.Time
	series map[string]Metric // key is seriesKey(namespace, name)
}

type MetricType string

const (
	Counter MetricType = "counter" // per-interval delta, totals are the running sum
	Gauge   MetricType = "gauge"   // point in time value
	Summary MetricType = "summary" // avg/min/max over the interval
)

// Container for a metric and associated data
type Metric struct {
	Name        string // e.g. dispatch_time, depth
	Description string
	Namespace   []string // e.g. "Agent/Messenger/File/Queue"
	Value       MetricValue
	Type        MetricType
	Timestamp   time.Time // time when the metric was recorded
}

// Specific value of a metric
type MetricValue struct {
	Raw      interface{}   // uint64, int64, float64 or numeric string
	Unit     string        // e.g., "ns", "bytes", "count"
	Interval time.Duration // measurement window
}

// JSON version
type JMetric struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Namespace   string       `json:"namespace"`
	Value       JMetricValue `json:"value"`
	Type        string       `json:"type"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type JMetricValue struct {
	Raw      string `json:"raw"`
	Unit     string `json:"unit"`
	Interval string `json:"interval,omitempty"`
}
