package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Exposes the registry to prometheus.
// Gauges and summaries report the newest time slice. Counters are stored as
// per-interval deltas and are exported as the running total of every slice seen.
type Collector struct {
	registry *Registry
	prefix   string

	mu       sync.Mutex
	lastSeen time.Time
	totals   map[string]counterTotal
}

type counterTotal struct {
	description string
	value       float64
}

// Creates a collector over the registry with every metric name under prefix
func NewCollector(registry *Registry, prefix string) (collector *Collector) {
	collector = &Collector{
		registry: registry,
		prefix:   prefix,
		totals:   make(map[string]counterTotal),
	}
	return
}

// Metric set changes at runtime so the collector is unchecked
func (collector *Collector) Describe(ch chan<- *prometheus.Desc) {}

func (collector *Collector) Collect(ch chan<- prometheus.Metric) {
	collector.mu.Lock()
	defer collector.mu.Unlock()

	slices := collector.registry.TimeSlices()
	if len(slices) == 0 {
		return
	}

	// Fold counter deltas from slices not yet seen
	for _, slice := range slices {
		if !slice.After(collector.lastSeen) && !collector.lastSeen.IsZero() {
			continue
		}
		for _, metric := range collector.registry.Search("", nil, slice, slice) {
			if metric.Type != Counter {
				continue
			}
			value, err := ToFloat(metric.Value.Raw)
			if err != nil {
				continue
			}
			name := collector.fqName(metric)
			total := collector.totals[name]
			total.description = metric.Description
			total.value += value
			collector.totals[name] = total
		}
	}
	collector.lastSeen = slices[len(slices)-1]

	for name, total := range collector.totals {
		desc := prometheus.NewDesc(name, total.description, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, total.value)
	}

	for _, metric := range collector.registry.Latest() {
		if metric.Type == Counter {
			continue
		}
		value, err := ToFloat(metric.Value.Raw)
		if err != nil {
			continue
		}
		desc := prometheus.NewDesc(collector.fqName(metric), metric.Description, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, value)
	}
}

// Builds a valid prometheus name from prefix, namespace and metric name
func (collector *Collector) fqName(metric Metric) (name string) {
	parts := make([]string, 0, len(metric.Namespace)+2)
	if collector.prefix != "" {
		parts = append(parts, collector.prefix)
	}
	parts = append(parts, metric.Namespace...)
	parts = append(parts, metric.Name)

	var builder strings.Builder
	for i, part := range parts {
		if i > 0 {
			builder.WriteByte('_')
		}
		for _, char := range strings.ToLower(part) {
			if (char >= 'a' && char <= 'z') || (char >= '0' && char <= '9') || char == '_' {
				builder.WriteRune(char)
			} else {
				builder.WriteByte('_')
			}
		}
	}
	name = builder.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "_" + name
	}
	return
}
