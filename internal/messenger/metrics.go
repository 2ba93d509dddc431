package messenger

import (
	"time"

	"packetlog/internal/metrics"
)

// Reads and clears the interval counters, followed by the queue's metrics
func (messenger *Messenger) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	m := messenger.Metrics
	recordTime := time.Now()

	add := func(name string, raw uint64, unit string, t metrics.MetricType, description string) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   messenger.Namespace,
			Type:        t,
			Timestamp:   recordTime,
			Value: metrics.MetricValue{
				Raw:      raw,
				Unit:     unit,
				Interval: interval,
			},
		})
	}

	written := m.Written.Swap(0)
	writeNanos := m.WriteNanos.Swap(0)
	var avgWrite uint64
	if written > 0 {
		avgWrite = writeNanos / written
	}

	add("enqueued_packets", m.Enqueued.Swap(0), "count", metrics.Counter, "Packets accepted from producers in the interval")
	add("written_packets", written, "count", metrics.Counter, "Packets handed to the backend in the interval")
	add("write_errors", m.WriteErrors.Swap(0), "count", metrics.Counter, "Packets the backend failed to write in the interval")
	add("flushes", m.Flushes.Swap(0), "count", metrics.Counter, "Backend flushes in the interval")
	add("flush_errors", m.FlushErrors.Swap(0), "count", metrics.Counter, "Failed backend flushes in the interval")
	add("commits", m.Commits.Swap(0), "count", metrics.Counter, "Committed writers released in the interval")
	add("maintenances", m.Maintenances.Swap(0), "count", metrics.Counter, "Maintenance cycles in the interval")
	add("panics", m.Panics.Swap(0), "count", metrics.Counter, "Packets dropped after a panic in the interval")
	add("average_write_time", avgWrite, "ns", metrics.Summary, "Average time spent writing one packet in the interval")
	add("max_batch", m.MaxBatch.Swap(0), "count", metrics.Gauge, "Largest batch taken from the queue in the interval")
	add("state", uint64(messenger.State()), "state", metrics.Gauge, "Current messenger state")

	collection = append(collection, messenger.queue.CollectMetrics(interval)...)
	return
}
