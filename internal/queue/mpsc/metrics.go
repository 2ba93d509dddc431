package mpsc

import (
	"time"

	"packetlog/internal/metrics"
)

// Snapshot of queue metrics; interval counters reset on every collection
func (queue *Queue[T]) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	m := queue.Metrics
	recordTime := time.Now()

	add := func(name string, raw uint64, unit string, t metrics.MetricType, description string) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   queue.Namespace,
			Type:        t,
			Timestamp:   recordTime,
			Value: metrics.MetricValue{
				Raw:      raw,
				Unit:     unit,
				Interval: interval,
			},
		})
	}

	depth := m.Depth.Load()
	add("depth", depth, "count", metrics.Gauge, "Current number of items in the queue")
	add("max_depth", m.MaxDepth.Swap(depth), "count", metrics.Gauge, "Highest number of queued items in the interval")
	add("capacity", m.Capacity.Load(), "count", metrics.Gauge, "Current ring size")
	add("push_attempts", m.PushAttempts.Swap(0), "count", metrics.Counter, "Total push attempts in the interval")
	add("push_success", m.PushSuccess.Swap(0), "count", metrics.Counter, "Total push attempts that succeeded in the interval")
	add("push_full", m.PushFull.Swap(0), "count", metrics.Counter, "Pushes rejected at the queue limit in the interval")
	add("push_waits", m.PushWaits.Swap(0), "count", metrics.Counter, "Times producers waited for space in the interval")
	add("pop_success", m.PopSuccess.Swap(0), "count", metrics.Counter, "Total items removed in the interval")
	add("pop_waits", m.PopWaits.Swap(0), "count", metrics.Counter, "Times the consumer waited on an empty queue in the interval")
	add("grows", m.Grows.Swap(0), "count", metrics.Counter, "Ring growths in the interval")
	add("shrinks", m.Shrinks.Swap(0), "count", metrics.Counter, "Ring shrinks in the interval")
	return
}
