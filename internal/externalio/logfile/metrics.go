package logfile

import (
	"time"

	"packetlog/internal/metrics"
)

func (mod *InModule) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	now := time.Now()
	add := func(name, desc string, value uint64) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: desc,
			Namespace:   mod.Namespace,
			Value: metrics.MetricValue{
				Raw:      value,
				Unit:     "count",
				Interval: interval,
			},
			Type:      metrics.Counter,
			Timestamp: now,
		})
	}
	add("lines_read", "Complete lines read from the source file", mod.Metrics.LinesRead.Swap(0))
	add("lines_forwarded", "Lines handed to the ingest queue", mod.Metrics.Success.Swap(0))
	add("rotations", "Times the source file was replaced", mod.Metrics.Rotations.Swap(0))
	add("read_errors", "Failed reads of the source file", mod.Metrics.ReadErrors.Swap(0))
	return
}
