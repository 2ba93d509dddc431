package beats

import (
	"time"

	"packetlog/internal/metrics"
)

func (mod *OutModule) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
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
	add("events_sent", "Events acknowledged by the beats server", mod.EventsSent.Swap(0))
	add("send_failures", "Failed batch sends", mod.SendFailures.Swap(0))
	add("packets_skipped", "Packets with no beats event form", mod.PacketsSkipped.Swap(0))
	return
}
