package csv

import (
	"time"

	"packetlog/internal/metrics"
)

func (mod *OutModule) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	recordTime := time.Now()

	collection = []metrics.Metric{
		{
			Name:        "rows_written",
			Description: "Log messages written as csv rows in the interval",
			Namespace:   mod.Namespace,
			Value: metrics.MetricValue{
				Raw:      mod.RowsWritten.Swap(0),
				Unit:     "count",
				Interval: interval,
			},
			Type:      metrics.Counter,
			Timestamp: recordTime,
		},
		{
			Name:        "packets_skipped",
			Description: "Packets without a csv representation in the interval",
			Namespace:   mod.Namespace,
			Value: metrics.MetricValue{
				Raw:      mod.PacketsSkipped.Swap(0),
				Unit:     "count",
				Interval: interval,
			},
			Type:      metrics.Counter,
			Timestamp: recordTime,
		},
	}
	return
}
