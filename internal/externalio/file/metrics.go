package file

import (
	"time"

	"packetlog/internal/metrics"
)

func (mod *OutModule) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	recordTime := time.Now()

	add := func(name string, raw any, unit string, t metrics.MetricType, description string) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   mod.Namespace,
			Type:        t,
			Timestamp:   recordTime,
			Value: metrics.MetricValue{
				Raw:      raw,
				Unit:     unit,
				Interval: interval,
			},
		})
	}

	add("packets_written", mod.Metrics.PacketsWritten.Swap(0), "count", metrics.Counter, "Packets serialized into session files in the interval")
	add("bytes_written", mod.Metrics.BytesWritten.Swap(0), "bytes", metrics.Counter, "Bytes handed to session files in the interval")
	add("files_opened", mod.Metrics.FilesOpened.Swap(0), "count", metrics.Counter, "Session files created in the interval")
	add("syncs", mod.Metrics.Syncs.Swap(0), "count", metrics.Counter, "Session file syncs in the interval")
	add("current_file_size", mod.Size(), "bytes", metrics.Gauge, "Size of the session file currently written")
	return
}
