package metrics

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Converts internal metric type to export (JSON) metric.
// Discovered series carry no time or interval, those fields stay empty.
func (inMetric Metric) Convert() (outMetric JMetric) {
	outMetric = JMetric{
		Name:        inMetric.Name,
		Description: inMetric.Description,
		Namespace:   strings.Join(inMetric.Namespace, "/"),
		Type:        string(inMetric.Type),
		Value: JMetricValue{
			Raw:  formatRaw(inMetric.Value.Raw),
			Unit: inMetric.Value.Unit,
		},
	}
	if inMetric.Value.Interval > 0 {
		outMetric.Value.Interval = inMetric.Value.Interval.String()
	}
	if !inMetric.Timestamp.IsZero() {
		outMetric.Timestamp = inMetric.Timestamp.Format(time.RFC3339Nano)
	}
	return
}

// Converts a batch for export
func ConvertAll(inMetrics []Metric) (outMetrics []JMetric) {
	outMetrics = make([]JMetric, 0, len(inMetrics))
	for _, metric := range inMetrics {
		outMetrics = append(outMetrics, metric.Convert())
	}
	return
}

// Numbers are written so clients can parse them back; durations as nanoseconds like ToFloat reads them
func formatRaw(raw interface{}) (text string) {
	switch typed := raw.(type) {
	case nil:
	case string:
		text = typed
	case time.Duration:
		text = strconv.FormatInt(int64(typed), 10)
	case float64:
		text = strconv.FormatFloat(typed, 'g', -1, 64)
	case float32:
		text = strconv.FormatFloat(float64(typed), 'g', -1, 32)
	case int64:
		text = strconv.FormatInt(typed, 10)
	case uint64:
		text = strconv.FormatUint(typed, 10)
	default:
		text = fmt.Sprint(raw)
	}
	return
}
