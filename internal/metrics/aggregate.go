package metrics

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"packetlog/internal/calc"
	"packetlog/internal/global"
)

// Combines every matching metric value in the window into a single summary metric
func (registry *Registry) Aggregate(aggType, name string, namespacePrefix []string, start, end time.Time) (result Metric, err error) {
	found := registry.Search(name, namespacePrefix, start, end)
	if len(found) == 0 {
		err = fmt.Errorf("no metrics named %q found in namespace %v", name, namespacePrefix)
		return
	}

	values := make([]float64, 0, len(found))
	for _, metric := range found {
		var value float64
		value, err = ToFloat(metric.Value.Raw)
		if err != nil {
			err = fmt.Errorf("failed to aggregate %q at %s: %w", name, metric.Timestamp.Format(time.RFC3339), err)
			return
		}
		values = append(values, value)
	}

	var aggregate float64
	switch aggType {
	case global.MetricSum, global.MetricAvg:
		for _, value := range values {
			aggregate += value
		}
		if aggType == global.MetricAvg {
			aggregate = aggregate / float64(len(values))
		}
	case global.MetricMin:
		aggregate = math.Inf(1)
		for _, value := range values {
			aggregate = math.Min(aggregate, value)
		}
	case global.MetricMax:
		aggregate = math.Inf(-1)
		for _, value := range values {
			aggregate = math.Max(aggregate, value)
		}
	case global.MetricTrimmedAvg:
		aggregate = calc.TrimmedMean(values, 0.1)
	case global.MetricP95:
		aggregate = calc.Percentile(values, 0.95)
	default:
		err = fmt.Errorf("unknown aggregation type %q", aggType)
		return
	}

	first := found[0]
	result = Metric{
		Name:        name,
		Description: first.Description,
		Namespace:   namespacePrefix,
		Type:        Summary,
		Timestamp:   found[len(found)-1].Timestamp,
		Value: MetricValue{
			Raw:      aggregate,
			Unit:     first.Value.Unit,
			Interval: found[len(found)-1].Timestamp.Sub(first.Timestamp) + first.Value.Interval,
		},
	}
	return
}

// Converts a raw metric value into a float
func ToFloat(raw interface{}) (value float64, err error) {
	switch typed := raw.(type) {
	case time.Duration:
		value = float64(typed)
	case int:
		value = float64(typed)
	case int32:
		value = float64(typed)
	case int64:
		value = float64(typed)
	case uint:
		value = float64(typed)
	case uint32:
		value = float64(typed)
	case uint64:
		value = float64(typed)
	case float32:
		value = float64(typed)
	case float64:
		value = typed
	case string:
		value, err = strconv.ParseFloat(typed, 64)
		if err != nil {
			err = fmt.Errorf("non-numeric string value %q", typed)
		}
	default:
		err = fmt.Errorf("unsupported value type %T", raw)
	}
	return
}
