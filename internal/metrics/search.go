package metrics

import (
	"slices"
	"sort"
	"strings"
	"time"
)

// Agent/File matches Agent/File and Agent/File/Messenger/Queue, an empty prefix matches everything
func hasNamespacePrefix(namespace, prefix []string) bool {
	return len(namespace) >= len(prefix) && slices.Equal(namespace[:len(prefix)], prefix)
}

// Returns metrics named name (empty = all) under namespacePrefix, oldest slice first.
// start and end bound the slices inclusively, zero times leave that side open.
func (registry *Registry) Search(name string, namespacePrefix []string, start, end time.Time) (results []Metric) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	first := 0
	if !start.IsZero() {
		first, _ = registry.find(start)
	}
	for _, slice := range registry.slices[first:] {
		if !end.IsZero() && slice.start.After(end) {
			break
		}
		results = append(results, slice.collect(name, namespacePrefix)...)
	}
	return
}

// Lists the distinct series held over all slices, without values or times.
// name and description match as substrings; the other filters match exactly. Empty filters match all.
func (registry *Registry) Discover(name, description string, namespacePrefix []string, unit string, metricType MetricType) (results []Metric) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	// A series shows up once per unit and type it was reported with
	seen := make(map[string]bool)
	for _, slice := range registry.slices {
		for key, metric := range slice.series {
			switch {
			case name != "" && !strings.Contains(metric.Name, name),
				description != "" && !strings.Contains(metric.Description, description),
				unit != "" && metric.Value.Unit != unit,
				metricType != "" && metric.Type != metricType,
				!hasNamespacePrefix(metric.Namespace, namespacePrefix):
				continue
			}

			identity := key + "|" + string(metric.Type) + "|" + metric.Value.Unit
			if seen[identity] {
				continue
			}
			seen[identity] = true

			results = append(results, Metric{
				Name:        metric.Name,
				Description: metric.Description,
				Namespace:   metric.Namespace,
				Type:        metric.Type,
				Value:       MetricValue{Unit: metric.Value.Unit},
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Name != results[j].Name {
			return results[i].Name < results[j].Name
		}
		nsI, nsJ := strings.Join(results[i].Namespace, "/"), strings.Join(results[j].Namespace, "/")
		if nsI != nsJ {
			return nsI < nsJ
		}
		return results[i].Value.Unit < results[j].Value.Unit
	})
	return
}
