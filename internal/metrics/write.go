package metrics

import (
	"sort"
	"strings"
	"time"
)

// Setup metrics map for this collection interval
func (registry *Registry) NewTimeSlice(now time.Time, interval time.Duration) (start time.Time) {
	start = now
	if interval > 0 {
		// Round down for this interval
		start = now.Truncate(interval)
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	idx, found := registry.find(start)
	if found {
		return
	}
	// Collection normally moves forward, so this is an append
	registry.slices = append(registry.slices, timeSlice{})
	copy(registry.slices[idx+1:], registry.slices[idx:])
	registry.slices[idx] = timeSlice{start: start, series: make(map[string]Metric)}
	return
}

// Adds batch of metrics to a time slice. Metrics for a slice that was never created or was pruned are dropped.
func (registry *Registry) Add(start time.Time, metrics []Metric) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	idx, found := registry.find(start)
	if !found {
		return
	}
	for _, metric := range metrics {
		registry.slices[idx].series[seriesKey(metric.Namespace, metric.Name)] = metric
	}
}

// Position of the slice starting at start, or where it would be inserted (caller holds the lock)
func (registry *Registry) find(start time.Time) (idx int, found bool) {
	idx = sort.Search(len(registry.slices), func(i int) bool {
		return !registry.slices[i].start.Before(start)
	})
	found = idx < len(registry.slices) && registry.slices[idx].start.Equal(start)
	return
}

// Returns the time slices currently held, oldest first
func (registry *Registry) TimeSlices() (starts []time.Time) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	starts = make([]time.Time, 0, len(registry.slices))
	for _, slice := range registry.slices {
		starts = append(starts, slice.start)
	}
	return
}

// Returns every metric of the newest time slice, sorted by namespace then name
func (registry *Registry) Latest() (results []Metric) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if len(registry.slices) == 0 {
		return
	}
	results = registry.slices[len(registry.slices)-1].collect("", nil)
	return
}

// Metrics of the slice matching name (empty = all) under namespace prefix, sorted
func (slice timeSlice) collect(name string, namespacePrefix []string) (results []Metric) {
	for _, metric := range slice.series {
		if name != "" && metric.Name != name {
			continue
		}
		if !hasNamespacePrefix(metric.Namespace, namespacePrefix) {
			continue
		}
		results = append(results, metric)
	}
	sortMetrics(results)
	return
}

func sortMetrics(list []Metric) {
	sort.Slice(list, func(i, j int) bool {
		nsI := strings.Join(list[i].Namespace, "/")
		nsJ := strings.Join(list[j].Namespace, "/")
		if nsI != nsJ {
			return nsI < nsJ
		}
		return list[i].Name < list[j].Name
	})
}
