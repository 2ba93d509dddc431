package metrics

import "time"

// Drops slices that started more than maxAge before now and returns how many were dropped
func (registry *Registry) Prune(now time.Time, maxAge time.Duration) (dropped int) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	for dropped < len(registry.slices) && now.Sub(registry.slices[dropped].start) > maxAge {
		dropped++
	}
	if dropped == 0 {
		return
	}
	// Copy so the backing array of old slices can be released
	registry.slices = append([]timeSlice(nil), registry.slices[dropped:]...)
	return
}
