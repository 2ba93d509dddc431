// Helper functions that deal with atomic variables and their values
package atomics

import "sync/atomic"

// Raises target to candidate if candidate is larger. Safe against concurrent raises and resets (Swap(0)).
func StoreMax(target *atomic.Uint64, candidate uint64) (raised bool) {
	for {
		current := target.Load()
		if candidate <= current {
			return
		}
		// CAS will only succeed if the value has not changed since we last read it
		if target.CompareAndSwap(current, candidate) {
			raised = true
			return
		}
	}
}
