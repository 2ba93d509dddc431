package mpsc

import (
	"unsafe"

	"github.com/pbnjay/memory"

	"packetlog/internal/global"
)

// Doubles the ring (caller holds the mutex). Refuses when the new ring would not fit in free memory.
func (queue *Queue[T]) grow() (grown bool) {
	if !queue.canGrow() {
		return
	}

	queue.resize(nextPowerOfTwo(len(queue.buf) + 1))
	queue.Metrics.Grows.Add(1)
	grown = true
	return
}

// Reports whether a doubled ring fits in half of the free memory
func (queue *Queue[T]) canGrow() (fits bool) {
	var zero T
	needed := uint64(nextPowerOfTwo(len(queue.buf)+1)) * uint64(unsafe.Sizeof(zero))
	free := memory.FreeMemory()
	fits = free == 0 || needed <= free/2
	return
}

// Halves the ring when it is mostly empty (caller holds the mutex)
func (queue *Queue[T]) shrink() {
	size := len(queue.buf)
	if size <= queue.minimumSize || queue.count > size/4 {
		return
	}
	queue.resize(prevPowerOfTwo(size))
	queue.Metrics.Shrinks.Add(1)
}

// Moves elements into a new ring starting at index 0
func (queue *Queue[T]) resize(newSize int) {
	buf := make([]T, newSize)
	mask := len(queue.buf) - 1
	for i := 0; i < queue.count; i++ {
		buf[i] = queue.buf[(queue.head+i)&mask]
	}
	queue.buf = buf
	queue.head = 0
	queue.Metrics.Capacity.Store(uint64(newSize))
}

// Length limit sized to roughly 1% of host memory, bounded by the global defaults
func DefaultLimit(itemSize uint64) (limit int) {
	if itemSize == 0 {
		itemSize = 1
	}
	total := memory.TotalMemory()
	if total == 0 {
		limit = global.DefaultMaxQueueSize / 16
		return
	}

	limit = int(total / 100 / itemSize)
	limit = max(limit, global.DefaultMinQueueSize)
	limit = min(limit, global.DefaultMaxQueueSize)
	return
}

// Rough per-element footprint used for the default limit: the slot plus a typical payload
func estimatedItemSize[T any]() uint64 {
	var zero T
	return uint64(unsafe.Sizeof(zero)) + 512
}

func nextPowerOfTwo(start int) (next int) {
	if start <= 1 {
		next = 1
		return
	}
	start--
	start |= start >> 1
	start |= start >> 2
	start |= start >> 4
	start |= start >> 8
	start |= start >> 16
	start |= start >> 32
	next = start + 1
	return
}

func prevPowerOfTwo(start int) (prev int) {
	if start == 0 {
		return
	}
	prev = nextPowerOfTwo(start) >> 1
	return
}
