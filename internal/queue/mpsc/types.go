package mpsc

import (
	"sync"
	"sync/atomic"
)

// Growable FIFO ring with a soft length limit.
// Many goroutines push; a single consumer pops.
type Queue[T any] struct {
	Namespace []string

	mutex     sync.Mutex
	buf       []T // len is always a power of two
	head      int
	count     int
	limit     int  // pushes fail beyond this length unless unbounded
	unbounded bool // limit lifted (maintenance)
	closed    bool

	minimumSize int
	notEmpty    chan struct{} // wakes the consumer, capacity 1
	notFull     chan struct{} // closed and replaced whenever space frees up
	spaceWanted bool          // a producer waits on notFull
	Metrics     *MetricStorage
}

type MetricStorage struct {
	Depth    atomic.Uint64 // Current items in queue
	MaxDepth atomic.Uint64 // Highest depth seen in the interval
	Capacity atomic.Uint64 // Current ring size

	PushAttempts atomic.Uint64 // every Push call
	PushSuccess  atomic.Uint64
	PushFull     atomic.Uint64 // rejected at the limit
	PushWaits    atomic.Uint64 // times a blocking push had to wait for space

	PopSuccess atomic.Uint64
	PopWaits   atomic.Uint64 // times the consumer waited on an empty queue

	Grows   atomic.Uint64
	Shrinks atomic.Uint64
}
