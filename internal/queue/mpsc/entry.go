// Multi-producer single-consumer FIFO queue with power-of-two growth and a soft limit
package mpsc

import (
	"context"
	"errors"
	"fmt"

	"packetlog/internal/atomics"
	"packetlog/internal/global"
)

var ErrClosed = errors.New("queue is closed")

// Creates a new queue. limit 0 derives a limit from host memory.
func New[T any](namespace []string, initialCapacity int, limit int) (new *Queue[T], err error) {
	if initialCapacity < 2 || initialCapacity&(initialCapacity-1) != 0 {
		err = fmt.Errorf("capacity must be a power of two greater than or equal to 2")
		return
	}
	if limit < 0 {
		err = fmt.Errorf("limit must not be negative")
		return
	}
	if limit == 0 {
		limit = DefaultLimit(estimatedItemSize[T]())
	}

	new = &Queue[T]{
		Namespace:   append(append([]string(nil), namespace...), global.NSQueue),
		buf:         make([]T, initialCapacity),
		limit:       limit,
		minimumSize: initialCapacity,
		notEmpty:    make(chan struct{}, 1),
		notFull:     make(chan struct{}),
		Metrics:     &MetricStorage{},
	}
	new.Metrics.Capacity.Store(uint64(initialCapacity))
	return
}

// Attempts to append an element (false = at limit or closed)
func (queue *Queue[T]) Push(value T) (success bool) {
	queue.Metrics.PushAttempts.Add(1)

	queue.mutex.Lock()
	success = queue.pushLocked(value)
	queue.mutex.Unlock()

	if success {
		queue.signalNotEmpty()
	}
	return
}

// Appends an element, waiting for space while the queue is at its limit
func (queue *Queue[T]) PushBlocking(ctx context.Context, value T) (err error) {
	queue.Metrics.PushAttempts.Add(1)
	for {
		queue.mutex.Lock()
		if queue.closed {
			queue.mutex.Unlock()
			err = ErrClosed
			return
		}
		if queue.pushLocked(value) {
			queue.mutex.Unlock()
			queue.signalNotEmpty()
			return
		}
		queue.spaceWanted = true
		space := queue.notFull
		queue.mutex.Unlock()

		queue.Metrics.PushWaits.Add(1)
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-space:
		}
	}
}

// Returns once a push could succeed, without pushing. Callers that must take their own lock
// around Push wait here with that lock released, then retry.
func (queue *Queue[T]) WaitForSpace(ctx context.Context) (err error) {
	for {
		queue.mutex.Lock()
		if queue.closed {
			queue.mutex.Unlock()
			err = ErrClosed
			return
		}
		if queue.roomLocked() {
			queue.mutex.Unlock()
			return
		}
		queue.spaceWanted = true
		space := queue.notFull
		queue.mutex.Unlock()

		queue.Metrics.PushWaits.Add(1)
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-space:
		}
	}
}

// Reports whether a push would be accepted (caller holds the mutex)
func (queue *Queue[T]) roomLocked() (room bool) {
	if !queue.unbounded && queue.count >= queue.limit {
		return
	}
	room = queue.count < len(queue.buf) || queue.canGrow()
	return
}

func (queue *Queue[T]) pushLocked(value T) (success bool) {
	if queue.closed {
		return
	}
	if !queue.unbounded && queue.count >= queue.limit {
		queue.Metrics.PushFull.Add(1)
		return
	}
	if queue.count == len(queue.buf) && !queue.grow() {
		queue.Metrics.PushFull.Add(1)
		return
	}

	queue.buf[(queue.head+queue.count)&(len(queue.buf)-1)] = value
	queue.count++
	queue.Metrics.PushSuccess.Add(1)
	queue.recordDepth()
	success = true
	return
}

// Removes the oldest element, blocking until one is available.
// Returns false when ctx is cancelled or the queue is closed and empty.
func (queue *Queue[T]) Pop(ctx context.Context) (out T, success bool) {
	for {
		out, success = queue.TryPop()
		if success {
			return
		}

		queue.mutex.Lock()
		closed := queue.closed && queue.count == 0
		queue.mutex.Unlock()
		if closed {
			return
		}

		queue.Metrics.PopWaits.Add(1)
		select {
		case <-ctx.Done():
			return
		case <-queue.notEmpty:
		}
	}
}

// Removes the oldest element if there is one
func (queue *Queue[T]) TryPop() (out T, success bool) {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	if queue.count == 0 {
		return
	}

	var zero T
	out = queue.buf[queue.head]
	queue.buf[queue.head] = zero // release references held by the slot
	queue.head = (queue.head + 1) & (len(queue.buf) - 1)
	queue.count--
	queue.Metrics.PopSuccess.Add(1)
	queue.recordDepth()
	queue.shrink()
	queue.wakeProducers()

	success = true
	return
}

// Lifts (true) or restores (false) the length limit
func (queue *Queue[T]) SetUnbounded(unbounded bool) {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	queue.unbounded = unbounded
	if unbounded {
		queue.wakeProducers()
	}
}

// Stops accepting pushes. Queued elements can still be popped.
func (queue *Queue[T]) Close() {
	queue.mutex.Lock()
	queue.closed = true
	queue.wakeProducers()
	queue.mutex.Unlock()
	queue.signalNotEmpty()
}

func (queue *Queue[T]) Len() int {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	return queue.count
}

func (queue *Queue[T]) Limit() int {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	return queue.limit
}

// Non-blocking wake of the consumer (only one signal needs to be pending)
func (queue *Queue[T]) signalNotEmpty() {
	select {
	case queue.notEmpty <- struct{}{}:
	default:
	}
}

// Releases every producer waiting for space (caller holds the mutex)
func (queue *Queue[T]) wakeProducers() {
	if !queue.spaceWanted {
		return
	}
	queue.spaceWanted = false
	close(queue.notFull)
	queue.notFull = make(chan struct{})
}

func (queue *Queue[T]) recordDepth() {
	depth := uint64(queue.count)
	queue.Metrics.Depth.Store(depth)
	atomics.StoreMax(&queue.Metrics.MaxDepth, depth)
}
