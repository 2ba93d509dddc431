package mpsc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		limit     int
		expectErr bool
	}{
		{"valid", 8, 100, false},
		{"derived limit", 8, 0, false},
		{"not power of two", 6, 100, true},
		{"too small", 1, 100, true},
		{"negative limit", 8, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := New[int]([]string{"test"}, tt.capacity, tt.limit)
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Limit() <= 0 {
				t.Fatalf("expected positive limit, got %d", q.Limit())
			}
		})
	}
}

func TestFIFOAcrossGrowthAndShrink(t *testing.T) {
	q, err := New[int](nil, 2, 10000)
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	// Interleave to force wrap-around before growth
	next := 0
	for i := 0; i < 1000; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d failed", i)
		}
		if i%3 == 0 {
			v, ok := q.TryPop()
			if !ok || v != next {
				t.Fatalf("expected %d, got %d (ok=%v)", next, v, ok)
			}
			next++
		}
	}
	if q.Metrics.Grows.Load() == 0 {
		t.Fatal("expected ring to grow")
	}

	for next < 1000 {
		v, ok := q.Pop(context.Background())
		if !ok || v != next {
			t.Fatalf("expected %d, got %d (ok=%v)", next, v, ok)
		}
		next++
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Len())
	}
	if q.Metrics.Capacity.Load() != 2 {
		t.Fatalf("expected ring to shrink back to 2, got %d", q.Metrics.Capacity.Load())
	}
}

func TestLimitAndUnbounded(t *testing.T) {
	q, _ := New[int](nil, 4, 3)
	for i := 0; i < 3; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d failed below limit", i)
		}
	}
	if q.Push(3) {
		t.Fatal("expected push at limit to fail")
	}

	q.SetUnbounded(true)
	for i := 3; i < 20; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d failed while unbounded", i)
		}
	}
	q.SetUnbounded(false)
	if q.Push(99) {
		t.Fatal("expected push over limit to fail once bounded again")
	}
	if q.Len() != 20 {
		t.Fatalf("expected 20 queued, got %d", q.Len())
	}
}

func TestPushBlockingWaitsForSpace(t *testing.T) {
	q, _ := New[int](nil, 2, 1)
	q.Push(1)

	done := make(chan error, 1)
	go func() {
		done <- q.PushBlocking(context.Background(), 2)
	}()

	select {
	case err := <-done:
		t.Fatalf("push returned before space was available: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if v, _ := q.TryPop(); v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked push was not released")
	}
	if v, _ := q.TryPop(); v != 2 {
		t.Fatalf("expected 2, got %d", v)
	}
}

func TestPushBlockingReleasedByUnbounded(t *testing.T) {
	q, _ := New[int](nil, 2, 1)
	q.Push(1)

	done := make(chan error, 1)
	go func() {
		done <- q.PushBlocking(context.Background(), 2)
	}()
	time.Sleep(20 * time.Millisecond)
	q.SetUnbounded(true)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked push was not released by lifting the limit")
	}
}

func TestPushBlockingContextAndClose(t *testing.T) {
	q, _ := New[int](nil, 2, 1)
	q.Push(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.PushBlocking(ctx, 2)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	q.Close()
	err = q.PushBlocking(context.Background(), 3)
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	// Remaining element still drains, then Pop reports closed
	v, ok := q.Pop(context.Background())
	if !ok || v != 1 {
		t.Fatalf("expected to drain 1, got %d (ok=%v)", v, ok)
	}
	_, ok = q.Pop(context.Background())
	if ok {
		t.Fatal("expected pop on closed empty queue to fail")
	}
}

func TestWaitForSpace(t *testing.T) {
	q, _ := New[int](nil, 2, 1)
	if err := q.WaitForSpace(context.Background()); err != nil {
		t.Fatalf("empty queue should have space: %v", err)
	}
	q.Push(1)

	done := make(chan error, 1)
	go func() {
		done <- q.WaitForSpace(context.Background())
	}()
	select {
	case err := <-done:
		t.Fatalf("wait returned while the queue was full: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	q.TryPop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait was not released by a pop")
	}
	if q.Len() != 0 {
		t.Fatalf("wait must not push, queue holds %d", q.Len())
	}

	q.Push(2)
	go func() {
		done <- q.WaitForSpace(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)
	q.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait was not released by close")
	}
}

func TestPopWakesOnPush(t *testing.T) {
	q, _ := New[string](nil, 4, 100)

	got := make(chan string, 1)
	go func() {
		v, _ := q.Pop(context.Background())
		got <- v
	}()
	time.Sleep(20 * time.Millisecond)
	q.Push("hello")

	select {
	case v := <-got:
		if v != "hello" {
			t.Fatalf("expected hello, got %q", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer was not woken")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := q.Pop(ctx); ok {
		t.Fatal("expected cancelled pop to fail")
	}
}

func TestConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	const producers = 8
	const perProducer = 2000

	type item struct{ producer, seq int }
	q, _ := New[item](nil, 16, producers*perProducer)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.PushBlocking(context.Background(), item{p, i}); err != nil {
					t.Errorf("push failed: %v", err)
					return
				}
			}
		}(p)
	}

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	for n := 0; n < producers*perProducer; n++ {
		it, ok := q.Pop(context.Background())
		if !ok {
			t.Fatal("pop failed")
		}
		if it.seq != last[it.producer]+1 {
			t.Fatalf("producer %d: expected seq %d, got %d", it.producer, last[it.producer]+1, it.seq)
		}
		last[it.producer] = it.seq
	}
	wg.Wait()
}

func TestPowerOfTwoHelpers(t *testing.T) {
	tests := []struct {
		in, next, prev int
	}{
		{0, 1, 0},
		{1, 1, 0},
		{2, 2, 1},
		{3, 4, 2},
		{1000, 1024, 512},
		{1024, 1024, 512},
	}
	for _, tt := range tests {
		if got := nextPowerOfTwo(tt.in); got != tt.next {
			t.Fatalf("nextPowerOfTwo(%d): expected %d, got %d", tt.in, tt.next, got)
		}
		if got := prevPowerOfTwo(tt.in); got != tt.prev {
			t.Fatalf("prevPowerOfTwo(%d): expected %d, got %d", tt.in, tt.prev, got)
		}
	}
}
