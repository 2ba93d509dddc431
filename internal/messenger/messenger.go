// Asynchronous dispatch of packets from many producers to a single backend
package messenger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"packetlog/internal/global"
	"packetlog/internal/logctx"
	"packetlog/internal/queue/mpsc"
	"packetlog/pkg/packet"
)

// Creates a messenger in the Created state. Logging uses the logger carried by ctx.
func New(ctx context.Context, namespace []string, cfg Config, backend Backend) (new *Messenger, err error) {
	if backend == nil {
		err = fmt.Errorf("messenger requires a backend")
		return
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = global.DefaultMaxBatchSize
	}
	if cfg.MaxSize < 0 || cfg.MaxDuration < 0 || cfg.AutoFlushInterval < 0 {
		err = fmt.Errorf("messenger thresholds must not be negative")
		return
	}

	new = &Messenger{
		Namespace: append(append([]string(nil), namespace...), global.NSMessenger),
		cfg:       cfg,
		backend:   backend,
		exited:    make(chan struct{}),
		Metrics:   &MetricStorage{},
	}

	new.queue, err = mpsc.New[*entry](new.Namespace, global.DefaultMinQueueSize, cfg.QueueLimit)
	if err != nil {
		err = fmt.Errorf("failed to create messenger queue: %w", err)
		return
	}

	new.ctx, new.cancel = context.WithCancel(logctx.WithLogger(context.Background(), logctx.GetLogger(ctx)))
	new.ctx = logctx.OverwriteCtxTag(new.ctx, new.Namespace)
	return
}

// Opens the backend and starts the dispatch goroutine
func (messenger *Messenger) Start() (err error) {
	if !messenger.state.CompareAndSwap(int32(Created), int32(Initialized)) {
		err = fmt.Errorf("messenger cannot start from state %s", messenger.State())
		return
	}

	err = messenger.backend.Open(messenger.ctx)
	if err != nil {
		messenger.finishEarlyClose()
		err = fmt.Errorf("failed to open backend: %w", err)
		return
	}

	if !messenger.state.CompareAndSwap(int32(Initialized), int32(Running)) {
		// Close ran while the backend was opening
		_ = messenger.backend.Close(messenger.ctx)
		messenger.finishEarlyClose()
		err = ErrClosed
		return
	}
	go messenger.dispatch()
	if messenger.cfg.AutoFlushInterval > 0 {
		go messenger.autoFlush(messenger.cfg.AutoFlushInterval)
	}

	logctx.LogEvent(messenger.ctx, global.VerbosityProgress, global.InfoLog, "Started messenger\n")
	return
}

// Ends a messenger whose dispatch goroutine never ran
func (messenger *Messenger) finishEarlyClose() {
	messenger.state.Store(int32(Closed))
	messenger.queue.Close()
	close(messenger.exited)
	messenger.cancel()
}

func (messenger *Messenger) State() State {
	return State(messenger.state.Load())
}

// Enqueues pkt. Queued mode returns once the packet is queued (waiting for space when the queue
// is at its limit). WaitForCommit returns after the packet and everything enqueued before it was
// flushed, with the error of that flush epoch if any write or the flush failed.
func (messenger *Messenger) Write(ctx context.Context, pkt packet.Packet, mode WriteMode) (err error) {
	pending, err := messenger.Submit(ctx, pkt, mode)
	if err != nil {
		return
	}
	err = pending.Wait(ctx)
	return
}

// Handle of a submitted write
type Pending struct {
	messenger *Messenger
	item      *entry
}

// Enqueues pkt and returns without waiting for a commit.
// Lets a caller enqueue into several messengers in one order and wait afterwards.
func (messenger *Messenger) Submit(ctx context.Context, pkt packet.Packet, mode WriteMode) (pending Pending, err error) {
	if pkt == nil {
		err = fmt.Errorf("cannot write nil packet")
		return
	}

	item := &entry{pkt: pkt, mode: mode}
	if mode == WaitForCommit {
		item.done = make(chan error, 1)
	}

	err = messenger.enqueue(ctx, item)
	if err != nil {
		return
	}
	pending = Pending{messenger: messenger, item: item}
	return
}

// Blocks until a WaitForCommit write is committed. Queued writes return immediately.
func (pending Pending) Wait(ctx context.Context) (err error) {
	if pending.item == nil || pending.item.done == nil {
		return
	}
	err = pending.messenger.wait(ctx, pending.item)
	return
}

// Writes everything enqueued so far to durable storage
func (messenger *Messenger) Flush(ctx context.Context) (err error) {
	err = messenger.command(ctx, CommandFlush)
	return
}

// Closes the current output and starts a new one once everything enqueued so far was written
func (messenger *Messenger) CloseFile(ctx context.Context) (err error) {
	err = messenger.command(ctx, CommandCloseFile)
	return
}

// Drains the queue, flushes and closes the backend.
// Returns ctx's error if the drain does not finish in time; the dispatch goroutine is then abandoned.
func (messenger *Messenger) Close(ctx context.Context) (err error) {
	messenger.enqueueMutex.Lock()
	state := messenger.State()
	switch state {
	case Created:
		messenger.finishEarlyClose()
		messenger.enqueueMutex.Unlock()
		return
	case Exiting, Closed:
		messenger.enqueueMutex.Unlock()
		select {
		case <-messenger.exited:
		case <-ctx.Done():
			err = ctx.Err()
		}
		return
	}

	messenger.state.Store(int32(Exiting))
	item := &entry{command: CommandShutdown, done: make(chan error, 1)}
	messenger.sequence++
	item.sequence = messenger.sequence

	// Shutdown must get in regardless of the limit
	messenger.queue.SetUnbounded(true)
	messenger.queue.Push(item)
	messenger.queue.Close()
	messenger.enqueueMutex.Unlock()

	logctx.LogEvent(messenger.ctx, global.VerbosityProgress, global.InfoLog, "Shutting down messenger\n")

	select {
	case err = <-item.done:
		<-messenger.exited
	case <-messenger.exited:
	case <-ctx.Done():
		err = fmt.Errorf("messenger did not drain before shutdown deadline: %w", ctx.Err())
		messenger.cancel()
	}
	return
}

// Pushes item, waiting for space while the queue is at its limit.
// The enqueue lock is never held during the wait so Close can always get in.
func (messenger *Messenger) enqueue(ctx context.Context, item *entry) (err error) {
	for {
		var pushed bool
		pushed, err = messenger.tryEnqueue(item)
		if err != nil || pushed {
			return
		}

		// Limit is lifted during maintenance, otherwise producers wait for space
		err = messenger.queue.WaitForSpace(ctx)
		if errors.Is(err, mpsc.ErrClosed) {
			err = ErrClosed
		}
		if err != nil {
			return
		}
	}
}

// Assigns the sequence and pushes under one lock so queue order equals sequence order.
// The sequence and the packet stamp are only kept when the push succeeded.
func (messenger *Messenger) tryEnqueue(item *entry) (pushed bool, err error) {
	messenger.enqueueMutex.Lock()
	defer messenger.enqueueMutex.Unlock()

	switch messenger.State() {
	case Created:
		err = ErrNotStarted
		return
	case Exiting, Closed:
		err = ErrClosed
		return
	}

	item.sequence = messenger.sequence + 1

	var stamped packet.Sequenced
	var previous packet.Header
	if seq, ok := item.pkt.(packet.Sequenced); ok && seq.PacketHeader().Sequence == 0 {
		stamped, previous = seq, seq.PacketHeader()
		stamped.Stamp(int64(item.sequence), time.Now())
	}

	pushed = messenger.queue.Push(item)
	if !pushed {
		if stamped != nil {
			stamped.RestoreHeader(previous)
		}
		return
	}
	messenger.sequence = item.sequence
	if item.pkt != nil {
		messenger.Metrics.Enqueued.Add(1)
	}
	return
}

func (messenger *Messenger) command(ctx context.Context, cmd Command) (err error) {
	item := &entry{command: cmd, done: make(chan error, 1)}
	err = messenger.enqueue(ctx, item)
	if err != nil {
		return
	}
	err = messenger.wait(ctx, item)
	return
}

func (messenger *Messenger) wait(ctx context.Context, item *entry) (err error) {
	select {
	case err = <-item.done:
	case <-ctx.Done():
		err = ctx.Err()
	case <-messenger.exited:
		// Completed during the final drain or abandoned
		select {
		case err = <-item.done:
		default:
			err = ErrClosed
		}
	}
	return
}

// Queues a flush on every tick that follows writes
func (messenger *Messenger) autoFlush(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-messenger.exited:
			return
		case <-ticker.C:
		}
		if !messenger.dirty.Load() {
			continue
		}

		messenger.enqueueMutex.Lock()
		state := messenger.State()
		if state == Running || state == Maintenance {
			messenger.sequence++
			item := &entry{sequence: messenger.sequence, command: CommandFlush}
			if !messenger.queue.Push(item) {
				messenger.sequence--
			}
		}
		messenger.enqueueMutex.Unlock()
	}
}
