package messenger

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"packetlog/internal/atomics"
	"packetlog/internal/global"
	"packetlog/internal/logctx"
)

// Single consumer: pops in FIFO order, writes runs of packets as a batch and runs commands
// once everything before them is processed
func (messenger *Messenger) dispatch() {
	defer close(messenger.exited)

	for {
		first, ok := messenger.queue.Pop(messenger.ctx)
		if !ok {
			messenger.abandon()
			return
		}

		batch := append(messenger.batch[:0], first)
		for first.command == 0 && len(batch) < messenger.cfg.MaxBatchSize {
			next, ok := messenger.queue.TryPop()
			if !ok {
				break
			}
			batch = append(batch, next)
			if next.command != 0 {
				break
			}
		}
		messenger.batch = batch
		atomics.StoreMax(&messenger.Metrics.MaxBatch, uint64(len(batch)))

		for _, item := range batch {
			if item.command != 0 {
				if messenger.runCommand(item) {
					clear(messenger.batch)
					return
				}
				continue
			}
			messenger.writeEntry(item)
		}
		clear(messenger.batch)

		// Committed writers are waiting on this batch
		if len(messenger.waiting) > 0 {
			messenger.flush()
		}
	}
}

// Writes one packet. Panics (dependency cycles, broken packets) drop only this packet.
func (messenger *Messenger) writeEntry(item *entry) {
	if item.done != nil {
		messenger.waiting = append(messenger.waiting, item)
	}

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if fatalError := recover(); fatalError != nil {
				messenger.Metrics.Panics.Add(1)
				logctx.LogEvent(messenger.ctx, global.VerbosityStandard, global.ErrorLog,
					"panic writing packet %d (%T): %v\n%s", item.sequence, item.pkt, fatalError, debug.Stack())
				err = fmt.Errorf("packet %d dropped: %v", item.sequence, fatalError)
			}
		}()
		err = messenger.backend.Write(messenger.ctx, item.pkt)
		return
	}()
	messenger.Metrics.WriteNanos.Add(uint64(time.Since(start).Nanoseconds()))

	if err != nil {
		messenger.Metrics.WriteErrors.Add(1)
		logctx.LogEvent(messenger.ctx, global.VerbosityStandard, global.WarnLog,
			"failed to write packet %d: %v\n", item.sequence, err)
		if messenger.epochErr == nil {
			messenger.epochErr = err
		}
		return
	}

	messenger.Metrics.Written.Add(1)
	messenger.dirty.Store(true)
	logctx.LogEvent(messenger.ctx, global.VerbosityData, global.InfoLog,
		"Wrote packet %d (%s)\n", item.sequence, item.pkt.Definition().TypeName)

	messenger.checkThresholds()
}

// Executes a command. Returns true once the dispatch goroutine must stop.
func (messenger *Messenger) runCommand(item *entry) (stop bool) {
	logctx.LogEvent(messenger.ctx, global.VerbosityDebug, global.InfoLog,
		"Running command %s (sequence %d)\n", item.command, item.sequence)

	var err error
	switch item.command {
	case CommandFlush:
		err = messenger.flush()
		if err == nil {
			messenger.checkThresholds()
		}
	case CommandCloseFile:
		err = messenger.maintain(true)
	case CommandShutdown:
		err = messenger.flush()
		closeErr := messenger.closeBackend()
		if err == nil {
			err = closeErr
		}
		stop = true
	default:
		err = fmt.Errorf("unknown command %d", item.command)
	}

	if item.done != nil {
		item.done <- err
	}
	return
}

// Flushes the backend and completes the current epoch's committed writers
func (messenger *Messenger) flush() (err error) {
	flushErr := messenger.backend.Flush(messenger.ctx)
	messenger.Metrics.Flushes.Add(1)
	if flushErr != nil {
		messenger.Metrics.FlushErrors.Add(1)
		logctx.LogEvent(messenger.ctx, global.VerbosityStandard, global.WarnLog,
			"failed to flush: %v\n", flushErr)
		flushErr = fmt.Errorf("failed to flush: %w", flushErr)
	}

	err = errors.Join(messenger.epochErr, flushErr)
	for _, waiter := range messenger.waiting {
		waiter.done <- err
		messenger.Metrics.Commits.Add(1)
	}
	clear(messenger.waiting)
	messenger.waiting = messenger.waiting[:0]
	messenger.epochErr = nil
	messenger.dirty.Store(false)
	return
}

// Starts maintenance when the backend passed its size or age limit
func (messenger *Messenger) checkThresholds() {
	if messenger.State() == Exiting {
		return
	}
	measured, ok := messenger.backend.(Measured)
	if !ok {
		return
	}

	due := messenger.cfg.MaxSize > 0 && measured.Size() >= messenger.cfg.MaxSize
	if !due && messenger.cfg.MaxDuration > 0 && !measured.OpenedAt().IsZero() {
		due = time.Since(measured.OpenedAt()) >= messenger.cfg.MaxDuration
	}
	if !due {
		return
	}

	err := messenger.maintain(false)
	if err != nil {
		logctx.LogEvent(messenger.ctx, global.VerbosityStandard, global.WarnLog,
			"scheduled maintenance failed: %v\n", err)
	}
}

// Flushes and rolls the backend over. Producers may enqueue without limit meanwhile.
func (messenger *Messenger) maintain(requested bool) (err error) {
	if !requested && messenger.State() == Exiting {
		return
	}

	entered := messenger.state.CompareAndSwap(int32(Running), int32(Maintenance))
	messenger.queue.SetUnbounded(true)
	defer func() {
		if messenger.State() != Exiting {
			messenger.queue.SetUnbounded(false)
		}
		if entered {
			messenger.state.CompareAndSwap(int32(Maintenance), int32(Running))
		}
	}()

	logctx.LogEvent(messenger.ctx, global.VerbosityProgress, global.InfoLog, "Starting maintenance\n")

	err = messenger.flush()
	if err != nil {
		// Rollover still goes ahead so a broken file is left behind
		logctx.LogEvent(messenger.ctx, global.VerbosityStandard, global.WarnLog,
			"flush before maintenance failed: %v\n", err)
	}

	maintErr := messenger.backend.Maintenance(messenger.ctx)
	messenger.Metrics.Maintenances.Add(1)
	if maintErr != nil {
		err = fmt.Errorf("failed to perform backend maintenance: %w", maintErr)
		return
	}

	logctx.LogEvent(messenger.ctx, global.VerbosityProgress, global.InfoLog, "Finished maintenance\n")
	return
}

func (messenger *Messenger) closeBackend() (err error) {
	err = messenger.backend.Close(messenger.ctx)
	messenger.state.Store(int32(Closed))
	if err != nil {
		logctx.LogEvent(messenger.ctx, global.VerbosityStandard, global.ErrorLog,
			"failed to close backend: %v\n", err)
		err = fmt.Errorf("failed to close backend: %w", err)
		return
	}
	logctx.LogEvent(messenger.ctx, global.VerbosityProgress, global.InfoLog, "Closed messenger\n")
	return
}

// Dispatch was cancelled before the shutdown command ran: fail everything still waiting
func (messenger *Messenger) abandon() {
	messenger.queue.Close()
	for {
		item, ok := messenger.queue.TryPop()
		if !ok {
			break
		}
		if item.done != nil {
			item.done <- ErrClosed
		}
	}
	for _, waiter := range messenger.waiting {
		waiter.done <- ErrClosed
	}
	messenger.waiting = nil

	if messenger.State() != Closed {
		_ = messenger.closeBackend()
	}
}
