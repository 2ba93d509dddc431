package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"packetlog/internal/global"
	"packetlog/internal/logctx"
)

type Daemon interface {
	Flush(ctx context.Context) (err error)
	Rotate(ctx context.Context) (err error)
	Close(ctx context.Context) (err error)
}

// Subscribes to the signals handled by SignalHandler. stop unsubscribes.
func Signals() (sigChan chan os.Signal, stop func()) {
	sigChan = make(chan os.Signal, 10)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)
	stop = func() { signal.Stop(sigChan) }
	return
}

// Handles incoming signals until shutdown is requested (signal or ctx), then closes the daemon.
// SIGHUP rotates output files, SIGUSR1 flushes them.
func SignalHandler(ctx context.Context, daemon Daemon, sigChan <-chan os.Signal, shutdownTimeout time.Duration) (err error) {
	ctx = logctx.AppendCtxTag(ctx, global.NSLifecycle)

	for {
		var sig os.Signal
		select {
		case <-ctx.Done():
			logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Context cancelled, shutting down\n")
		case sig = <-sigChan:
			logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Received signal: %v\n", sig)
		}

		switch sig {
		case syscall.SIGHUP:
			rotate(ctx, daemon, shutdownTimeout)
			continue
		case syscall.SIGUSR1:
			flushCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			flushErr := daemon.Flush(flushCtx)
			cancel()
			if flushErr != nil {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Flush failed: %v\n", flushErr)
			}
			continue
		}

		notifyErr := NotifyStopping(ctx)
		if notifyErr != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify stopping failed: %v\n", notifyErr)
		}

		// Parent may already be cancelled, shutdown gets its own deadline
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		err = daemon.Close(closeCtx)
		cancel()
		if err != nil {
			err = fmt.Errorf("shutdown incomplete: %w", err)
		}
		return
	}
}

func rotate(ctx context.Context, daemon Daemon, timeout time.Duration) {
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Beginning output rotation...\n")
	err := NotifyReloading(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify reload failed: %v\n", err)
	}

	rotateCtx, cancel := context.WithTimeout(ctx, timeout)
	err = daemon.Rotate(rotateCtx)
	cancel()
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Rotation failed: %v\n", err)
		err = NotifyStatus(ctx, "Rotation failed due to internal error. Check daemon logs.")
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify status failed: %v\n", err)
		}
	}

	err = NotifyReady(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify ready failed: %v\n", err)
	}
}
