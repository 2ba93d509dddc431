// Service manager integration for the agent daemon (signals and systemd notifications)
package lifecycle

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"packetlog/internal/global"
	"packetlog/internal/logctx"
)

// Sends READY=1 to systemd to indicate service startup complete.
func NotifyReady(ctx context.Context) (err error) {
	err = notify(ctx, stateReady)
	return
}

// Sends RELOADING=1 to indicate output rotation in progress.
// Must be followed by NotifyReady once done.
func NotifyReloading(ctx context.Context) (err error) {
	var ts unix.Timespec
	err = unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	if err != nil {
		return
	}

	usec := ts.Sec*1_000_000 + int64(ts.Nsec)/1_000

	err = notify(ctx, fmt.Sprintf("%s\nMONOTONIC_USEC=%d", stateReloading, usec))
	return
}

// Sends STOPPING=1 once shutdown has begun.
func NotifyStopping(ctx context.Context) (err error) {
	err = notify(ctx, stateStopping)
	return
}

// Sends custom status message to systemd for context.
func NotifyStatus(ctx context.Context, msg string) (err error) {
	err = notify(ctx, "STATUS="+msg)
	return
}

// Sends a raw sd_notify datagram.
// If NOTIFY_SOCKET is unset, this is a no-op and returns nil.
func notify(ctx context.Context, msg string) (err error) {
	sockPath := os.Getenv(EnvNameNotifySocket)
	if sockPath == "" {
		// Not running under systemd
		return
	}

	// Abstract namespace sockets are announced with a leading '@'
	if sockPath[0] == '@' {
		sockPath = "\x00" + sockPath[1:]
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		err = fmt.Errorf("notify socket failed: %w", err)
		return
	}
	defer unix.Close(fd)

	err = unix.Sendto(fd, []byte(msg), 0, &unix.SockaddrUnix{Name: sockPath})
	if err != nil {
		err = fmt.Errorf("notify write failed: %w", err)
		return
	}

	logctx.LogEvent(ctx, global.VerbosityData, global.InfoLog, "Notified systemd with message '%s'\n", msg)
	return
}
