package logfile

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"packetlog/internal/global"
	"packetlog/internal/logctx"
)

const (
	fileEvents = unix.IN_MODIFY | unix.IN_CLOSE_WRITE
	dirEvents  = unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_DELETE | unix.IN_CREATE

	watchPollTimeout = 500 // milliseconds between cancellation checks
)

// Signals changes to the log file and its replacement under the same path.
// Returns on cancellation or when inotify is unavailable (the reader then relies on polling).
func watcher(ctx context.Context, logFileInput string, fileHasChanged chan bool, fileHasRotated chan bool) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "failed to initialize inotify, falling back to polling: %v\n", err)
		return
	}
	defer unix.Close(fd)

	watchDescriptorFile, err := unix.InotifyAddWatch(fd, logFileInput, fileEvents)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "failed to add log file '%s' to inotify watcher: %v\n", logFileInput, err)
		return
	}
	defer func() {
		_, _ = unix.InotifyRmWatch(fd, uint32(watchDescriptorFile))
	}()

	logDirectory := filepath.Dir(logFileInput)
	watchDescriptorDir, err := unix.InotifyAddWatch(fd, logDirectory, dirEvents)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "failed to add directory '%s' to inotify watcher: %v\n", logDirectory, err)
		return
	}
	defer func() {
		_, _ = unix.InotifyRmWatch(fd, uint32(watchDescriptorDir))
	}()

	buf := make([]byte, unix.SizeofInotifyEvent+8192)
	logFileName := filepath.Base(logFileInput)
	pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for {
		if ctx.Err() != nil {
			return
		}

		ready, err := unix.Poll(pollFds, watchPollTimeout)
		if err != nil && !errors.Is(err, unix.EINTR) {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "error polling inotify descriptor: %v\n", err)
			return
		}
		if ready <= 0 {
			continue
		}

		n, err := unix.Read(fd, buf)
		if errors.Is(err, unix.EAGAIN) {
			continue
		}
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "error reading inotify event: %v\n", err)
			continue
		}

		var offset int
		for offset+unix.SizeofInotifyEvent <= n {
			var event unix.InotifyEvent
			err = binary.Read(bytes.NewReader(buf[offset:offset+unix.SizeofInotifyEvent]), binary.NativeEndian, &event)
			if err != nil {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "failed to read event content: %v\n", err)
				break
			}

			// Name field has the filename for dir events (null-terminated)
			nameStart := offset + unix.SizeofInotifyEvent
			nameEnd := min(nameStart+int(event.Len), n)
			name := strings.TrimRight(string(buf[nameStart:nameEnd]), "\x00")

			if event.Mask&unix.IN_MODIFY != 0 && event.Wd == int32(watchDescriptorFile) {
				notify(fileHasChanged)
			}

			if event.Wd == int32(watchDescriptorDir) && name == logFileName && event.Mask&dirEvents != 0 {
				_, _ = unix.InotifyRmWatch(fd, uint32(watchDescriptorFile))

				watchDescriptorFile, err = rewatch(ctx, fd, logFileInput)
				if err != nil {
					logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "failed to add rotated log file to inotify watcher: %v\n", err)
				} else {
					notify(fileHasRotated)
					notify(fileHasChanged)
				}
			}

			offset = nameEnd
		}
	}
}

// Watches the file now at path, retrying while it is being recreated
func rewatch(ctx context.Context, fd int, path string) (watchDescriptor int, err error) {
	const maxRetries = 5
	delay := 100 * time.Millisecond

	for range maxRetries {
		watchDescriptor, err = unix.InotifyAddWatch(fd, path, fileEvents)
		if err == nil {
			return
		}

		// Errors not solved by waiting
		if !errors.Is(err, unix.EACCES) && !errors.Is(err, unix.EPERM) && !errors.Is(err, unix.ENOENT) {
			return
		}

		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
	return
}

func notify(signal chan bool) {
	select {
	case signal <- true:
	default:
	}
}
