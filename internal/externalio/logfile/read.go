package logfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"packetlog/internal/global"
	"packetlog/internal/logctx"
	"packetlog/internal/queue/mpsc"
)

// Rescan interval when no change notification arrives
const pollInterval = time.Second

// Tails the file until ctx is cancelled or the outbox closes.
// Only complete lines are consumed; the position after the last one is saved on return.
func (mod *InModule) Run(ctx context.Context) {
	ctx = logctx.OverwriteCtxTag(ctx, mod.Namespace)
	defer mod.sink.Close()

	logFileInode, logFileOffset, err := GetLastPosition(mod.filePath, mod.stateFile)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "failed to get position of last source file read for '%s': %v\n", mod.filePath, err)
	}
	if logFileInode == 0 {
		logFileInode, _ = inodeOf(mod.filePath)
	}

	_, err = mod.sink.Seek(logFileOffset, io.SeekStart)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "failed to resume last source file read position for '%s': %v\n", mod.filePath, err)
		logFileOffset = 0
	}

	fileHasChanged := make(chan bool, 1) // Main blocker for reading new lines
	fileHasRotated := make(chan bool, 1) // Notify when to switch file inode and reset offset
	go watcher(ctx, mod.filePath, fileHasChanged, fileHasRotated)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	defer func() {
		err := SavePosition(mod.stateFile, logFileInode, logFileOffset)
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"failed to save position in file source '%s': %v\n", mod.filePath, err)
		}
	}()

	reader := bufio.NewReaderSize(mod.sink, 65536)
	for {
		consumed, err := mod.readLines(ctx, reader)
		logFileOffset += consumed
		if errors.Is(err, mpsc.ErrClosed) || ctx.Err() != nil {
			return
		}
		if err != nil {
			mod.Metrics.ReadErrors.Add(1)
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "read error: %v\n", err)
		}

		// Block until file change, file rotation, or cancellation
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if rotated(mod.filePath, logFileInode) {
				mod.reopen(ctx, &logFileInode, &logFileOffset)
			}
		case <-fileHasChanged:
		case <-fileHasRotated:
			mod.reopen(ctx, &logFileInode, &logFileOffset)
		}

		// Truncated in place
		info, err := mod.sink.Stat()
		if err == nil && info.Size() < logFileOffset {
			logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "Source file '%s' truncated, reading from start\n", mod.filePath)
			logFileOffset = 0
		}

		// Re-scan for new lines after the last complete line
		_, err = mod.sink.Seek(logFileOffset, io.SeekStart)
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "failed to seek to last offset: %v\n", err)
		}
		reader.Reset(mod.sink)
	}
}

// Reads and forwards every complete line available. consumed counts the bytes of forwarded lines.
func (mod *InModule) readLines(ctx context.Context, reader *bufio.Reader) (consumed int64, err error) {
	for {
		var line []byte
		line, err = reader.ReadBytes('\n')
		if len(line) == 0 || line[len(line)-1] != '\n' {
			// Partial line stays in the file until its newline is written
			if err == io.EOF {
				err = nil
			}
			return
		}
		mod.Metrics.LinesRead.Add(1)

		msg := parseLine(string(line[:len(line)-1]), mod.defaults)
		err = mod.outbox.PushBlocking(ctx, msg)
		if err != nil {
			return
		}
		mod.Metrics.Success.Add(1)
		consumed += int64(len(line))
	}
}

func (mod *InModule) reopen(ctx context.Context, inode *uint64, offset *int64) {
	file, err := os.Open(mod.filePath)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "failed to reopen rotated log file: %v\n", err)
		return
	}
	newInode, err := inodeOf(mod.filePath)
	if err != nil {
		file.Close()
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "unable to stat new source file: %v\n", err)
		return
	}
	if newInode == *inode {
		// Already reading this file
		file.Close()
		return
	}

	mod.sink.Close()
	mod.sink = file
	*inode = newInode
	*offset = 0
	mod.Metrics.Rotations.Add(1)
	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "Source file '%s' rotated, reading new file\n", mod.filePath)
}

func rotated(path string, inode uint64) (changed bool) {
	current, err := inodeOf(path)
	if err != nil {
		return
	}
	changed = current != inode
	return
}

func inodeOf(path string) (inode uint64, err error) {
	var stat unix.Stat_t
	err = unix.Stat(path, &stat)
	if err != nil {
		err = fmt.Errorf("failed to stat '%s': %w", path, err)
		return
	}
	inode = stat.Ino
	return
}
