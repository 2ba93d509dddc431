package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"packetlog/internal/global"
	"packetlog/internal/logctx"
	"packetlog/pkg/packet"
)

// Creates the folder and the first file of the session
func (mod *OutModule) Open(ctx context.Context) (err error) {
	err = os.MkdirAll(mod.opts.Folder, 0750)
	if err != nil {
		err = fmt.Errorf("failed to create session folder '%s': %w", mod.opts.Folder, err)
		return
	}
	err = mod.openFile(ctx)
	return
}

// Serializes one packet into the current file's stream
func (mod *OutModule) Write(ctx context.Context, pkt packet.Packet) (err error) {
	if mod.writer == nil {
		err = fmt.Errorf("session file is not open")
		return
	}

	err = mod.writer.Write(pkt)
	if err != nil {
		err = fmt.Errorf("failed to serialize %s packet: %w", pkt.Definition().TypeName, err)
		return
	}
	mod.Metrics.PacketsWritten.Add(1)

	if mod.writer.Pending() >= pendingFlushBytes {
		err = mod.drain()
	}
	mod.pending.Store(int64(mod.writer.Pending()))
	return
}

// Moves buffered packets to disk and syncs the file
func (mod *OutModule) Flush(ctx context.Context) (err error) {
	if mod.file == nil {
		err = fmt.Errorf("session file is not open")
		return
	}

	err = mod.drain()
	if err != nil {
		return
	}
	if mod.compressor != nil {
		err = mod.compressor.Flush()
		if err != nil {
			err = fmt.Errorf("failed to flush compressed stream: %w", err)
			return
		}
	}
	err = mod.counter.dst.Flush()
	if err != nil {
		err = fmt.Errorf("failed to write session file: %w", err)
		return
	}
	mod.size.Store(mod.counter.written)

	err = mod.file.Sync()
	if err != nil {
		err = fmt.Errorf("failed to sync session file: %w", err)
		return
	}
	mod.Metrics.Syncs.Add(1)
	return
}

// Closes the current file and starts the next one of the session
func (mod *OutModule) Maintenance(ctx context.Context) (err error) {
	closeErr := mod.closeFile(ctx)
	if closeErr != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"failed to cleanly close session file before rollover: %v\n", closeErr)
	}

	mod.sequence++
	err = mod.openFile(ctx)
	if err != nil {
		err = errors.Join(closeErr, err)
	}
	return
}

func (mod *OutModule) Close(ctx context.Context) (err error) {
	err = mod.closeFile(ctx)
	return
}

// Bytes in the current file including packets not yet handed to it
func (mod *OutModule) Size() int64 {
	return mod.size.Load() + mod.pending.Load()
}

func (mod *OutModule) OpenedAt() (opened time.Time) {
	nanos := mod.openedAt.Load()
	if nanos != 0 {
		opened = time.Unix(0, nanos)
	}
	return
}

func (mod *OutModule) openFile(ctx context.Context) (err error) {
	now := time.Now()
	mod.header = SessionHeader{
		FormatVersion: FormatVersion,
		SessionID:     mod.opts.SessionID,
		FileID:        uuid.New(),
		FileSequence:  mod.sequence,
		Product:       mod.opts.Product,
		Application:   mod.opts.Application,
		SessionName:   mod.opts.SessionName,
		Hostname:      mod.opts.Hostname,
		PID:           mod.opts.PID,
		StartTime:     now,
	}
	if mod.opts.Compress {
		mod.header.Compression = CompressionZstd
	}

	path := filepath.Join(mod.opts.Folder, FileName(mod.header, global.SessionFileExt))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0640)
	if err != nil {
		err = fmt.Errorf("failed to create session file: %w", err)
		return
	}

	counter := &countingWriter{dst: bufio.NewWriterSize(file, pendingFlushBytes)}
	_, err = writeHeader(counter, mod.header)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return
	}

	mod.file = file
	mod.counter = counter
	mod.sink = counter
	mod.compressor = nil
	if mod.opts.Compress {
		mod.compressor, err = zstd.NewWriter(counter, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
		if err != nil {
			_ = file.Close()
			_ = os.Remove(path)
			mod.file = nil
			err = fmt.Errorf("failed to create compressor: %w", err)
			return
		}
		mod.sink = mod.compressor
	}
	mod.writer = packet.NewWriter()

	mod.path.Store(&path)
	mod.size.Store(counter.written)
	mod.pending.Store(0)
	mod.openedAt.Store(now.UnixNano())
	mod.Metrics.FilesOpened.Add(1)

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "Opened session file %s\n", path)
	return
}

func (mod *OutModule) closeFile(ctx context.Context) (err error) {
	if mod.file == nil {
		return
	}

	err = mod.drain()
	if mod.compressor != nil {
		err = errors.Join(err, mod.compressor.Close())
	}
	err = errors.Join(err, mod.counter.dst.Flush())
	mod.size.Store(mod.counter.written)
	err = errors.Join(err, mod.file.Sync(), mod.file.Close())

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
		"Closed session file %s (%d bytes)\n", mod.CurrentPath(), mod.counter.written)

	mod.file = nil
	mod.compressor = nil
	mod.writer = nil
	if err != nil {
		err = fmt.Errorf("failed to close session file: %w", err)
	}
	return
}

// Hands buffered packet bytes to the (compressing) file writer
func (mod *OutModule) drain() (err error) {
	before := mod.counter.written
	_, err = mod.writer.Flush(mod.sink)
	mod.Metrics.BytesWritten.Add(uint64(mod.counter.written - before))
	mod.size.Store(mod.counter.written)
	mod.pending.Store(int64(mod.writer.Pending()))
	if err != nil {
		err = fmt.Errorf("failed to write packets to session file: %w", err)
	}
	return
}
