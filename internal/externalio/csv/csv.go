// Flat CSV output: one row per log message, rolled over like session files
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"packetlog/internal/externalio/file"
	"packetlog/internal/global"
	"packetlog/internal/logctx"
	"packetlog/pkg/packet"
	"packetlog/pkg/packets"
)

var columns = []string{
	"Sequence", "Timestamp", "Severity", "ThreadIndex", "ThreadName", "Category",
	"Caption", "Description", "Details", "MethodName", "FileName", "LineNumber", "Tags",
}

type Options struct {
	Folder      string
	Product     string
	Application string
	SessionID   uuid.UUID // zero generates one
}

type OutModule struct {
	Namespace []string
	opts      Options
	sessionID uuid.UUID

	file     *os.File
	counter  *countingWriter
	writer   *csv.Writer
	sequence int
	path     string

	size     atomic.Int64
	openedAt atomic.Int64

	RowsWritten    atomic.Uint64
	PacketsSkipped atomic.Uint64
}

type countingWriter struct {
	dst     *os.File
	written int64
}

func (counter *countingWriter) Write(p []byte) (n int, err error) {
	n, err = counter.dst.Write(p)
	counter.written += int64(n)
	return
}

func NewOutput(namespace []string, opts Options) (module *OutModule, err error) {
	if opts.Folder == "" {
		err = fmt.Errorf("csv output requires a folder")
		return
	}
	if opts.Product == "" {
		opts.Product = global.DefaultProduct
	}
	if opts.Application == "" {
		opts.Application = global.DefaultApplication
	}

	if opts.SessionID == uuid.Nil {
		opts.SessionID = uuid.New()
	}

	module = &OutModule{
		Namespace: append(append([]string(nil), namespace...), global.NSoCSV),
		opts:      opts,
		sessionID: opts.SessionID,
	}
	return
}

func (mod *OutModule) Open(ctx context.Context) (err error) {
	err = os.MkdirAll(mod.opts.Folder, 0750)
	if err != nil {
		err = fmt.Errorf("failed to create csv folder '%s': %w", mod.opts.Folder, err)
		return
	}
	err = mod.openFile(ctx)
	return
}

// Appends a row for log messages, other packets are skipped
func (mod *OutModule) Write(ctx context.Context, pkt packet.Packet) (err error) {
	msg, ok := pkt.(*packets.LogMessage)
	if !ok {
		mod.PacketsSkipped.Add(1)
		return
	}
	if mod.writer == nil {
		err = fmt.Errorf("csv file is not open")
		return
	}

	err = mod.writer.Write(Row(msg))
	if err != nil {
		err = fmt.Errorf("failed to write csv row: %w", err)
		return
	}
	mod.RowsWritten.Add(1)
	return
}

func (mod *OutModule) Flush(ctx context.Context) (err error) {
	if mod.writer == nil {
		err = fmt.Errorf("csv file is not open")
		return
	}
	mod.writer.Flush()
	err = mod.writer.Error()
	mod.size.Store(mod.counter.written)
	if err != nil {
		err = fmt.Errorf("failed to flush csv rows: %w", err)
		return
	}
	err = mod.file.Sync()
	return
}

func (mod *OutModule) Maintenance(ctx context.Context) (err error) {
	err = mod.closeFile(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "failed to close csv file before rollover: %v\n", err)
	}
	mod.sequence++
	err = mod.openFile(ctx)
	return
}

func (mod *OutModule) Close(ctx context.Context) (err error) {
	err = mod.closeFile(ctx)
	return
}

func (mod *OutModule) Size() int64 {
	return mod.size.Load()
}

func (mod *OutModule) OpenedAt() (opened time.Time) {
	nanos := mod.openedAt.Load()
	if nanos != 0 {
		opened = time.Unix(0, nanos)
	}
	return
}

// Path of the file currently written (dispatch goroutine only)
func (mod *OutModule) CurrentPath() string {
	return mod.path
}

func (mod *OutModule) openFile(ctx context.Context) (err error) {
	now := time.Now()
	name := fmt.Sprintf("%s_%s_%s_%s_%04d%s",
		file.SanitizeName(mod.opts.Product), file.SanitizeName(mod.opts.Application),
		now.UTC().Format("20060102T150405"), mod.sessionID.String()[:8],
		mod.sequence, global.CSVFileExt)
	path := filepath.Join(mod.opts.Folder, name)

	handle, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0640)
	if err != nil {
		err = fmt.Errorf("failed to create csv file: %w", err)
		return
	}

	mod.file = handle
	mod.counter = &countingWriter{dst: handle}
	mod.writer = csv.NewWriter(mod.counter)
	mod.path = path
	mod.openedAt.Store(now.UnixNano())

	err = mod.writer.Write(columns)
	if err != nil {
		err = fmt.Errorf("failed to write csv header: %w", err)
		return
	}
	mod.writer.Flush()
	mod.size.Store(mod.counter.written)

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "Opened csv file %s\n", path)
	return
}

func (mod *OutModule) closeFile(ctx context.Context) (err error) {
	if mod.file == nil {
		return
	}
	mod.writer.Flush()
	err = mod.writer.Error()
	if err == nil {
		err = mod.file.Sync()
	}
	closeErr := mod.file.Close()
	if err == nil {
		err = closeErr
	}
	mod.file = nil
	mod.writer = nil
	return
}

// Columns of one log message
func Row(msg *packets.LogMessage) (row []string) {
	var threadIndex, threadName string
	if msg.Thread != nil {
		threadIndex = strconv.Itoa(int(msg.Thread.Index))
		threadName = msg.Thread.Name
	}
	var details string
	if msg.Details != nil {
		details = *msg.Details
	}

	row = []string{
		strconv.FormatInt(msg.Sequence, 10),
		msg.Timestamp.Format(time.RFC3339Nano),
		msg.Severity.String(),
		threadIndex,
		threadName,
		msg.Category,
		msg.Caption,
		msg.Description,
		details,
		msg.MethodName,
		msg.FileName,
		strconv.Itoa(int(msg.LineNumber)),
		strings.Join(msg.Tags, ";"),
	}
	return
}
