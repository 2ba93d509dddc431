package logfile

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"packetlog/internal/global"
	"packetlog/internal/logctx"
	"packetlog/internal/queue/mpsc"
)

const maxLineLength = 1 << 20

// Parses every line of reader into the outbox until EOF, cancellation or a closed outbox
func ReadLines(ctx context.Context, source string, reader io.Reader, outbox *mpsc.Queue[LogLine]) (lines int, err error) {
	defaults := localDefaults(source)

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 65536), maxLineLength)
	for scanner.Scan() {
		err = outbox.PushBlocking(ctx, parseLine(scanner.Text(), defaults))
		if err != nil {
			return
		}
		lines++
	}

	err = scanner.Err()
	if err != nil {
		err = fmt.Errorf("failed to read lines from %s: %w", source, err)
		return
	}
	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "Finished reading %d lines from %s\n", lines, source)
	return
}
