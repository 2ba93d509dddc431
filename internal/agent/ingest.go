package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"

	"packetlog/internal/externalio/logfile"
	"packetlog/internal/global"
	"packetlog/internal/logctx"
	"packetlog/internal/messenger"
	"packetlog/internal/queue/mpsc"
)

// Tails path into the ingest queue
func (agent *Agent) addInput(path string) (err error) {
	stateName := strings.ReplaceAll(strings.Trim(filepath.Clean(path), "/"), "/", "_") + ".pos"
	input, err := logfile.NewInput(agent.Namespace, path, filepath.Join(agent.cfg.StateFolder, stateName), agent.outbox)
	if err != nil {
		err = fmt.Errorf("failed adding file input '%s': %w", path, err)
		return
	}
	agent.inputs = append(agent.inputs, input)

	agent.inputWg.Add(1)
	go func() {
		defer agent.inputWg.Done()
		input.Run(agent.inputCtx)
	}()
	logctx.LogEvent(agent.ctx, global.VerbosityProgress, global.InfoLog, "Reading log lines from %s\n", path)
	return
}

// Queue of parsed text lines, each becomes a log message (see logfile.ReadLines)
func (agent *Agent) Outbox() *mpsc.Queue[logfile.LogLine] {
	return agent.outbox
}

// Logs queued lines until the queue is closed and empty
func (agent *Agent) ingest() {
	defer close(agent.ingestDone)
	ctx := logctx.AppendCtxTag(agent.ctx, global.NSIngest)

	for {
		line, ok := agent.outbox.Pop(agent.ctx)
		if !ok {
			return
		}
		agent.ingestLine(ctx, line)
	}
}

// One line, panics are recorded and the loop continues
func (agent *Agent) ingestLine(ctx context.Context, line logfile.LogLine) {
	defer func() {
		if fatalError := recover(); fatalError != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic ingesting line from %s: %v\n%s", line.Source, fatalError, debug.Stack())
		}
	}()

	err := agent.LogLine(ctx, line)
	if errors.Is(err, messenger.ErrClosed) {
		return
	}
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "failed to log line from %s: %v\n", line.Source, err)
		return
	}
	agent.Metrics.IngestedLines.Add(1)
}
