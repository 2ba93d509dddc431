// Logging session facade: builds packets, numbers them and fans them out to every output
package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"packetlog/internal/externalio/beats"
	"packetlog/internal/externalio/csv"
	"packetlog/internal/externalio/file"
	"packetlog/internal/externalio/logfile"
	"packetlog/internal/global"
	"packetlog/internal/logctx"
	"packetlog/internal/messenger"
	"packetlog/internal/metrics"
	"packetlog/internal/queue/mpsc"
	"packetlog/pkg/packet"
	"packetlog/pkg/packets"
)

// Creates the agent and its outputs. Nothing is opened until Start.
func New(ctx context.Context, cfg Config) (agent *Agent, err error) {
	err = cfg.validate()
	if err != nil {
		return
	}

	agent = &Agent{
		Namespace:   []string{global.NSAgent},
		cfg:         cfg,
		sessionID:   uuid.New(),
		threads:     make(map[string]*packets.ThreadInfo),
		definitions: make(map[string]*packets.MetricDefinition),
		instances:   make(map[string]*packets.Metric),
		Registry:    metrics.New(),
	}
	agent.ctx, agent.cancel = context.WithCancel(logctx.WithLogger(context.Background(), logctx.GetLogger(ctx)))
	agent.ctx = logctx.OverwriteCtxTag(agent.ctx, agent.Namespace)

	hostname := global.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	defer func() {
		if err != nil {
			agent.cancel()
			agent = nil
		}
	}()

	if cfg.File.Enabled {
		agent.sessionFile, err = file.NewOutput(agent.Namespace, file.Options{
			Folder:      cfg.File.Folder,
			Product:     cfg.Product,
			Application: cfg.Application,
			SessionName: cfg.SessionName,
			SessionID:   agent.sessionID,
			Hostname:    hostname,
			Compress:    cfg.File.Compress,
		})
		if err != nil {
			return
		}
		err = agent.addOutput(global.NSoFile, agent.sessionFile, cfg.File.MaxFileSize, cfg.File.MaxFileDuration)
		if err != nil {
			return
		}
	}

	if cfg.CSV.Enabled {
		var csvOut *csv.OutModule
		csvOut, err = csv.NewOutput(agent.Namespace, csv.Options{
			Folder:      cfg.CSV.Folder,
			Product:     cfg.Product,
			Application: cfg.Application,
			SessionID:   agent.sessionID,
		})
		if err != nil {
			return
		}
		err = agent.addOutput(global.NSoCSV, csvOut, cfg.CSV.MaxFileSize, cfg.CSV.MaxFileDuration)
		if err != nil {
			return
		}
	}

	if cfg.Beats.Enabled {
		var beatsOut *beats.OutModule
		beatsOut, err = beats.NewOutput(agent.Namespace, beats.Options{
			Address:          cfg.Beats.Address,
			Timeout:          cfg.Beats.Timeout,
			CompressionLevel: cfg.Beats.CompressionLevel,
			BatchSize:        cfg.MaxBatchSize,
			Product:          cfg.Product,
			Application:      cfg.Application,
			Hostname:         hostname,
			SessionID:        agent.sessionID.String(),
		}, cfg.BeatsDialer)
		if err != nil {
			return
		}
		err = agent.addOutput(global.NSoBeats, beatsOut, 0, 0)
		if err != nil {
			return
		}
	}

	agent.outbox, err = mpsc.New[logfile.LogLine](agent.Namespace, global.DefaultMinQueueSize, cfg.QueueLimit)
	if err != nil {
		err = fmt.Errorf("failed to create ingest queue: %w", err)
		return
	}
	return
}

func (agent *Agent) addOutput(name string, backend messenger.Backend, maxSize int64, maxDuration time.Duration) (err error) {
	namespace := append(append([]string(nil), agent.Namespace...), name)
	msgr, err := messenger.New(agent.ctx, namespace, messenger.Config{
		QueueLimit:        agent.cfg.QueueLimit,
		AutoFlushInterval: agent.cfg.AutoFlushInterval,
		MaxBatchSize:      agent.cfg.MaxBatchSize,
		MaxSize:           maxSize,
		MaxDuration:       maxDuration,
	}, backend)
	if err != nil {
		err = fmt.Errorf("failed to create %s messenger: %w", name, err)
		return
	}
	agent.outputs = append(agent.outputs, output{name: name, messenger: msgr, backend: backend})
	return
}

// Session all outputs of this agent belong to
func (agent *Agent) SessionID() uuid.UUID {
	return agent.sessionID
}

// Path of the session file currently written, empty without a file output
func (agent *Agent) SessionPath() (path string) {
	if agent.sessionFile != nil {
		path = agent.sessionFile.CurrentPath()
	}
	return
}

// Opens every output, then starts inputs and background maintenance.
// Outputs already started are shut down again when a later one fails.
func (agent *Agent) Start() (err error) {
	logctx.LogEvent(agent.ctx, global.VerbosityStandard, global.InfoLog, "Starting session %s...\n", agent.sessionID)
	agent.startedAt = time.Now()

	for i, out := range agent.outputs {
		err = out.messenger.Start()
		if err != nil {
			err = fmt.Errorf("failed to start %s output: %w", out.name, err)
			shutdownCtx, cancel := context.WithTimeout(agent.ctx, global.MessengerShutdownTimeout)
			for _, started := range agent.outputs[:i] {
				_ = started.messenger.Close(shutdownCtx)
			}
			cancel()
			agent.cancel()
			return
		}
	}

	agent.inputCtx, agent.inputCancel = context.WithCancel(agent.ctx)
	for _, path := range agent.cfg.InputFiles {
		err = agent.addInput(path)
		if err != nil {
			_ = agent.Close(agent.ctx)
			return
		}
	}

	agent.ingestDone = make(chan struct{})
	go agent.ingest()

	agent.gatherer = newGatherer(agent, agent.cfg.MetricInterval, agent.cfg.MetricRetention)
	agent.wg.Add(1)
	go func() {
		defer agent.wg.Done()
		agent.gatherer.Run(agent.ctx)
	}()

	if agent.cfg.File.Enabled && agent.cfg.File.EnablePruning {
		agent.wg.Add(1)
		go func() {
			defer agent.wg.Done()
			agent.pruneLoop(agent.ctx, agent.cfg.File.PruneInterval)
		}()
	}

	if agent.cfg.MetricListenAddress != "" {
		err = agent.startMetricServer()
		if err != nil {
			_ = agent.Close(agent.ctx)
			return
		}
	}

	logctx.LogEvent(agent.ctx, global.VerbosityStandard, global.InfoLog, "Startup complete.\n")
	return
}

// Logical producer identity, created on first use of name
func (agent *Agent) Thread(name string) (thread *packets.ThreadInfo) {
	agent.mutex.Lock()
	defer agent.mutex.Unlock()
	thread = agent.threadLocked(name)
	return
}

func (agent *Agent) threadLocked(name string) (thread *packets.ThreadInfo) {
	thread, ok := agent.threads[name]
	if !ok {
		thread = packets.NewThreadInfo(int32(len(agent.threads)+1), name)
		agent.threads[name] = thread
	}
	return
}

// Queues a log message from thread
func (agent *Agent) Log(ctx context.Context, thread *packets.ThreadInfo, severity packets.Severity, category string, caption string) (err error) {
	msg := packets.NewLogMessage(thread, severity, category, caption)
	err = agent.Write(ctx, msg, messenger.Queued)
	if err == nil {
		agent.Metrics.Logged.Add(1)
	}
	return
}

// Queues a log message built from a parsed text line
func (agent *Agent) LogLine(ctx context.Context, line logfile.LogLine) (err error) {
	msg := packets.NewLogMessage(agent.Thread(line.Application), logfile.SeverityOf(line.Severity), line.Application, line.Text)
	msg.Timestamp = line.Timestamp
	msg.LogSystem = line.Source
	if line.Hostname != "" {
		msg.Tags = append(msg.Tags, "host:"+line.Hostname)
	}
	if line.PID != 0 {
		msg.Tags = append(msg.Tags, fmt.Sprintf("pid:%d", line.PID))
	}
	if line.Facility != "" {
		msg.Tags = append(msg.Tags, "facility:"+line.Facility)
	}

	err = agent.Write(ctx, msg, messenger.Queued)
	if err == nil {
		agent.Metrics.Logged.Add(1)
	}
	return
}

// Queues one observation of the named counter instance. Definitions and instances are created on first use.
func (agent *Agent) RecordSample(ctx context.Context, category, counter, unit string, kind packets.SampleKind, instance string, value float64) (err error) {
	agent.mutex.Lock()
	defKey := category + "\x00" + counter
	def, ok := agent.definitions[defKey]
	if !ok {
		def = packets.NewMetricDefinition(category, counter, unit, kind)
		agent.definitions[defKey] = def
	}
	instKey := defKey + "\x00" + instance
	metric, ok := agent.instances[instKey]
	if !ok {
		metric = packets.NewMetric(def, instance)
		agent.instances[instKey] = metric
	}
	agent.mutex.Unlock()

	err = agent.Write(ctx, packets.NewMetricSample(metric, value), messenger.Queued)
	if err == nil {
		agent.Metrics.Samples.Add(1)
	}
	return
}

// Numbers pkt and submits it to every output in one order. Fails only when no output accepted it.
func (agent *Agent) Write(ctx context.Context, pkt packet.Packet, mode messenger.WriteMode) (err error) {
	agent.mutex.Lock()
	if agent.closed.Load() {
		agent.mutex.Unlock()
		agent.Metrics.Rejected.Add(1)
		err = messenger.ErrClosed
		return
	}
	pending, err := agent.submitLocked(ctx, pkt, mode)
	agent.mutex.Unlock()
	if err != nil {
		agent.Metrics.Rejected.Add(1)
		return
	}

	err = waitAll(ctx, pending)
	return
}

func (agent *Agent) submitLocked(ctx context.Context, pkt packet.Packet, mode messenger.WriteMode) (pending []messenger.Pending, err error) {
	agent.sequence++
	stamped, isSequenced := pkt.(packet.Sequenced)
	var previous packet.Header
	if isSequenced {
		previous = stamped.PacketHeader()
		stamped.Stamp(agent.sequence, time.Now())
	}

	var submitErrs []error
	for _, out := range agent.outputs {
		handle, submitErr := out.messenger.Submit(ctx, pkt, mode)
		if submitErr != nil {
			submitErrs = append(submitErrs, fmt.Errorf("%s: %w", out.name, submitErr))
			continue
		}
		pending = append(pending, handle)
	}
	if len(submitErrs) > 0 {
		logctx.LogEvent(agent.ctx, global.VerbosityStandard, global.WarnLog,
			"packet %d not accepted by every output: %v\n", agent.sequence, errors.Join(submitErrs...))
	}
	if len(pending) == 0 {
		agent.sequence--
		if isSequenced {
			stamped.RestoreHeader(previous)
		}
		err = errors.Join(submitErrs...)
	}
	return
}

func waitAll(ctx context.Context, pending []messenger.Pending) (err error) {
	var errs []error
	for _, handle := range pending {
		waitErr := handle.Wait(ctx)
		if waitErr != nil {
			errs = append(errs, waitErr)
		}
	}
	err = errors.Join(errs...)
	return
}

// Makes everything logged so far durable on every output
func (agent *Agent) Flush(ctx context.Context) (err error) {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, out := range agent.outputs {
		group.Go(func() error {
			flushErr := out.messenger.Flush(groupCtx)
			if flushErr != nil {
				return fmt.Errorf("failed to flush %s output: %w", out.name, flushErr)
			}
			return nil
		})
	}
	err = group.Wait()
	return
}

// Ends the current file of every output, later packets go to new files
func (agent *Agent) Rotate(ctx context.Context) (err error) {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, out := range agent.outputs {
		group.Go(func() error {
			rotateErr := out.messenger.CloseFile(groupCtx)
			if rotateErr != nil {
				return fmt.Errorf("failed to rotate %s output: %w", out.name, rotateErr)
			}
			return nil
		})
	}
	err = group.Wait()
	if err == nil {
		logctx.LogEvent(agent.ctx, global.VerbosityProgress, global.InfoLog, "Rotated output files\n")
	}
	return
}

// Takes the mutex unless ctx ends first. A lock obtained after ctx ended is released right away.
func (agent *Agent) lockContext(ctx context.Context) (locked bool) {
	acquired := make(chan struct{})
	go func() {
		agent.mutex.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		locked = true
	case <-ctx.Done():
		go func() {
			<-acquired
			agent.mutex.Unlock()
		}()
	}
	return
}

// Stops inputs, drains ingested lines, commits a SessionClose packet and shuts every output down.
// Later calls return immediately.
func (agent *Agent) Close(ctx context.Context) (err error) {
	if !agent.closeStarted.CompareAndSwap(false, true) {
		return
	}
	logctx.LogEvent(agent.ctx, global.VerbosityStandard, global.InfoLog, "Session shutdown started...\n")
	var errs []error

	// Inputs first, lines already queued are still logged
	if agent.inputCancel != nil {
		agent.inputCancel()
	}
	agent.inputWg.Wait()
	agent.outbox.Close()
	if agent.ingestDone != nil {
		select {
		case <-agent.ingestDone:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("ingest queue did not drain: %w", ctx.Err()))
		}
	}

	// A writer waiting on a full output holds the mutex until the outputs close below
	agent.closed.Store(true)
	var closing *packets.SessionClose
	if agent.lockContext(ctx) {
		closing = &packets.SessionClose{
			Status:      packets.SessionNormal,
			Reason:      "closed",
			PacketCount: agent.sequence,
		}
		pending, submitErr := agent.submitLocked(ctx, closing, messenger.WaitForCommit)
		agent.mutex.Unlock()
		if submitErr != nil {
			errs = append(errs, fmt.Errorf("failed to submit session close: %w", submitErr))
		}
		commitErr := waitAll(ctx, pending)
		if commitErr != nil {
			errs = append(errs, fmt.Errorf("failed to commit session close: %w", commitErr))
		}
	} else {
		errs = append(errs, fmt.Errorf("session close not written, writers still blocked: %w", ctx.Err()))
	}

	closeErrs := make([]error, len(agent.outputs))
	var closers sync.WaitGroup
	for i, out := range agent.outputs {
		closers.Add(1)
		go func() {
			defer closers.Done()
			closeErr := out.messenger.Close(ctx)
			if closeErr != nil {
				closeErrs[i] = fmt.Errorf("failed to close %s output: %w", out.name, closeErr)
			}
		}()
	}
	closers.Wait()
	errs = append(errs, closeErrs...)

	agent.stopMetricServer(ctx)
	agent.cancel()
	agent.wg.Wait()

	err = errors.Join(errs...)
	if err != nil {
		logctx.LogEvent(agent.ctx, global.VerbosityStandard, global.ErrorLog, "Session shutdown incomplete: %v\n", err)
		return
	}
	logctx.LogEvent(agent.ctx, global.VerbosityStandard, global.InfoLog,
		"Session %s closed after %d packets (%s)\n", agent.sessionID, closing.PacketCount, time.Since(agent.startedAt).Round(time.Millisecond))
	return
}
