package agent

import (
	"context"
	"errors"
	"net/http"
	"time"

	"packetlog/internal/externalio/server"
	"packetlog/internal/global"
	"packetlog/internal/logctx"
	"packetlog/internal/repository"
)

// Prunes the session folder on every interval, first run right away
func (agent *Agent) pruneLoop(ctx context.Context, interval time.Duration) {
	ctx = logctx.AppendCtxTag(ctx, global.NSRepo)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		agent.pruneOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (agent *Agent) pruneOnce(ctx context.Context) {
	policy := repository.Policy{
		MaxAge:       agent.cfg.File.MaxAge,
		MaxDiskUsage: agent.cfg.File.MaxDiskUsage,
		Extensions:   []string{global.SessionFileExt},
	}
	if current := agent.SessionPath(); current != "" {
		policy.Keep = []string{current}
	}
	if agent.cfg.CSV.Enabled && agent.cfg.CSV.Folder == agent.cfg.File.Folder {
		policy.Extensions = append(policy.Extensions, global.CSVFileExt)
		for _, out := range agent.outputs {
			if pathed, ok := out.backend.(interface{ CurrentPath() string }); ok && pathed.CurrentPath() != "" {
				policy.Keep = append(policy.Keep, pathed.CurrentPath())
			}
		}
	}

	result, err := repository.Prune(ctx, agent.cfg.File.Folder, policy, time.Now())
	if errors.Is(err, repository.ErrLocked) {
		logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "Repository locked by another process, skipping prune\n")
		return
	}
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "failed to prune repository: %v\n", err)
		return
	}
	agent.Metrics.PruneRuns.Add(1)
	agent.Metrics.PrunedFiles.Add(uint64(len(result.Removed)))
}

func (agent *Agent) startMetricServer() (err error) {
	serverCtx := logctx.AppendCtxTag(agent.ctx, global.NSMetric)
	agent.metricServer, err = server.SetupListener(serverCtx, agent.cfg.MetricListenAddress, agent.Registry, global.DefaultMetricPrefix)
	if err != nil {
		return
	}

	agent.wg.Add(1)
	go func() {
		defer agent.wg.Done()
		server.Start(serverCtx, agent.metricServer)
	}()
	return
}

func (agent *Agent) stopMetricServer(ctx context.Context) {
	if agent.metricServer == nil {
		return
	}
	err := agent.metricServer.Shutdown(ctx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logctx.LogEvent(agent.ctx, global.VerbosityStandard, global.WarnLog,
			"metric HTTP server did not shutdown gracefully: %v\n", err)
	}
}
