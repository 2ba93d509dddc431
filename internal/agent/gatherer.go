package agent

import (
	"context"
	"runtime/debug"
	"time"

	"packetlog/internal/global"
	"packetlog/internal/logctx"
	"packetlog/internal/metrics"
)

// Periodically gathers component metrics into the agent registry
type Gatherer struct {
	Interval  time.Duration     // Polling interval to gather metrics at
	Retention time.Duration     // Maximum time to maintain metrics for
	Registry  *metrics.Registry // Storage for metric data
	agent     *Agent
}

func newGatherer(agent *Agent, interval time.Duration, maximumMetricAge time.Duration) (new *Gatherer) {
	new = &Gatherer{
		Registry:  agent.Registry,
		Interval:  interval,
		Retention: maximumMetricAge,
		agent:     agent,
	}
	return
}

func (gatherer *Gatherer) Run(ctx context.Context) {
	ctx = logctx.AppendCtxTag(ctx, global.NSMetric)

	// Tracking last interval run time
	lastRun := time.Now()

	ticker := time.NewTicker(gatherer.Interval / 2) // Use polling interval half of desired record interval
	defer ticker.Stop()

	// Counter to track how many ticks have passed (for retention)
	var tickCount int

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.Sub(lastRun) >= gatherer.Interval {
				timeSlice := gatherer.Registry.NewTimeSlice(now, gatherer.Interval)
				lastRun = now
				gatherer.runIntervalTasks(ctx, timeSlice, gatherer.Interval)
			}

			tickCount++
			if tickCount >= 30 {
				gatherer.Registry.Prune(now, gatherer.Retention)
				tickCount = 0
			}
		}
	}
}

// Read metrics of each pipeline component
func (gatherer *Gatherer) runIntervalTasks(ctx context.Context, timeSlice time.Time, interval time.Duration) {
	// Record panics and continue on next interval
	defer func() {
		if fatalError := recover(); fatalError != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in metric collector: %v\n%s", fatalError, debug.Stack())
		}
	}()

	agent := gatherer.agent
	gatherer.Registry.Add(timeSlice, agent.CollectMetrics(interval))

	// Inputs
	gatherer.Registry.Add(timeSlice, agent.outbox.CollectMetrics(interval))
	for _, input := range agent.inputs {
		gatherer.Registry.Add(timeSlice, input.CollectMetrics(interval))
	}

	// Outputs
	for _, out := range agent.outputs {
		gatherer.Registry.Add(timeSlice, out.messenger.CollectMetrics(interval))
		if backend, ok := out.backend.(metricCollector); ok {
			gatherer.Registry.Add(timeSlice, backend.CollectMetrics(interval))
		}
	}
}

func (agent *Agent) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	now := time.Now()
	add := func(name, desc string, value uint64) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: desc,
			Namespace:   agent.Namespace,
			Value: metrics.MetricValue{
				Raw:      value,
				Unit:     "count",
				Interval: interval,
			},
			Type:      metrics.Counter,
			Timestamp: now,
		})
	}
	add("messages_logged", "Log messages submitted to the outputs", agent.Metrics.Logged.Swap(0))
	add("samples_recorded", "Metric samples submitted to the outputs", agent.Metrics.Samples.Swap(0))
	add("writes_rejected", "Packets no output accepted", agent.Metrics.Rejected.Swap(0))
	add("lines_ingested", "Text lines logged from inputs", agent.Metrics.IngestedLines.Swap(0))
	add("prune_runs", "Completed repository prune cycles", agent.Metrics.PruneRuns.Swap(0))
	add("pruned_files", "Session files removed by pruning", agent.Metrics.PrunedFiles.Swap(0))

	agent.mutex.Lock()
	sequence := agent.sequence
	agent.mutex.Unlock()
	collection = append(collection, metrics.Metric{
		Name:        "session_packets",
		Description: "Packets numbered in this session",
		Namespace:   agent.Namespace,
		Value:       metrics.MetricValue{Raw: sequence, Unit: "count"},
		Type:        metrics.Gauge,
		Timestamp:   now,
	})
	return
}
