package beats

import (
	"context"
	"fmt"

	"packetlog/internal/global"
	"packetlog/internal/logctx"
	"packetlog/pkg/packet"
	"packetlog/pkg/packets"
)

func (mod *OutModule) Open(ctx context.Context) (err error) {
	mod.sink, err = mod.dial(mod.opts.Address, mod.opts.Timeout, mod.opts.CompressionLevel)
	if err != nil {
		return
	}
	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "Connected to beats server %s\n", mod.opts.Address)
	return
}

// Converts the packet to an event and buffers it. Full batches are sent right away.
func (mod *OutModule) Write(ctx context.Context, pkt packet.Packet) (err error) {
	event, ok := mod.toEvent(pkt)
	if !ok {
		mod.PacketsSkipped.Add(1)
		return
	}
	mod.pending = append(mod.pending, event)

	if len(mod.pending) >= mod.opts.BatchSize {
		err = mod.send(ctx)
	}
	return
}

// Sends buffered events and waits for the server's acknowledgement
func (mod *OutModule) Flush(ctx context.Context) (err error) {
	err = mod.send(ctx)
	return
}

// Reconnects. Buffered events are kept for the new connection.
func (mod *OutModule) Maintenance(ctx context.Context) (err error) {
	if mod.sink != nil {
		closeErr := mod.sink.Close()
		if closeErr != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "failed to close beats connection: %v\n", closeErr)
		}
		mod.sink = nil
	}
	err = mod.Open(ctx)
	return
}

func (mod *OutModule) Close(ctx context.Context) (err error) {
	if mod.sink == nil {
		return
	}
	err = mod.sink.Close()
	mod.sink = nil
	if len(mod.pending) > 0 {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"dropping %d unsent beats events on close\n", len(mod.pending))
		mod.pending = nil
	}
	return
}

func (mod *OutModule) send(ctx context.Context) (err error) {
	if len(mod.pending) == 0 {
		return
	}
	if mod.sink == nil {
		// Lost on an earlier failure, try once more
		err = mod.Open(ctx)
		if err != nil {
			mod.SendFailures.Add(1)
			return
		}
	}

	sent, err := mod.sink.Send(mod.pending)
	if sent > 0 {
		mod.EventsSent.Add(uint64(sent))
		remaining := copy(mod.pending, mod.pending[sent:])
		clear(mod.pending[remaining:])
		mod.pending = mod.pending[:remaining]
	}
	if err != nil {
		mod.SendFailures.Add(1)
		_ = mod.sink.Close()
		mod.sink = nil
		err = fmt.Errorf("failed to send %d events to beats server: %w", len(mod.pending), err)
		return
	}
	logctx.LogEvent(ctx, global.VerbosityData, global.InfoLog, "Sent %d events to %s\n", sent, mod.opts.Address)
	return
}

// Beats event fields for supported packets
func (mod *OutModule) toEvent(pkt packet.Packet) (event map[string]interface{}, ok bool) {
	switch typed := pkt.(type) {
	case *packets.LogMessage:
		event = mod.baseEvent(typed.Header)
		event["message"] = typed.Caption
		logFields := map[string]interface{}{
			"level":    typed.Severity.String(),
			"logger":   typed.Category,
			"sequence": typed.Sequence,
			"id":       typed.MessageID.String(),
		}
		if typed.LogSystem != "" {
			logFields["system"] = typed.LogSystem
		}
		if typed.FileName != "" {
			logFields["origin"] = map[string]interface{}{
				"file": map[string]interface{}{
					"name": typed.FileName,
					"line": typed.LineNumber,
				},
				"function": typed.MethodName,
			}
		}
		event["log"] = logFields
		if typed.Description != "" {
			event["description"] = typed.Description
		}
		if typed.Details != nil {
			event["details"] = *typed.Details
		}
		if len(typed.Tags) > 0 {
			event["tags"] = typed.Tags
		}
		if typed.Thread != nil {
			event["process"].(map[string]interface{})["thread"] = map[string]interface{}{
				"id":   typed.Thread.Index,
				"name": typed.Thread.Name,
			}
		}
		ok = true
	case *packets.MetricSample:
		if typed.Metric == nil || typed.Metric.Def == nil {
			return
		}
		event = mod.baseEvent(typed.Header)
		definition := typed.Metric.Def
		event["message"] = fmt.Sprintf("%s/%s %s=%v", definition.Category, definition.CounterName, typed.Metric.InstanceName, typed.Value)
		event["metric"] = map[string]interface{}{
			"category": definition.Category,
			"counter":  definition.CounterName,
			"instance": typed.Metric.InstanceName,
			"unit":     definition.Unit,
			"kind":     definition.Kind.String(),
			"value":    typed.Value,
		}
		ok = true
	case *packets.SessionClose:
		event = mod.baseEvent(typed.Header)
		event["message"] = fmt.Sprintf("session closed: %s", typed.Status)
		event["session_close"] = map[string]interface{}{
			"status":       typed.Status.String(),
			"reason":       typed.Reason,
			"packet_count": typed.PacketCount,
		}
		ok = true
	}
	return
}

func (mod *OutModule) baseEvent(header packet.Header) (event map[string]interface{}) {
	event = map[string]interface{}{
		"@timestamp": header.Timestamp,
		"host": map[string]interface{}{
			"name":     mod.opts.Hostname,
			"hostname": mod.opts.Hostname,
		},
		"agent": map[string]interface{}{
			"type":    global.DefaultProduct,
			"version": global.ProgVersion,
		},
		"service": map[string]interface{}{
			"name":        mod.opts.Product,
			"application": mod.opts.Application,
		},
		"process": map[string]interface{}{
			"pid": mod.pid,
		},
	}
	if mod.opts.SessionID != "" {
		event["session"] = map[string]interface{}{"id": mod.opts.SessionID}
	}
	return
}
