package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"packetlog/internal/externalio/beats"
	"packetlog/internal/externalio/csv"
	"packetlog/internal/externalio/file"
	"packetlog/internal/global"
	"packetlog/internal/logctx"
	"packetlog/internal/messenger"
	"packetlog/pkg/packet"
	"packetlog/pkg/packets"
)

type replayTarget struct {
	name    string
	backend messenger.Backend
}

// Writes recorded sessions to other outputs
func ReplayMode(ctx context.Context, commandname string, args []string) {
	var csvFolder string
	var beatsAddress string
	var beatsTimeout time.Duration
	var workers int

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	commandFlags.StringVar(&csvFolder, "csv", "", "Folder receiving CSV files")
	commandFlags.StringVar(&beatsAddress, "beats", "", "Beats server address (host:port)")
	commandFlags.DurationVar(&beatsTimeout, "timeout", global.DefaultBeatsTimeout, "Beats network timeout")
	commandFlags.IntVar(&workers, "workers", runtime.NumCPU(), "Session files decoded concurrently")
	parseArgs(commandFlags, commandname, args, true)

	if csvFolder == "" && beatsAddress == "" {
		exitOnError(errors.New("no destination"), "replay needs --csv and/or --beats")
	}

	paths, err := expandSessionPaths(commandFlags.Args())
	exitOnError(err, "failed to list session files")

	ctx = logctx.AppendCtxTag(ctx, global.NSReplay)
	results, err := file.ReplayAll(ctx, paths, packets.NewRegistry(), packet.UnknownAsGeneric, workers)
	exitOnError(err, "failed to read session files")

	failed := false
	for _, result := range results {
		if result.Err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "%s: %v (replaying %d packets read before the error)\n",
				result.Path, result.Err, len(result.Packets))
			failed = true
		}
	}

	// Results of one session share the destination
	for _, session := range groupBySession(results) {
		targets, err := replayTargets(session[0].Header, csvFolder, beatsAddress, beatsTimeout)
		exitOnError(err, "failed to prepare outputs")

		for _, target := range targets {
			written, err := replayInto(ctx, target.backend, session)
			if err != nil {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Replay of session %s into %s failed after %d packets: %v\n",
					session[0].Header.SessionID, target.name, written, err)
				failed = true
				continue
			}
			logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Replayed %d packets of session %s into %s\n",
				written, session[0].Header.SessionID, target.name)
		}
	}
	if failed {
		os.Exit(1)
	}
}

// Folders expand to the session files directly inside them
func expandSessionPaths(args []string) (paths []string, err error) {
	for _, arg := range args {
		var info os.FileInfo
		info, err = os.Stat(arg)
		if err != nil {
			return
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		var found []string
		found, err = file.ListSessionFiles(arg)
		if err != nil {
			return
		}
		paths = append(paths, found...)
	}
	return
}

// Keeps the start time order within and across sessions
func groupBySession(results []file.ReplayResult) (sessions [][]file.ReplayResult) {
	index := make(map[string]int)
	for _, result := range results {
		key := result.Header.SessionID.String()
		if result.Header.SessionID == uuid.Nil {
			key = result.Path
		}
		i, ok := index[key]
		if !ok {
			i = len(sessions)
			index[key] = i
			sessions = append(sessions, nil)
		}
		sessions[i] = append(sessions[i], result)
	}
	return
}

func replayTargets(header file.SessionHeader, csvFolder, beatsAddress string, beatsTimeout time.Duration) (targets []replayTarget, err error) {
	namespace := []string{global.NSReplay}
	if csvFolder != "" {
		var out *csv.OutModule
		out, err = csv.NewOutput(namespace, csv.Options{
			Folder:      csvFolder,
			Product:     header.Product,
			Application: header.Application,
			SessionID:   header.SessionID,
		})
		if err != nil {
			return
		}
		targets = append(targets, replayTarget{name: global.NSoCSV, backend: out})
	}
	if beatsAddress != "" {
		var out *beats.OutModule
		out, err = beats.NewOutput(namespace, beats.Options{
			Address:     beatsAddress,
			Timeout:     beatsTimeout,
			Product:     header.Product,
			Application: header.Application,
			Hostname:    header.Hostname,
			SessionID:   header.SessionID.String(),
		}, nil)
		if err != nil {
			return
		}
		targets = append(targets, replayTarget{name: global.NSoBeats, backend: out})
	}
	return
}

// Writes the sequenced packets of every file to backend, cached definitions travel with them
func replayInto(ctx context.Context, backend messenger.Backend, session []file.ReplayResult) (written int, err error) {
	err = backend.Open(ctx)
	if err != nil {
		err = fmt.Errorf("failed to open: %w", err)
		return
	}
	defer func() {
		closeErr := backend.Close(ctx)
		if err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close: %w", closeErr)
		}
	}()

	for _, result := range session {
		for _, pkt := range result.Packets {
			if _, ok := pkt.(packet.Sequenced); !ok {
				continue
			}
			// Cached packets go out again as dependencies of the packets referencing them
			if pkt.Definition().Cached {
				continue
			}
			err = ctx.Err()
			if err != nil {
				return
			}
			err = backend.Write(ctx, pkt)
			if err != nil {
				return
			}
			written++
		}
	}
	err = backend.Flush(ctx)
	return
}
