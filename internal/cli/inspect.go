package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"packetlog/internal/externalio/file"
	"packetlog/pkg/packet"
	"packetlog/pkg/packets"
)

// Prints session files in stream order
func InspectMode(ctx context.Context, commandname string, args []string) {
	var limit int
	var headerOnly bool
	var strict bool
	var showCached bool

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	commandFlags.IntVar(&limit, "n", 0, "Maximum packets printed per file")
	commandFlags.IntVar(&limit, "limit", 0, "Maximum packets printed per file")
	commandFlags.BoolVar(&headerOnly, "header", false, "Print file headers only")
	commandFlags.BoolVar(&strict, "strict", false, "Fail on packet types this version does not know")
	commandFlags.BoolVar(&showCached, "cached", false, "Also print cached definition packets (threads, metric definitions)")
	parseArgs(commandFlags, commandname, args, true)

	policy := packet.UnknownAsGeneric
	if strict {
		policy = packet.UnknownIsFatal
	}

	width := 0
	if term.IsTerminal(int(os.Stdout.Fd())) {
		width, _, _ = term.GetSize(int(os.Stdout.Fd()))
	}

	opts := inspectOptions{limit: limit, headerOnly: headerOnly, showCached: showCached, width: width}
	failed := false
	for _, path := range commandFlags.Args() {
		err := inspectFile(os.Stdout, path, policy, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

type inspectOptions struct {
	limit      int
	headerOnly bool
	showCached bool
	width      int // 0 disables truncation
}

func inspectFile(out io.Writer, path string, policy packet.UnknownPolicy, opts inspectOptions) (err error) {
	session, err := file.OpenSession(path, packets.NewRegistry(), policy)
	if err != nil {
		return
	}
	defer session.Close()

	header := session.Header
	fmt.Fprintf(out, "== %s\n", path)
	fmt.Fprintf(out, "   session %s file %d (%s) %s/%s", header.SessionID, header.FileSequence, header.FileID, header.Product, header.Application)
	if header.SessionName != "" {
		fmt.Fprintf(out, " %q", header.SessionName)
	}
	fmt.Fprintf(out, "\n   host %s pid %d started %s", header.Hostname, header.PID, header.StartTime.Format(time.RFC3339Nano))
	if header.Compression != "" {
		fmt.Fprintf(out, " compression %s", header.Compression)
	}
	fmt.Fprintln(out)
	if opts.headerOnly {
		return
	}

	printed := 0
	for opts.limit == 0 || printed < opts.limit {
		var pkt packet.Packet
		pkt, err = session.Next()
		if errors.Is(err, io.EOF) {
			err = nil
			break
		}
		if err != nil {
			return
		}
		if !opts.showCached && pkt.Definition().Cached {
			continue
		}

		line := describePacket(pkt)
		if opts.width > 0 && len(line) > opts.width {
			line = line[:max(opts.width-3, 0)] + "..."
		}
		fmt.Fprintln(out, line)
		printed++
	}
	fmt.Fprintf(out, "   %d packets read\n", session.Count())
	return
}

// Single line rendering of a packet
func describePacket(pkt packet.Packet) (line string) {
	prefix := ""
	if seq, ok := pkt.(packet.Sequenced); ok {
		header := seq.PacketHeader()
		prefix = fmt.Sprintf("%8d %s ", header.Sequence, header.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"))
	}

	switch typed := pkt.(type) {
	case *packets.LogMessage:
		thread := "-"
		if typed.Thread != nil {
			thread = typed.Thread.Name
		}
		line = fmt.Sprintf("%s%-11s [%s] %s: %s", prefix, typed.Severity, thread, typed.Category, typed.Caption)
		if typed.Description != "" {
			line += " | " + strings.ReplaceAll(typed.Description, "\n", " ")
		}
		if len(typed.Tags) > 0 {
			line += " {" + strings.Join(typed.Tags, ",") + "}"
		}
	case *packets.MetricSample:
		name := "?"
		instance := ""
		if typed.Metric != nil {
			instance = typed.Metric.InstanceName
			if typed.Metric.Def != nil {
				name = typed.Metric.Def.Category + "/" + typed.Metric.Def.CounterName
				instance += " " + typed.Metric.Def.Unit
			}
		}
		line = fmt.Sprintf("%sMETRIC      %s[%s] = %g", prefix, name, strings.TrimSpace(instance), typed.Value)
	case *packets.SessionClose:
		line = fmt.Sprintf("%sSESSION     %s (%s) after %d packets", prefix, typed.Status, typed.Reason, typed.PacketCount)
	case *packets.ThreadInfo:
		line = fmt.Sprintf("%sTHREAD      #%d %s", prefix, typed.Index, typed.Name)
	case *packets.MetricDefinition:
		line = fmt.Sprintf("%sDEFINITION  %s/%s (%s, %s)", prefix, typed.Category, typed.CounterName, typed.Unit, typed.Kind)
	case *packets.Metric:
		line = fmt.Sprintf("%sINSTANCE    %s", prefix, typed.InstanceName)
	default:
		line = fmt.Sprintf("%s%-11s %s", prefix, "UNKNOWN", pkt.Definition())
	}
	return
}
