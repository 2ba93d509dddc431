package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"packetlog/internal/agent"
	"packetlog/internal/externalio/logfile"
	"packetlog/internal/global"
	"packetlog/internal/lifecycle"
	"packetlog/internal/logctx"
)

// Runs the agent until a shutdown signal, or until stdin ends when it is the only input
func RunMode(ctx context.Context, commandname string, args []string) {
	var configPath string
	var readStdin bool
	var inputList string
	var folder string

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	logLevel := SetGlobalArguments(commandFlags)
	SetCommon(commandFlags, &configPath)
	commandFlags.BoolVar(&readStdin, "stdin", false, "Log lines read from standard input")
	commandFlags.StringVar(&inputList, "i", "", "Comma separated text log files to tail, added to the configured inputs")
	commandFlags.StringVar(&inputList, "inputs", "", "Comma separated text log files to tail, added to the configured inputs")
	commandFlags.StringVar(&folder, "f", "", "Session file folder, enables the file output")
	commandFlags.StringVar(&folder, "folder", "", "Session file folder, enables the file output")
	parseArgs(commandFlags, commandname, args, false)

	fileCfg, err := loadRunConfig(configPath)
	exitOnError(err, "failed to load configuration")
	if folder != "" {
		fileCfg.File.Enabled = true
		fileCfg.File.Folder = folder
	}
	if inputList != "" {
		fileCfg.Inputs.FilePaths = append(fileCfg.Inputs.FilePaths, strings.Split(inputList, ",")...)
	}
	if flagWasSet(commandFlags, "v", "verbosity") || fileCfg.Logging.Level == 0 {
		fileCfg.Logging.Level = *logLevel
	}

	cfg, err := agent.NewAgentConf(fileCfg)
	exitOnError(err, "invalid configuration")

	ctx, stopLogger, err := switchLogger(ctx, cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	exitOnError(err, "failed to set up logging")

	err = runAgent(ctx, cfg, readStdin)
	stopLogger()
	exitOnError(err, "agent failed")
}

// Missing default configuration falls back to a file output in the default folder
func loadRunConfig(configPath string) (cfg global.AgentConfig, err error) {
	cfg, err = agent.LoadConfig(configPath)
	if err != nil && configPath == global.DefaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		cfg = global.AgentConfig{File: global.FileOutputConf{Enabled: true}}
		err = nil
	}
	return
}

func flagWasSet(fs *flag.FlagSet, names ...string) (set bool) {
	fs.Visit(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				set = true
			}
		}
	})
	return
}

func runAgent(ctx context.Context, cfg agent.Config, readStdin bool) (err error) {
	daemon, err := agent.New(ctx, cfg)
	if err != nil {
		return
	}
	err = daemon.Start()
	if err != nil {
		err = fmt.Errorf("failed to start agent: %w", err)
		return
	}

	sigChan, stopSignals := lifecycle.Signals()
	defer stopSignals()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if readStdin {
		go func() {
			stdinCtx := logctx.AppendCtxTag(runCtx, global.NSoStdIn)
			lines, readErr := logfile.ReadLines(stdinCtx, "stdin", os.Stdin, daemon.Outbox())
			if readErr != nil {
				logctx.LogEvent(stdinCtx, global.VerbosityStandard, global.ErrorLog, "Failed reading stdin after %d lines: %v\n", lines, readErr)
			} else {
				logctx.LogEvent(stdinCtx, global.VerbosityProgress, global.InfoLog, "End of stdin after %d lines\n", lines)
			}
			if len(cfg.InputFiles) == 0 {
				cancel()
			}
		}()
	}

	err = lifecycle.NotifyReady(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify ready failed: %v\n", err)
	}
	_ = lifecycle.NotifyStatus(ctx, fmt.Sprintf("Session %s", daemon.SessionID()))

	err = lifecycle.SignalHandler(runCtx, daemon, sigChan, global.AgentShutdownTimeout)
	return
}
