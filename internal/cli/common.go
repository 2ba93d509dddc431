package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"packetlog/internal/global"
	"packetlog/internal/logctx"
)

func SetGlobalArguments(fs *flag.FlagSet) (logLevel *int) {
	logLevel = new(int)
	fs.IntVar(logLevel, "v", global.VerbosityStandard, "Increase detailed progress messages (Higher is more verbose) <0...5>")
	fs.IntVar(logLevel, "verbosity", global.VerbosityStandard, "Increase detailed progress messages (Higher is more verbose) <0...5>")
	return
}

func SetCommon(fs *flag.FlagSet, configPath *string) {
	fs.StringVar(configPath, "c", global.DefaultConfigPath, "Path to the configuration file (json, yaml or toml)")
	fs.StringVar(configPath, "config", global.DefaultConfigPath, "Path to the configuration file (json, yaml or toml)")
}

// Parses args, printing help and exiting when none are given and required is set
func parseArgs(commandFlags *flag.FlagSet, commandname string, args []string, required bool) {
	commandFlags.Usage = func() {
		PrintHelpMenu(os.Stdout, commandFlags, commandname, global.CmdOpts)
	}
	if required && len(args) < 1 {
		PrintHelpMenu(os.Stdout, commandFlags, commandname, global.CmdOpts)
		os.Exit(1)
	}
	commandFlags.Parse(args)
}

// Replaces the context logger with one writing to the requested destination and format.
// The returned stop drains the new logger.
func switchLogger(ctx context.Context, level int, format string, logFile string) (newCtx context.Context, stop func(), err error) {
	var output io.Writer = os.Stdout
	var file *os.File
	if logFile != "" {
		file, err = os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			err = fmt.Errorf("failed to open log file: %w", err)
			return
		}
		output = file
	}

	done := make(chan struct{})
	logger := logctx.NewLogger("agent", level, done)
	if format == "json" {
		logctx.StartJSONWatcher(logger, output)
	} else {
		logctx.StartWatcher(logger, output)
	}
	newCtx = logctx.WithLogger(ctx, logger)

	stop = func() {
		close(done)
		logger.Wake()
		logger.Wait()
		if file != nil {
			file.Close()
		}
	}
	return
}

func exitOnError(err error, format string, vars ...any) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: "+format+": %v\n", append(vars, err)...)
	os.Exit(1)
}
