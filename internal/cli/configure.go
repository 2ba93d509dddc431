package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"packetlog/internal/install"
)

// Setup/installation options
func ConfigureMode(ctx context.Context, commandname string, args []string) {
	var configPath string
	var installAgent bool
	var uninstallAgent bool
	var newConf bool

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	SetCommon(commandFlags, &configPath)
	commandFlags.BoolVar(&installAgent, "install", false, "Install/Upgrade the agent as a systemd service")
	commandFlags.BoolVar(&uninstallAgent, "uninstall", false, "Remove the agent service and binary (configuration and session files are kept)")
	commandFlags.BoolVar(&newConf, "config-template", false, "Write a template configuration to the config path (format by extension)")
	parseArgs(commandFlags, commandname, args, true)

	var err error
	switch {
	case newConf:
		err = install.CreateTemplateConfig(configPath)
		if err == nil {
			fmt.Printf("Wrote template configuration to '%s'\n", configPath)
		}
	case installAgent:
		err = install.Run(configPath)
	case uninstallAgent:
		err = install.Remove()
	default:
		commandFlags.Usage()
		os.Exit(1)
	}
	exitOnError(err, "%s failed", commandname)
}
