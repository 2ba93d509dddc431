package cli

import "packetlog/internal/global"

func DefineOptions() (cmdOpts *global.CommandSet) {
	// Root level
	root := &global.CommandSet{
		Description:     "Packet Logging Agent (packetlog)",
		FullDescription: "  Records structured log messages and metric samples as binary session files",
		CommandName:     RootCLICommand,
		ChildCommands:   make(map[string]*global.CommandSet),
	}

	// Daemon
	root.ChildCommands["run"] = &global.CommandSet{
		CommandName:     "run",
		Description:     "Run Logging Agent",
		FullDescription: "Reads text log lines from files and/or stdin and writes them to the configured outputs until stopped",
	}

	// Reading
	root.ChildCommands["inspect"] = &global.CommandSet{
		CommandName:     "inspect",
		UsageOption:     "<session file>...",
		Description:     "Print Session Files",
		FullDescription: "Decodes session files and prints their header and packets",
	}
	root.ChildCommands["replay"] = &global.CommandSet{
		CommandName:     "replay",
		UsageOption:     "<session file|folder>...",
		Description:     "Replay Session Files",
		FullDescription: "Writes the packets of existing session files to a CSV folder and/or a beats server",
	}

	// Maintenance
	root.ChildCommands["prune"] = &global.CommandSet{
		CommandName:     "prune",
		Description:     "Prune Session Repository",
		FullDescription: "Removes expired session files and the oldest files beyond the disk usage limit",
	}

	// Setup
	root.ChildCommands["configure"] = &global.CommandSet{
		CommandName:     "configure",
		Description:     "Setup Actions",
		FullDescription: "Write template configuration files and install or remove the systemd service",
	}

	// Version Info
	root.ChildCommands["version"] = &global.CommandSet{
		CommandName:     "version",
		Description:     "Show Version Information",
		FullDescription: "Display meta information about program",
	}

	cmdOpts = root
	return
}
