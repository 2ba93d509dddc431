package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"packetlog/internal/global"
)

const (
	RootCLICommand  string = "root"
	helpMenuTrailer string = `
Signals while running: SIGHUP rotates output files, SIGUSR1 flushes them, SIGTERM/SIGINT stop the agent.
`
	defaultMenuWidth int = 100
	minMenuWidth     int = 40
)

// Width descriptions are wrapped at (terminal width, or a default when not a terminal)
func menuWidth(out io.Writer) (width int) {
	width = defaultMenuWidth
	file, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return
	}
	termWidth, _, err := term.GetSize(int(file.Fd()))
	if err == nil && termWidth >= minMenuWidth {
		width = termWidth
	}
	return
}

// Locates command in the tree, returning it with its parents (root first)
func findCommand(rootCmd *global.CommandSet, command string) (found *global.CommandSet, parents []*global.CommandSet) {
	if command == "" || command == RootCLICommand {
		found = rootCmd
		return
	}
	if cmd, ok := rootCmd.ChildCommands[command]; ok {
		found = cmd
		parents = []*global.CommandSet{rootCmd}
		return
	}
	for _, topCmd := range rootCmd.ChildCommands {
		if sub, ok := topCmd.ChildCommands[command]; ok {
			found = sub
			parents = []*global.CommandSet{rootCmd, topCmd}
			return
		}
	}
	return
}

// Full standardized help menu (wraps option printer as well)
func PrintHelpMenu(out io.Writer, fs *flag.FlagSet, command string, rootCmd *global.CommandSet) {
	const baseIndentSpaces = 2
	width := menuWidth(out)

	curCmdSet, parents := findCommand(rootCmd, command)
	if curCmdSet == nil {
		fmt.Fprintf(out, "Unknown command: %s\n", command)
		return
	}

	// Usage line, root name excluded
	usageParts := []string{os.Args[0]}
	for _, parent := range parents {
		if parent.CommandName != RootCLICommand {
			usageParts = append(usageParts, parent.CommandName)
		}
	}
	if curCmdSet.CommandName != RootCLICommand {
		usageParts = append(usageParts, curCmdSet.CommandName)
	}
	switch {
	case len(curCmdSet.ChildCommands) > 1:
		usageParts = append(usageParts, "[subcommand]")
	case len(curCmdSet.ChildCommands) == 1:
		for name := range curCmdSet.ChildCommands {
			usageParts = append(usageParts, name)
		}
	}
	usageParts = append(usageParts, "[options]")
	if curCmdSet.UsageOption != "" {
		usageParts = append(usageParts, curCmdSet.UsageOption)
	}
	fmt.Fprintf(out, "Usage: %s\n\n", strings.Join(usageParts, " "))

	// Description
	if curCmdSet == rootCmd {
		fmt.Fprintln(out, curCmdSet.Description)
		fmt.Fprintln(out, curCmdSet.FullDescription)
		fmt.Fprintln(out)
	} else if curCmdSet.FullDescription != "" {
		fmt.Fprintln(out, "  Description:")
		for _, line := range wrapText(curCmdSet.FullDescription, width-4) {
			fmt.Fprintf(out, "    %s\n", line)
		}
		fmt.Fprintln(out)
	}

	// Subcommands
	if len(curCmdSet.ChildCommands) > 0 {
		fmt.Fprintf(out, "%sSubcommands:\n", strings.Repeat(" ", baseIndentSpaces))

		subNames := make([]string, 0, len(curCmdSet.ChildCommands))
		maxLen := 0
		for name := range curCmdSet.ChildCommands {
			subNames = append(subNames, name)
			maxLen = max(maxLen, len(name))
		}
		sort.Strings(subNames)

		cmdIndent := strings.Repeat(" ", baseIndentSpaces+2)
		for _, name := range subNames {
			padding := strings.Repeat(" ", maxLen-len(name)+2)
			fmt.Fprintf(out, "%s%s%s - %s\n", cmdIndent, name, padding, curCmdSet.ChildCommands[name].Description)
		}
		fmt.Fprintln(out)
	}

	printFlagOptions(out, fs, baseIndentSpaces, width)

	if curCmdSet == rootCmd {
		fmt.Fprint(out, helpMenuTrailer)
	}
}

// One option line: every alias of a flag and its usage
type optionEntry struct {
	names      []string
	usage      string
	defaultVal string
	hasShort   bool
}

// Groups flags sharing a usage text (short and long alias of one option)
func collectOptions(fs *flag.FlagSet) (opts []*optionEntry) {
	byUsage := make(map[string]*optionEntry)
	fs.VisitAll(func(arg *flag.Flag) {
		name := "--" + arg.Name
		short := len(arg.Name) == 1
		if short {
			name = "-" + arg.Name
		}

		entry, seen := byUsage[arg.Usage]
		if !seen {
			entry = &optionEntry{usage: arg.Usage, defaultVal: arg.DefValue}
			byUsage[arg.Usage] = entry
			opts = append(opts, entry)
		}
		entry.names = append(entry.names, name)
		entry.hasShort = entry.hasShort || short
	})

	for _, entry := range opts {
		// Short alias first
		sort.Slice(entry.names, func(a, b int) bool {
			return len(entry.names[a]) < len(entry.names[b])
		})
	}
	sort.Slice(opts, func(a, b int) bool {
		return strings.ToLower(strings.TrimLeft(opts[a].names[0], "-")) < strings.ToLower(strings.TrimLeft(opts[b].names[0], "-"))
	})
	return
}

// Custom printer to deduplicate short/long usages and indent automatically
func printFlagOptions(out io.Writer, fs *flag.FlagSet, baseIndentSpaces int, width int) {
	const joiner string = ", "
	const argToUsageSpaces int = 2
	// Long-only options are indented past the space a short alias would use ("-x, ")
	longOnlyOffset := len(joiner) + 2

	opts := collectOptions(fs)
	if len(opts) == 0 {
		return
	}

	leftWidth := func(entry *optionEntry) (n int) {
		n = len(strings.Join(entry.names, joiner))
		if !entry.hasShort {
			n += longOnlyOffset
		}
		return
	}
	maxLen := 0
	for _, entry := range opts {
		maxLen = max(maxLen, leftWidth(entry))
	}

	usageColumn := baseIndentSpaces + maxLen + argToUsageSpaces
	usageWidth := max(width-usageColumn, minMenuWidth/2)

	fmt.Fprintf(out, "%sOptions:\n", strings.Repeat(" ", baseIndentSpaces))
	for _, entry := range opts {
		indent := baseIndentSpaces
		if !entry.hasShort {
			indent += longOnlyOffset
		}

		lines := wrapText(entry.usage, usageWidth)
		if entry.defaultVal != "" && entry.defaultVal != "false" && entry.defaultVal != "0" {
			// The default stays on one line, paths would be unreadable split up
			suffix := fmt.Sprintf("[default: %s]", entry.defaultVal)
			last := len(lines) - 1
			switch {
			case lines[last] == "":
				lines[last] = suffix
			case len(lines[last])+1+len(suffix) <= usageWidth:
				lines[last] += " " + suffix
			default:
				lines = append(lines, suffix)
			}
		}
		padding := strings.Repeat(" ", maxLen-leftWidth(entry)+argToUsageSpaces)
		fmt.Fprintf(out, "%s%s%s%s\n", strings.Repeat(" ", indent), strings.Join(entry.names, joiner), padding, lines[0])
		for _, line := range lines[1:] {
			fmt.Fprintf(out, "%s%s\n", strings.Repeat(" ", usageColumn), line)
		}
	}
}

// Splits text on spaces into lines no longer than width (single words may exceed it)
func wrapText(text string, width int) (lines []string) {
	words := strings.Fields(text)
	if len(words) == 0 {
		lines = []string{""}
		return
	}

	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	lines = append(lines, current)
	return
}
