// Handles installation of the agent as a systemd service
package install

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Read in installation static files at compile time
//
//go:embed static-files/*
var installationFiles embed.FS

// Full installation (idempotent)
func Run(configPath string) (err error) {
	if os.Geteuid() != 0 {
		err = fmt.Errorf("installation must be run as root")
		return
	}

	// Move binary (self) into place
	err = installBinary()
	if err != nil {
		err = fmt.Errorf("failed installing binary: %w", err)
		return
	}

	err = installConfig(configPath)
	if err != nil {
		err = fmt.Errorf("failed writing template config: %w", err)
		return
	}

	err = installService(configPath)
	if err != nil {
		err = fmt.Errorf("failed installing systemd service: %w", err)
		return
	}

	fmt.Printf("Installation completed successfully\n")
	return
}

// Full uninstall, configuration and session files are kept
func Remove() (err error) {
	if !confirm(os.Stdin, os.Stdout, "Are you SURE you want to uninstall the agent?") {
		fmt.Printf("Aborting uninstall\n")
		return
	}

	if os.Geteuid() != 0 {
		err = fmt.Errorf("uninstall must be run as root")
		return
	}

	err = uninstallService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error with Systemd service: %v\n", err)
	}

	binErr := uninstallBinary()
	if binErr != nil {
		fmt.Fprintf(os.Stderr, "Error removing binary: %v\n", binErr)
		if err == nil {
			err = binErr
		}
	}
	return
}

// Asks a yes/no question when stdout is a terminal. Without a terminal the answer is yes.
func confirm(in io.Reader, out *os.File, question string) (yes bool) {
	if !term.IsTerminal(int(out.Fd())) {
		yes = true
		return
	}

	fmt.Fprintf(out, "%s (yes/no): ", question)
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	yes = strings.ToLower(strings.TrimSpace(input)) == "yes"
	return
}
