package install

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"packetlog/internal/global"
)

// Unit file text with the binary and configuration paths filled in
func renderUnit(binaryPath string, configPath string) (unit string, err error) {
	template, err := installationFiles.ReadFile("static-files/packetlog.service")
	if err != nil {
		err = fmt.Errorf("unable to retrieve unit file from embedded filesystem: %w", err)
		return
	}

	unit = strings.Replace(string(template), "$executableFilePath", binaryPath, 1)
	unit = strings.Replace(unit, "$configFilePath", configPath, 1)
	return
}

func systemctl(args ...string) (output string, err error) {
	raw, err := exec.Command("systemctl", args...).CombinedOutput()
	output = strings.TrimSpace(string(raw))
	if err != nil {
		err = fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, output)
	}
	return
}

func installService(configPath string) (err error) {
	unitName := filepath.Base(global.DefaultServiceUnitPath)

	unit, err := renderUnit(global.DefaultBinaryPath, configPath)
	if err != nil {
		return
	}
	err = os.WriteFile(global.DefaultServiceUnitPath, []byte(unit), 0644)
	if err != nil {
		return
	}

	_, err = systemctl("daemon-reload")
	if err != nil {
		return
	}

	// Disabled status is exit code 1
	status, statusErr := systemctl("is-enabled", unitName)
	if statusErr != nil && !strings.Contains(status, "disabled") {
		err = statusErr
		return
	}
	if strings.ToLower(status) != "enabled" {
		_, err = systemctl("enable", unitName)
		if err != nil {
			return
		}
	}

	fmt.Printf("Successfully installed Systemd service\n")
	fmt.Printf("  IMPORTANT: modify the configuration to your needs and start the service with 'systemctl start %s'\n", unitName)
	return
}

func uninstallService() (err error) {
	unitName := filepath.Base(global.DefaultServiceUnitPath)

	// Disabled/not-found status is exit code != 0
	status, _ := systemctl("is-enabled", unitName)
	if strings.ToLower(status) == "enabled" {
		_, err = systemctl("disable", unitName)
		if err != nil {
			return
		}
	}

	state, _ := systemctl("show", unitName, "--property=ActiveState")
	if strings.Contains(state, "=active") {
		_, err = systemctl("stop", unitName)
		if err != nil {
			return
		}
	}

	err = os.Remove(global.DefaultServiceUnitPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return
		}
		err = nil
	}

	_, err = systemctl("daemon-reload")
	if err != nil {
		return
	}

	fmt.Printf("Successfully uninstalled systemd service\n")
	return
}
