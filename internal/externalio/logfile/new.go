// Text log inputs (tailed files and line streams) feeding an outbox queue
package logfile

import (
	"fmt"
	"os"

	"packetlog/internal/global"
	"packetlog/internal/queue/mpsc"
)

// Creates a tail input for filePath. The read position is kept in stateFile across restarts.
func NewInput(namespace []string, filePath string, stateFile string, outbox *mpsc.Queue[LogLine]) (module *InModule, err error) {
	if outbox == nil {
		err = fmt.Errorf("log file input requires an outbox")
		return
	}

	file, err := os.Open(filePath)
	if err != nil {
		err = fmt.Errorf("failed to open source file: %w", err)
		return
	}

	module = &InModule{
		Namespace: append(append([]string(nil), namespace...), global.NSWatcher),
		filePath:  filePath,
		stateFile: stateFile,
		sink:      file,
		outbox:    outbox,
		defaults:  localDefaults(filePath),
	}
	return
}

func localDefaults(source string) (defaults LogLine) {
	defaults = LogLine{
		Hostname:    global.Hostname,
		PID:         global.PID,
		Application: "-",
		Severity:    DefaultSeverity,
		Source:      source,
	}
	if defaults.Hostname == "" {
		defaults.Hostname, _ = os.Hostname()
	}
	if defaults.PID == 0 {
		defaults.PID = os.Getpid()
	}
	return
}
