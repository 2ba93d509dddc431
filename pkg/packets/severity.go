// Concrete packet types produced by the agent
package packets

import (
	"fmt"
	"strings"
)

// Log message severity. Lower values are more severe; values are persisted.
type Severity int32

const (
	SeverityCritical    Severity = 1
	SeverityError       Severity = 2
	SeverityWarning     Severity = 4
	SeverityInformation Severity = 8
	SeverityVerbose     Severity = 16
)

var severityNames = map[Severity]string{
	SeverityCritical:    "critical",
	SeverityError:       "error",
	SeverityWarning:     "warning",
	SeverityInformation: "information",
	SeverityVerbose:     "verbose",
}

func (s Severity) String() string {
	name, ok := severityNames[s]
	if !ok {
		return fmt.Sprintf("severity(%d)", int32(s))
	}
	return name
}

func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

// Parses a severity name (case insensitive, "info" and "warn" accepted)
func ParseSeverity(text string) (severity Severity, err error) {
	text = strings.ToLower(strings.TrimSpace(text))
	switch text {
	case "info":
		text = "information"
	case "warn":
		text = "warning"
	case "crit":
		text = "critical"
	case "err":
		text = "error"
	}
	for candidate, name := range severityNames {
		if name == text {
			severity = candidate
			return
		}
	}
	err = fmt.Errorf("unknown severity %q", text)
	return
}
