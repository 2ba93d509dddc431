// Syslog facility and severity codes, and the "<PRI>" prefix that carries both
package syslog

import (
	"fmt"
	"strconv"
	"strings"
)

var facilityToCode = map[string]uint16{
	"kern":     0,
	"user":     1,
	"mail":     2,
	"daemon":   3,
	"auth":     4,
	"syslog":   5,
	"lpr":      6,
	"news":     7,
	"uucp":     8,
	"cron":     9,
	"authpriv": 10,
	"ftp":      11,
	"local0":   16,
	"local1":   17,
	"local2":   18,
	"local3":   19,
	"local4":   20,
	"local5":   21,
	"local6":   22,
	"local7":   23,
}

// Indexed by code
var severityNames = [...]string{"emerg", "alert", "crit", "err", "warning", "notice", "info", "debug"}

var codeToFacility = func() (reverse map[uint16]string) {
	reverse = make(map[uint16]string, len(facilityToCode))
	for name, code := range facilityToCode {
		reverse[code] = name
	}
	return
}()

// Convert facility string to numeric code
func FacilityToCode(facility string) (code uint16, err error) {
	code, exists := facilityToCode[facility]
	if !exists {
		err = fmt.Errorf("unknown facility name: %s", facility)
	}
	return
}

// Convert facility code to string
func CodeToFacility(code uint16) (facility string, err error) {
	facility, exists := codeToFacility[code]
	if !exists {
		err = fmt.Errorf("unknown facility code: %d", code)
	}
	return
}

// Convert severity string to numeric code
func SeverityToCode(severity string) (code uint16, err error) {
	for i, name := range severityNames {
		if name == severity {
			code = uint16(i)
			return
		}
	}
	err = fmt.Errorf("unknown severity name: %s", severity)
	return
}

// Convert severity code to string
func CodeToSeverity(code uint16) (severity string, err error) {
	if int(code) >= len(severityNames) {
		err = fmt.Errorf("unknown severity code: %d", code)
		return
	}
	severity = severityNames[code]
	return
}

// Splits a leading "<PRI>" from line. ok is false when line has no valid priority,
// rest is then line unchanged.
func SplitPriority(line string) (facility string, severity string, rest string, ok bool) {
	rest = line
	if len(line) < 3 || line[0] != '<' {
		return
	}
	end := strings.IndexByte(line, '>')
	if end < 2 || end > 4 {
		return
	}
	pri, err := strconv.ParseUint(line[1:end], 10, 8)
	if err != nil || pri > 191 {
		return
	}

	facility, err = CodeToFacility(uint16(pri >> 3))
	if err != nil {
		return
	}
	severity = severityNames[pri&7]
	rest = line[end+1:]
	ok = true
	return
}
