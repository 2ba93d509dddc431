package logfile

import (
	"strconv"
	"strings"
	"time"

	"packetlog/internal/syslog"
	"packetlog/pkg/packets"
)

const DefaultSeverity = "info"

// Parses file line text for common formats and extracts metadata.
// Fields not found in the line are taken from defaults.
func parseLine(rawLine string, defaults LogLine) (message LogLine) {
	line := strings.TrimSpace(rawLine)

	// Priority prefix overrides any severity found in the text
	facility, severity, rest, hasPriority := syslog.SplitPriority(line)
	message = parseFormat(strings.TrimSpace(rest), defaults)
	if hasPriority {
		message.Facility = facility
		message.Severity = severity
	}
	return
}

func parseFormat(line string, defaults LogLine) (message LogLine) {
	message.Source = defaults.Source

	// Format: Syslog
	if len(line) >= 15 {
		ts, err := time.Parse("Jan _2 15:04:05", line[:15])
		if err == nil {
			rest := strings.TrimSpace(line[15:])

			// host
			hostEnd := strings.IndexByte(rest, ' ')
			if hostEnd > 0 {
				message.Hostname = rest[:hostEnd]
				rest = strings.TrimSpace(rest[hostEnd+1:])

				// app[:pid]:
				colon := strings.Index(rest, ":")
				if colon > 0 {
					header := rest[:colon]
					message.Text = strings.TrimSpace(rest[colon+1:])
					message.Application, message.PID = splitProcess(header)
					message.Timestamp = withCurrentYear(ts)
					message = setDefaults(message, line, defaults)
					return
				}
			}
			message = LogLine{Source: defaults.Source}
		}
	}

	// Format: RFC3339 syslog (rsyslog high precision)
	if len(line) >= 33 && line[10] == 'T' {
		ts, err := time.Parse("2006-01-02T15:04:05.999999-07:00", line[:32])
		if err == nil {
			message.Timestamp = ts
			rest := strings.TrimSpace(line[32:])

			hostEnd := strings.IndexByte(rest, ' ')
			if hostEnd > 0 {
				message.Hostname = rest[:hostEnd]
				rest = strings.TrimSpace(rest[hostEnd+1:])

				if colon := strings.Index(rest, ":"); colon > 0 {
					message.Application, message.PID = splitProcess(rest[:colon])
					rest = rest[colon+1:]
				}
				message.Text = strings.TrimSpace(rest)
			}
			message = setDefaults(message, line, defaults)
			return
		}
	}

	// Format: nginx
	if len(line) >= 19 {
		ts, err := time.Parse("2006/01/02 15:04:05", line[:19])
		if err == nil {
			rest := strings.TrimSpace(line[19:])

			if strings.HasPrefix(rest, "[") {
				if rb := strings.Index(rest, "]"); rb > 1 {
					severity := strings.ToLower(rest[1:rb])
					rest = strings.TrimSpace(rest[rb+1:])

					if hash := strings.Index(rest, "#"); hash > 0 {
						if colon := strings.Index(rest, ":"); colon > hash {
							if pid, err := strconv.Atoi(rest[:hash]); err == nil {
								message.PID = pid
							}
							message.Severity = severity
							message.Text = strings.TrimSpace(rest[colon+1:])
							message.Timestamp = ts
							message = setDefaults(message, line, defaults)
							return
						}
					}
				}
			}
		}
	}

	// Format: Debian dpkg
	if len(line) >= 19 {
		if ts, err := time.Parse("2006-01-02 15:04:05", line[:19]); err == nil {
			message.Timestamp = ts
			message.Text = strings.TrimSpace(line[19:])
			message = setDefaults(message, line, defaults)
			return
		}
	}

	// Format: PHP
	if strings.HasPrefix(line, "[") {
		if rb := strings.Index(line, "]"); rb > 0 {
			if ts, err := time.Parse("02-Jan-2006 15:04:05", line[1:rb]); err == nil {
				rest := strings.TrimSpace(line[rb+1:])
				if colon := strings.Index(rest, ":"); colon > 0 {
					message.Severity = strings.ToLower(rest[:colon])
					message.Text = strings.TrimSpace(rest[colon+1:])
				}
				message.Timestamp = ts
				message = setDefaults(message, line, defaults)
				return
			}
		}
	}

	// Format: Apache access log (timestamp only, whole line is the text)
	if lb := strings.Index(line, "["); lb >= 0 {
		if rb := strings.Index(line[lb:], "]"); rb > 0 {
			if ts, err := time.Parse("02/Jan/2006:15:04:05 -0700", line[lb+1:lb+rb]); err == nil {
				message.Timestamp = ts
			}
		}
	}

	message = setDefaults(message, line, defaults)
	return
}

// app[pid] or app
func splitProcess(header string) (application string, pid int) {
	lb := strings.IndexByte(header, '[')
	if lb <= 0 {
		application = header
		return
	}
	application = header[:lb]
	if rb := strings.IndexByte(header, ']'); rb > lb+1 {
		if parsed, err := strconv.Atoi(header[lb+1 : rb]); err == nil {
			pid = parsed
		}
	}
	return
}

// Adds year (and timezone) to timestamps that do not have one
func withCurrentYear(old time.Time) (new time.Time) {
	now := time.Now()
	new = time.Date(now.Year(), old.Month(), old.Day(), old.Hour(), old.Minute(), old.Second(), 0, time.Local)
	return
}

// Replaces empty fields with expected defaults
func setDefaults(old LogLine, raw string, defaults LogLine) (new LogLine) {
	new = old
	if new.Application == "" {
		new.Application = defaults.Application
	}
	if new.Hostname == "" {
		new.Hostname = defaults.Hostname
	}
	if new.PID == 0 {
		new.PID = defaults.PID
	}
	if new.Timestamp.IsZero() {
		new.Timestamp = time.Now()
	}
	if new.Severity == "" {
		new.Severity = defaults.Severity
	}
	if new.Text == "" {
		if raw == "" {
			raw = "-"
		}
		new.Text = raw
	}
	return
}

// Maps a textual severity (syslog, nginx, php names) to a log message severity
func SeverityOf(name string) (severity packets.Severity) {
	switch strings.ToLower(name) {
	case "emerg", "emergency", "alert", "crit", "critical", "fatal", "panic":
		severity = packets.SeverityCritical
	case "err", "error":
		severity = packets.SeverityError
	case "warn", "warning":
		severity = packets.SeverityWarning
	case "debug", "trace", "verbose":
		severity = packets.SeverityVerbose
	default:
		severity = packets.SeverityInformation
	}
	return
}
