package logfile

import (
	"testing"
	"time"

	"packetlog/pkg/packets"
)

func TestParseLine(t *testing.T) {
	defaults := LogLine{
		Hostname:    "localhost01",
		PID:         4242,
		Application: "-",
		Severity:    DefaultSeverity,
		Source:      "/var/log/test.log",
	}

	tests := []struct {
		name           string
		input          string
		expectedOutput LogLine
	}{
		{
			name:  "Default",
			input: "short message",
			expectedOutput: LogLine{
				Text:        "short message",
				Hostname:    "localhost01",
				Application: "-",
				PID:         4242,
				Severity:    DefaultSeverity,
			},
		},
		{
			name:  "Default Empty",
			input: "",
			expectedOutput: LogLine{
				Text:        "-",
				Hostname:    "localhost01",
				Application: "-",
				PID:         4242,
				Severity:    DefaultSeverity,
			},
		},
		{
			name:  "Format Type 1",
			input: `Jul  9 18:05:33 Host1 rsyslogd: [origin software="rsyslogd" swVersion="8.2302.0" x-pid="4765" x-info="https://www.rsyslog.com"] start`,
			expectedOutput: LogLine{
				Text:        `[origin software="rsyslogd" swVersion="8.2302.0" x-pid="4765" x-info="https://www.rsyslog.com"] start`,
				Hostname:    "Host1",
				Timestamp:   timeParsePanic("Jan _2 15:04:05", "Jul  9 18:05:33", true),
				Application: "rsyslogd",
				PID:         4242,
				Severity:    DefaultSeverity,
			},
		},
		{
			name:  "Format Type 2",
			input: `Nov 17 09:52:41 Host1 kernel: Linux version 6.1.0-27-amd64 (debian-kernel@lists.debian.org) (gcc-12 (Debian 12.2.0-14) 12.2.0, GNU ld (2024-11-01)`,
			expectedOutput: LogLine{
				Text:        `Linux version 6.1.0-27-amd64 (debian-kernel@lists.debian.org) (gcc-12 (Debian 12.2.0-14) 12.2.0, GNU ld (2024-11-01)`,
				Hostname:    "Host1",
				Timestamp:   timeParsePanic("Jan _2 15:04:05", "Nov 17 09:52:41", true),
				Application: "kernel",
				PID:         4242,
				Severity:    DefaultSeverity,
			},
		},
		{
			name:  "Format Type 3",
			input: `Nov 17 12:18:00 Host1 audisp-syslog[1135]: type=BPF msg=audit(1731874680.879:116): prog-id=17 op=UNLOAD`,
			expectedOutput: LogLine{
				Text:        `type=BPF msg=audit(1731874680.879:116): prog-id=17 op=UNLOAD`,
				Hostname:    "Host1",
				Timestamp:   timeParsePanic("Jan _2 15:04:05", "Nov 17 12:18:00", true),
				Application: "audisp-syslog",
				PID:         1135,
				Severity:    DefaultSeverity,
			},
		},
		{
			name:  "Format Type 4",
			input: `2025/03/15 10:47:59 [notice] 33709#33709: using inherited sockets from "5;6;"`,
			expectedOutput: LogLine{
				Text:        `using inherited sockets from "5;6;"`,
				Hostname:    "localhost01",
				Timestamp:   timeParsePanic("2006/01/02 15:04:05", "2025/03/15 10:47:59", false),
				Application: "-",
				PID:         33709,
				Severity:    "notice",
			},
		},
		{
			name:  "Format Type 5",
			input: `2025-12-03 17:46:26 status triggers-pending libc-bin:amd64 2.41-12`,
			expectedOutput: LogLine{
				Text:        `status triggers-pending libc-bin:amd64 2.41-12`,
				Hostname:    "localhost01",
				Timestamp:   timeParsePanic("2006-01-02 15:04:05", "2025-12-03 17:46:26", false),
				Application: "-",
				PID:         4242,
				Severity:    DefaultSeverity,
			},
		},
		{
			name:  "Format Type 6",
			input: `10.10.10.10 - - [28/Jul/2024:03:58:35 -0700] "GET / HTTP/1.1" 444 0 "-" "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"`,
			expectedOutput: LogLine{
				Text:        `10.10.10.10 - - [28/Jul/2024:03:58:35 -0700] "GET / HTTP/1.1" 444 0 "-" "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"`,
				Hostname:    "localhost01",
				Timestamp:   timeParsePanic("02/Jan/2006:15:04:05 -0700", "28/Jul/2024:03:58:35 -0700", false),
				Application: "-",
				PID:         4242,
				Severity:    DefaultSeverity,
			},
		},
		{
			name:  "Format Type 7",
			input: `[19-Sep-2023 16:52:51] NOTICE: Terminating ...`,
			expectedOutput: LogLine{
				Text:        `Terminating ...`,
				Hostname:    "localhost01",
				Timestamp:   timeParsePanic("02-Jan-2006 15:04:05", "19-Sep-2023 16:52:51", false),
				Application: "-",
				PID:         4242,
				Severity:    "notice",
			},
		},
		{
			name:  "Format Type 8",
			input: `2025-12-21T18:39:01.211585-08:00 Host1 systemd[1]: Starting phpsessionclean.service - Clean php session files...`,
			expectedOutput: LogLine{
				Text:        `Starting phpsessionclean.service - Clean php session files...`,
				Hostname:    "Host1",
				Timestamp:   timeParsePanic("2006-01-02T15:04:05.999999-07:00", "2025-12-21T18:39:01.211585-08:00", false),
				Application: "systemd",
				PID:         1,
				Severity:    DefaultSeverity,
			},
		},
		{
			name:  "Format Type 8 No pid",
			input: `2025-12-21T19:08:28.506905-08:00 Host1 php8.4-cgi: php_invoke mbstring: already enabled for PHP 8.4 cgi sapi`,
			expectedOutput: LogLine{
				Text:        `php_invoke mbstring: already enabled for PHP 8.4 cgi sapi`,
				Hostname:    "Host1",
				Timestamp:   timeParsePanic("2006-01-02T15:04:05.999999-07:00", "2025-12-21T19:08:28.506905-08:00", false),
				Application: "php8.4-cgi",
				PID:         4242,
				Severity:    DefaultSeverity,
			},
		},
		{
			name:  "Syslog Priority",
			input: `<34>Oct 11 22:14:15 mymachine su[311]: 'su root' failed for lonvick on /dev/pts/8`,
			expectedOutput: LogLine{
				Text:        `'su root' failed for lonvick on /dev/pts/8`,
				Hostname:    "mymachine",
				Timestamp:   timeParsePanic("Jan _2 15:04:05", "Oct 11 22:14:15", true),
				Application: "su",
				PID:         311,
				Severity:    "crit",
				Facility:    "auth",
			},
		},
		{
			name:  "Priority Only",
			input: `<13>disk almost full`,
			expectedOutput: LogLine{
				Text:        "disk almost full",
				Hostname:    "localhost01",
				Application: "-",
				PID:         4242,
				Severity:    "notice",
				Facility:    "user",
			},
		},
	}

	for _, tt := range tests {
		before := time.Now()
		t.Run(tt.name, func(t *testing.T) {
			output := parseLine(tt.input, defaults)
			after := time.Now()
			if output.Text != tt.expectedOutput.Text {
				t.Errorf("expected Text to be '%s', but got '%s'", tt.expectedOutput.Text, output.Text)
			}
			if tt.expectedOutput.Timestamp.IsZero() {
				if output.Timestamp.Before(before) || output.Timestamp.After(after) {
					t.Errorf("expected Timestamp to be now, but got '%s'", output.Timestamp)
				}
			} else if !output.Timestamp.Equal(tt.expectedOutput.Timestamp) {
				t.Errorf("expected Timestamp to be '%s', but got '%s'", tt.expectedOutput.Timestamp, output.Timestamp)
			}
			if output.Hostname != tt.expectedOutput.Hostname {
				t.Errorf("expected Hostname to be '%s', but got '%s'", tt.expectedOutput.Hostname, output.Hostname)
			}
			if output.Application != tt.expectedOutput.Application {
				t.Errorf("expected Application to be '%s', but got '%s'", tt.expectedOutput.Application, output.Application)
			}
			if output.PID != tt.expectedOutput.PID {
				t.Errorf("expected PID to be %d, but got %d", tt.expectedOutput.PID, output.PID)
			}
			if output.Severity != tt.expectedOutput.Severity {
				t.Errorf("expected Severity to be '%s', but got '%s'", tt.expectedOutput.Severity, output.Severity)
			}
			if output.Facility != tt.expectedOutput.Facility {
				t.Errorf("expected Facility to be '%s', but got '%s'", tt.expectedOutput.Facility, output.Facility)
			}
			if output.Source != defaults.Source {
				t.Errorf("expected Source to be '%s', but got '%s'", defaults.Source, output.Source)
			}
		})
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		input    string
		expected packets.Severity
	}{
		{"crit", packets.SeverityCritical},
		{"EMERG", packets.SeverityCritical},
		{"err", packets.SeverityError},
		{"Warning", packets.SeverityWarning},
		{"notice", packets.SeverityInformation},
		{"", packets.SeverityInformation},
		{"debug", packets.SeverityVerbose},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SeverityOf(tt.input); got != tt.expected {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func timeParsePanic(layout string, val string, noYear bool) (res time.Time) {
	res, err := time.Parse(layout, val)
	if err != nil {
		panic(err)
	}
	if noYear {
		res = withCurrentYear(res)
	}
	return
}
