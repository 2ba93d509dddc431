package syslog

import "testing"

func TestSeverityMappings(t *testing.T) {
	tests := []struct {
		name      string
		severity  string
		code      uint16
		expectErr bool
	}{
		{
			name:     "valid severity emerg",
			severity: "emerg",
			code:     0,
		},
		{
			name:     "valid severity info",
			severity: "info",
			code:     6,
		},
		{
			name:      "unknown severity string",
			severity:  "nope",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := SeverityToCode(tt.severity)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if code != tt.code {
				t.Fatalf("expected code %d, got %d", tt.code, code)
			}

			name, err := CodeToSeverity(code)
			if err != nil || name != tt.severity {
				t.Fatalf("reverse lookup of %d gave %q, %v", code, name, err)
			}
		})
	}

	if _, err := CodeToSeverity(8); err == nil {
		t.Fatalf("expected error for severity code 8")
	}
}

func TestFacilityMappings(t *testing.T) {
	tests := []struct {
		facility  string
		code      uint16
		expectErr bool
	}{
		{facility: "kern", code: 0},
		{facility: "authpriv", code: 10},
		{facility: "local7", code: 23},
		{facility: "local8", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.facility, func(t *testing.T) {
			code, err := FacilityToCode(tt.facility)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil || code != tt.code {
				t.Fatalf("FacilityToCode(%q) = %d, %v", tt.facility, code, err)
			}
			name, err := CodeToFacility(code)
			if err != nil || name != tt.facility {
				t.Fatalf("CodeToFacility(%d) = %q, %v", code, name, err)
			}
		})
	}
}

func TestSplitPriority(t *testing.T) {
	tests := []struct {
		line     string
		facility string
		severity string
		rest     string
		ok       bool
	}{
		{line: "<34>Oct 11 22:14:15 mymachine su: failed", facility: "auth", severity: "crit", rest: "Oct 11 22:14:15 mymachine su: failed", ok: true},
		{line: "<0>boot", facility: "kern", severity: "emerg", rest: "boot", ok: true},
		{line: "<191>x", facility: "local7", severity: "debug", rest: "x", ok: true},
		{line: "<192>x", rest: "<192>x"},
		{line: "<>x", rest: "<>x"},
		{line: "<abc>x", rest: "<abc>x"},
		{line: "<96>x", rest: "<96>x"}, // facility 12 unassigned
		{line: "plain", rest: "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			facility, severity, rest, ok := SplitPriority(tt.line)
			if ok != tt.ok || rest != tt.rest {
				t.Fatalf("SplitPriority(%q) = %q, %q, %q, %v", tt.line, facility, severity, rest, ok)
			}
			if ok && (facility != tt.facility || severity != tt.severity) {
				t.Fatalf("expected %s.%s, got %s.%s", tt.facility, tt.severity, facility, severity)
			}
		})
	}
}
