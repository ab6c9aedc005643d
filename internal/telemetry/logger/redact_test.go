package logger

import (
	"strings"
	"testing"
)

var sampleToken = strings.Repeat("0123456789abcdef", 8) + ".1700000000000"

func TestRedactSensitive_Token(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	l.Info("csrf token issued", "token", sampleToken, "note", sampleToken)

	entry := decodeEntry(t, buf)
	want := "012...def.1700000000000"
	if entry["token"] != want {
		t.Errorf("token = %v, want %q", entry["token"], want)
	}
	if entry["note"] != want {
		t.Errorf("token-shaped value under a neutral key = %v, want %q", entry["note"], want)
	}
}

func TestRedactSensitive_SensitiveKeyName(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"password", "hunter2"},
		{"session_key", "c2VjcmV0LWtleQ=="},
		{"encryption_key", "abc"},
		{"client_secret", "s3cr3t"},
		{"cookie", "ncsid=ncss-abc"},
		{"csrf_token", "not-a-token-shape"},
		{"authorization", "Bearer xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			l, buf := newBufferLogger(t, "info", "json")
			l.Info("test", tt.key, tt.value)

			entry := decodeEntry(t, buf)
			if entry[tt.key] != redactedValue {
				t.Errorf("%s = %v, want %q", tt.key, entry[tt.key], redactedValue)
			}
		})
	}
}

func TestRedactSensitive_NormalValues(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	l.Info("request", "session_id", "ncss-01arz3ndektsv4rrffq69g5fav", "path", "/csrf/token", "empty_secret", "")

	entry := decodeEntry(t, buf)
	if entry["session_id"] != "ncss-01arz3ndektsv4rrffq69g5fav" {
		t.Errorf("session_id should not be redacted, got %v", entry["session_id"])
	}
	if entry["path"] != "/csrf/token" {
		t.Errorf("path should not be redacted, got %v", entry["path"])
	}
	if entry["empty_secret"] != "" {
		t.Errorf("empty values stay empty, got %v", entry["empty_secret"])
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	l.Info("config", "csrf", map[string]any{"ignored": true})
	buf.Reset()
	l.With("session", "x").Info("nested")

	if strings.Contains(buf.String(), redactedValue) {
		t.Errorf("unexpected redaction: %s", buf.String())
	}
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"csrf token", sampleToken, "012...def.1700000000000"},
		{"short mac", "abcd.1000", "abcd.1000"},
		{"upper case mac", strings.ToUpper(sampleToken), strings.ToUpper(sampleToken)},
		{"normal value", "normalvalue123", "normalvalue123"},
		{"session id", "ncss-01arz3ndektsv4rrffq69g5fav", "ncss-01arz3ndektsv4rrffq69g5fav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key       string
		sensitive bool
	}{
		{"password", true},
		{"PASSWORD", true},
		{"secret", true},
		{"key", true},
		{"session_key", true},
		{"token", true},
		{"csrf_token", true},
		{"cookie", true},
		{"set-cookie", true},
		{"credential", true},
		{"auth", true},
		{"bearer", true},
		{"session_id", false},
		{"request_id", false},
		{"path", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := IsSensitiveKey(tt.key); got != tt.sensitive {
				t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.sensitive)
			}
		})
	}
}

func TestIsSensitiveValue(t *testing.T) {
	tests := []struct {
		value     string
		sensitive bool
	}{
		{sampleToken, true},
		{strings.Repeat("a", 64) + ".1", true},
		{strings.Repeat("a", 63) + ".1", false},
		{strings.Repeat("a", 64) + ".", false},
		{strings.Repeat("a", 64) + ".12z", false},
		{"ncss-01arz3ndektsv4rrffq69g5fav", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsSensitiveValue(tt.value); got != tt.sensitive {
			t.Errorf("IsSensitiveValue(%q) = %v, want %v", tt.value, got, tt.sensitive)
		}
	}
}
