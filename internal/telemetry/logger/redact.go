// Package logger provides structured logging for NoCSRF.
package logger

import (
	"log/slog"
	"strings"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
)

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"key",
	"cookie",
	"credential",
	"auth",
	"bearer",
}

// tokenKeyPattern marks attributes that may carry a CSRF token. Well-formed
// tokens are partially masked; anything else is fully redacted.
const tokenKeyPattern = "token"

// minTokenMACLength is the shortest hex MAC treated as a CSRF token (sha256).
const minTokenMACLength = 64

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()

		// Token-shaped values are masked wherever they appear.
		if looksLikeToken(strVal) {
			return slog.String(a.Key, domain.MaskToken(strVal))
		}

		keyLower := strings.ToLower(a.Key)
		if strVal != "" && IsSensitiveKey(keyLower) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// looksLikeToken reports whether value has the "<hex mac>.<digits>" shape.
func looksLikeToken(value string) bool {
	i := strings.LastIndexByte(value, '.')
	if i < minTokenMACLength || i == len(value)-1 {
		return false
	}
	for _, c := range value[:i] {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	for _, c := range value[i+1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// RedactString manually redacts a string value.
// Use this when you need to redact a value before logging.
func RedactString(value string) string {
	if looksLikeToken(value) {
		return domain.MaskToken(value)
	}
	return value
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	if strings.Contains(keyLower, tokenKeyPattern) {
		return true
	}
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue checks if a value appears to be a CSRF token.
func IsSensitiveValue(value string) bool {
	return looksLikeToken(value)
}
