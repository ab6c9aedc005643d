// Package domain defines the core domain models for NoCSRF.
package domain

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// TokenSeparator separates the MAC from the timestamp in a CSRF token.
const TokenSeparator = "."

// FormatToken assembles "<mac>.<unix millis>".
func FormatToken(mac string, issuedAt time.Time) string {
	return JoinToken(mac, strconv.FormatInt(issuedAt.UnixMilli(), 10))
}

// JoinToken is the inverse of SplitToken for a mac that contains no separator.
func JoinToken(mac, timestamp string) string {
	return mac + TokenSeparator + timestamp
}

// SplitToken splits a token on its last separator.
// A token without a separator yields an empty mac and the whole input as
// the timestamp part.
func SplitToken(token string) (mac, timestamp string) {
	i := strings.LastIndex(token, TokenSeparator)
	if i < 0 {
		return "", token
	}
	return token[:i], token[i+1:]
}

// TokenIssuedAt returns the issue time encoded in a token.
func TokenIssuedAt(token string) (time.Time, error) {
	_, ts := SplitToken(token)
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, ErrTokenMalformed.WithDetails("timestamp is not a non-negative integer")
	}
	return time.UnixMilli(ms), nil
}

// ValidateTokenFormat checks that a token is lowercase hex, a separator
// and a decimal timestamp. It says nothing about authenticity.
func ValidateTokenFormat(token string) bool {
	mac, ts := SplitToken(token)
	if mac == "" || ts == "" {
		return false
	}
	if mac != strings.ToLower(mac) || len(mac)%2 != 0 {
		return false
	}
	if _, err := hex.DecodeString(mac); err != nil {
		return false
	}
	if _, err := TokenIssuedAt(token); err != nil {
		return false
	}
	return true
}

// MaskToken masks a token for safe logging.
// Example: 3fa...9c1.1700000000000
func MaskToken(token string) string {
	mac, ts := SplitToken(token)
	if len(mac) <= 6 {
		return "***REDACTED***"
	}
	return mac[:3] + "..." + mac[len(mac)-3:] + TokenSeparator + ts
}
