package config

import "strings"

// Sanitize returns a copy of cfg with secrets masked, for logging and for
// "config validate" output.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg
	out.CSRF.ProtectMethods = append([]string(nil), cfg.CSRF.ProtectMethods...)
	out.Security.CORSAllowedOrigins = append([]string(nil), cfg.Security.CORSAllowedOrigins...)
	if out.Session.EncryptionKey != "" {
		out.Session.EncryptionKey = maskSecret(out.Session.EncryptionKey)
	}
	return &out
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
