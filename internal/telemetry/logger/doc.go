// Package logger provides structured logging for NoCSRF.
//
// This package wraps log/slog:
//
//   - logger.go: logger configuration, dynamic level and the global default
//   - context.go: context-aware logging with request/trace IDs
//   - redact.go: sensitive data redaction
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering, adjustable at runtime
//   - Automatic masking of CSRF tokens and redaction of keys and secrets
//   - Context propagation for request tracing
package logger
