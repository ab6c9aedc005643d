// Package main provides the entry point for nocsrf-server.
//
// The server hands out per-session CSRF tokens over HTTP and rejects
// state-changing requests that do not carry a valid one:
//
//   - GET /csrf/token issues a token bound to the caller's session
//   - POST /csrf/verify reports whether a token is valid
//   - GET /session and POST /session/revoke inspect and end the session
//   - /health, /ready and /metrics serve operators
//
// Usage:
//
//	nocsrf-server serve --config /etc/nocsrf/server.yaml
//	nocsrf-server config validate --config /etc/nocsrf/server.yaml
//	nocsrf-server version
package main
