// Package httpserver provides the HTTP/HTTPS server for NoCSRF.
//
// Endpoints:
//
//   - CSRF: GET /csrf/token, POST /csrf/verify
//   - Session: GET /session, POST /session/revoke
//   - Health: /health, /ready, /metrics
//
// Session routes share one middleware chain: RequestID, Recover,
// AccessLog, CORS, RateLimit, Observe, Session and Protect. Session maps
// the session cookie to a service.Handle and a per-request Guard; Protect
// rejects unsafe methods that lack a valid token with 403.
package httpserver
