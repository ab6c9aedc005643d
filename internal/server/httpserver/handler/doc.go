// Package handler provides the HTTP handlers for NoCSRF.
//
// Handlers expect the session middleware to have placed a session handle
// and a request-scoped Guard in the request context:
//
//   - csrf.go: token issue and verification
//   - session.go: session inspection and revocation
//   - health.go: liveness and readiness checks
//
// Every JSON body uses the Response envelope. Errors carry an NC-* code in
// both the body and the X-Error-Code header.
package handler
