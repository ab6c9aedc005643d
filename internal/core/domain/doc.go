// Package domain defines the core domain models for NoCSRF.
//
// Domain models are plain values without IO dependencies or framework
// coupling. This package contains:
//
//   - Session: server-side session record holding CSRF variables
//   - Token: the "<mac>.<timestamp>" token format and its inspection helpers
//   - Errors: coded domain errors shared by every layer
//
// Session records carry a version for optimistic locking in the
// repositories.
package domain
