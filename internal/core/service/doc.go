// Package service provides the CSRF protection core and the session
// services it runs on.
//
// Domain services contain pure business logic and orchestrate operations
// on domain models. They define interfaces for storage dependencies,
// allowing for dependency injection and testability.
//
// This package contains:
//
//   - Guard: per-request orchestrator that loads the session key and issues
//     or verifies CSRF tokens
//   - KeyStore / SessionKeyStore: persists the secret key as a session variable
//   - TokenCodec / HMACCodec: derives and checks "<mac>.<timestamp>" tokens
//   - SessionService / Handle: server-side sessions backing the Session
//     collaborator
//
// Strategies are stateless and safe to share. A Guard is not; create one
// per request.
package service
