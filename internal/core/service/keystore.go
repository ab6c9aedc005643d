package service

import (
	"github.com/yndnr/nocsrf-go/internal/core/domain"
)

// DefaultKeyVariable is the session variable holding the CSRF secret key.
const DefaultKeyVariable = "__nocsrf_key"

// Session is the session collaborator the CSRF core consumes.
type Session interface {
	// IsActive reports whether the session can be read and written.
	IsActive() bool

	// Identity returns the stable session identifier.
	// It returns domain.ErrSessionUnavailable when no identity exists.
	Identity() (string, error)

	// Write stores a session variable.
	// It returns domain.ErrSessionNotActive when the session is inactive.
	Write(name, value string) error

	// Read returns a session variable, or def when it is not set.
	// It returns domain.ErrSessionNotActive when the session is inactive.
	Read(name, def string) (string, error)
}

// KeyStore persists the per-session secret key.
type KeyStore interface {
	// Save stores the key and reports whether it was persisted.
	Save(sess Session, key string) bool

	// Read returns the stored key, or "" when none is stored.
	Read(sess Session) (string, error)
}

// SessionKeyStore keeps the key in a session variable.
type SessionKeyStore struct {
	variable string
}

// NewSessionKeyStore creates a KeyStore writing to the named variable.
// An empty name selects DefaultKeyVariable.
func NewSessionKeyStore(variable string) *SessionKeyStore {
	if variable == "" {
		variable = DefaultKeyVariable
	}
	return &SessionKeyStore{variable: variable}
}

// Variable returns the session variable name.
func (s *SessionKeyStore) Variable() string {
	return s.variable
}

// Save writes the key. It returns false when the session is inactive or the
// write fails.
func (s *SessionKeyStore) Save(sess Session, key string) bool {
	if sess == nil || !sess.IsActive() {
		return false
	}
	return sess.Write(s.variable, key) == nil
}

// Read returns the stored key or "".
func (s *SessionKeyStore) Read(sess Session) (string, error) {
	if sess == nil {
		return "", domain.ErrSessionNotActive.WithDetails("no session")
	}
	return sess.Read(s.variable, "")
}
