package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/internal/telemetry/logger"
)

// SessionRepository defines the storage interface for session operations.
type SessionRepository interface {
	// Create creates a new session in storage.
	Create(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Update replaces a session if its stored version equals expectedVersion.
	Update(ctx context.Context, session *domain.Session, expectedVersion uint64) error

	// Delete deletes a session by ID.
	Delete(ctx context.Context, id string) error

	// DeleteExpired deletes all expired sessions and returns the count.
	DeleteExpired(ctx context.Context) (int, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)
}

// SessionServiceConfig configures the SessionService.
type SessionServiceConfig struct {
	// TTL is the idle lifetime of a session. Touch extends it. Zero disables expiry.
	TTL time.Duration

	// MaxWriteRetries bounds optimistic-lock retries per mutation.
	MaxWriteRetries int

	// OnSweep, when set, receives the number of sessions each sweep removed.
	OnSweep func(removed int)
}

// DefaultSessionServiceConfig returns the default configuration.
func DefaultSessionServiceConfig() *SessionServiceConfig {
	return &SessionServiceConfig{
		TTL:             24 * time.Hour,
		MaxWriteRetries: 5,
	}
}

// SessionService manages the server-side sessions that back CSRF keys.
type SessionService struct {
	repo   SessionRepository
	config *SessionServiceConfig
}

// NewSessionService creates a new SessionService.
func NewSessionService(repo SessionRepository, config *SessionServiceConfig) *SessionService {
	if config == nil {
		config = DefaultSessionServiceConfig()
	}
	if config.MaxWriteRetries <= 0 {
		config.MaxWriteRetries = 1
	}
	return &SessionService{
		repo:   repo,
		config: config,
	}
}

// StartSessionRequest contains parameters for starting a session.
type StartSessionRequest struct {
	SessionID string // Optional, from the client cookie
	ClientIP  string
	UserAgent string
}

// StartSessionResponse contains the result of starting a session.
type StartSessionResponse struct {
	Session *domain.Session
	Created bool // true when a new session was created
}

// Start resumes the requested session, or creates a new one when the ID is
// absent, malformed, unknown or expired.
func (s *SessionService) Start(ctx context.Context, req *StartSessionRequest) (*StartSessionResponse, error) {
	if id := domain.NormalizeSessionID(req.SessionID); id != "" {
		sess, err := s.Get(ctx, id)
		switch {
		case err == nil:
			return &StartSessionResponse{Session: sess}, nil
		case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired):
			logger.L(ctx).Debug("session not resumable, starting new", "session_id", id, "reason", domain.GetErrorCode(err))
		default:
			return nil, err
		}
	}

	sess, err := domain.NewSession()
	if err != nil {
		return nil, err
	}
	sess.IPAddress = truncate(req.ClientIP, domain.MaxIPAddressLength)
	sess.LastAccessIP = sess.IPAddress
	sess.UserAgent = truncate(req.UserAgent, domain.MaxUserAgentLength)
	sess.SetExpiration(s.config.TTL)

	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}

	return &StartSessionResponse{Session: sess, Created: true}, nil
}

// Get retrieves a live session by ID.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.ErrMissingArgument.WithDetails("session_id is required")
	}

	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repoError(err)
	}
	if sess.IsExpired() {
		return nil, domain.ErrSessionExpired
	}
	return sess, nil
}

// Touch records activity and slides the expiration forward.
func (s *SessionService) Touch(ctx context.Context, id, clientIP string) (*domain.Session, error) {
	return s.mutate(ctx, id, func(sess *domain.Session) {
		sess.Touch(truncate(clientIP, domain.MaxIPAddressLength))
		sess.SetExpiration(s.config.TTL)
	})
}

// SetVariable stores one session variable. Concurrent writers never lose
// each other's variables; for the same name the last writer wins.
func (s *SessionService) SetVariable(ctx context.Context, id, name, value string) (*domain.Session, error) {
	return s.mutate(ctx, id, func(sess *domain.Session) {
		sess.Set(name, value)
	})
}

// Revoke deletes a session.
func (s *SessionService) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrMissingArgument.WithDetails("session_id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return repoError(err)
	}
	return nil
}

// SweepExpired removes expired sessions and returns how many were removed.
func (s *SessionService) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	return n, nil
}

// RunSweeper calls SweepExpired every interval until ctx is cancelled.
func (s *SessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				logger.L(ctx).Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.L(ctx).Info("expired sessions removed", "count", n)
			}
			if s.config.OnSweep != nil {
				s.config.OnSweep(n)
			}
		}
	}
}

// Count returns the number of stored sessions.
func (s *SessionService) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	return n, nil
}

// Handle binds a session to ctx as the Session collaborator.
func (s *SessionService) Handle(ctx context.Context, sess *domain.Session) *Handle {
	return newHandle(ctx, s, sess)
}

// mutate applies fn to the latest stored copy, retrying on version conflicts.
func (s *SessionService) mutate(ctx context.Context, id string, fn func(*domain.Session)) (*domain.Session, error) {
	var lastErr error
	for attempt := 0; attempt < s.config.MaxWriteRetries; attempt++ {
		sess, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		oldVersion := sess.Version
		fn(sess)
		sess.IncrVersion()

		if err := sess.Validate(); err != nil {
			return nil, err
		}

		err = s.repo.Update(ctx, sess, oldVersion)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, domain.ErrSessionVersionConflict) {
			return nil, repoError(err)
		}
		lastErr = err
	}
	return nil, domain.ErrSessionVersionConflict.WithCause(lastErr)
}

// repoError passes domain errors through and classifies anything else as a
// storage failure.
func repoError(err error) error {
	if domain.IsDomainError(err, "") {
		return err
	}
	return domain.ErrStorageError.WithCause(err)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
