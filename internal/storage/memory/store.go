package memory

import (
	"context"
	"time"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/pkg/cmap"
)

// Store keeps sessions in memory. It satisfies service.SessionRepository.
//
// Every value handed in or out is cloned, so callers never share a
// *domain.Session with the map.
type Store struct {
	sessions *cmap.Map[string, *domain.Session]
	now      func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithShards sets the number of map shards. Must be a power of two.
func WithShards(n int) Option {
	return func(s *Store) {
		s.sessions = cmap.NewWithShards[string, *domain.Session](n)
	}
}

// WithClock overrides the time source used for expiry sweeps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		sessions: cmap.New[string, *domain.Session](),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new session. An existing ID yields ErrSessionConflict.
func (s *Store) Create(_ context.Context, session *domain.Session) error {
	if session == nil {
		return domain.ErrMissingArgument.WithDetails("session is nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}
	if !s.sessions.SetIfAbsent(session.ID, session.Clone()) {
		return domain.ErrSessionConflict
	}
	return nil
}

// Get returns a copy of the session. Expired entries report
// ErrSessionExpired until the next sweep removes them.
func (s *Store) Get(_ context.Context, id string) (*domain.Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if s.expired(session) {
		return nil, domain.ErrSessionExpired
	}
	return session.Clone(), nil
}

// Update replaces the stored session when its version equals expectedVersion.
// The stored copy, and session itself, end up at expectedVersion+1.
func (s *Store) Update(_ context.Context, session *domain.Session, expectedVersion uint64) error {
	if session == nil {
		return domain.ErrMissingArgument.WithDetails("session is nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	clone := session.Clone()
	if cmap.CompareAndSwap(s.sessions, session.ID, expectedVersion, clone) {
		session.Version = clone.Version
		return nil
	}
	if _, ok := s.sessions.Get(session.ID); !ok {
		return domain.ErrSessionNotFound
	}
	return domain.ErrSessionVersionConflict
}

// Delete removes a session.
func (s *Store) Delete(_ context.Context, id string) error {
	if _, ok := s.sessions.Pop(id); !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteExpired removes every expired session and returns how many went.
func (s *Store) DeleteExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := s.sessions.DeleteIf(func(_ string, session *domain.Session) bool {
		return s.expired(session)
	})
	return n, nil
}

// Count returns the number of stored sessions, expired ones included.
func (s *Store) Count(_ context.Context) (int, error) {
	return s.sessions.Count(), nil
}

// Len is Count without the context, for metrics collectors.
func (s *Store) Len() int {
	return s.sessions.Count()
}

func (s *Store) expired(session *domain.Session) bool {
	return session.ExpiresAt > 0 && s.now().UnixMilli() > session.ExpiresAt
}
