package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
)

// fakeSession is an in-memory Session for exercising the CSRF core.
type fakeSession struct {
	mu       sync.Mutex
	id       string
	idErr    error
	inactive bool
	writeErr error
	vars     map[string]string
	writes   int
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id, vars: make(map[string]string)}
}

func (s *fakeSession) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inactive
}

func (s *fakeSession) Identity() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idErr != nil {
		return "", s.idErr
	}
	return s.id, nil
}

func (s *fakeSession) Write(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inactive {
		return domain.ErrSessionNotActive
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	s.vars[name] = value
	s.writes++
	return nil
}

func (s *fakeSession) Read(name, def string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inactive {
		return "", domain.ErrSessionNotActive
	}
	if v, ok := s.vars[name]; ok {
		return v, nil
	}
	return def, nil
}

// stubGenerator returns keys from a fixed list, then errors.
type stubGenerator struct {
	keys  []string
	calls int
	err   error
}

func (g *stubGenerator) Generate() (string, error) {
	if g.err != nil {
		return "", g.err
	}
	if g.calls >= len(g.keys) {
		return "", errors.New("stub generator exhausted")
	}
	k := g.keys[g.calls]
	g.calls++
	return k, nil
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

// mockSessionRepo is a mock implementation of SessionRepository for testing.
type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session

	// conflicts makes the next N updates fail with a version conflict.
	conflicts int
	getErr    error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[session.ID]; exists {
		return domain.ErrSessionConflict
	}
	m.sessions[session.ID] = session.Clone()
	return nil
}

func (m *mockSessionRepo) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	session, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (m *mockSessionRepo) Update(_ context.Context, session *domain.Session, expectedVersion uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.sessions[session.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if m.conflicts > 0 {
		m.conflicts--
		existing.IncrVersion()
		return domain.ErrSessionVersionConflict
	}
	if existing.Version != expectedVersion {
		return domain.ErrSessionVersionConflict
	}
	m.sessions[session.ID] = session.Clone()
	return nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, s := range m.sessions {
		if s.IsExpired() {
			delete(m.sessions, id)
			count++
		}
	}
	return count, nil
}

func (m *mockSessionRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions), nil
}
