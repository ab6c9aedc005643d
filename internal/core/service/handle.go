package service

import (
	"context"
	"errors"
	"sync"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
)

// Handle is a request-scoped view of a stored session. Reads are served
// from the snapshot taken when the handle was created; writes go through
// the SessionService and refresh it.
type Handle struct {
	ctx context.Context
	svc *SessionService

	mu      sync.Mutex
	sess    *domain.Session
	revoked bool
}

var _ Session = (*Handle)(nil)

func newHandle(ctx context.Context, svc *SessionService, sess *domain.Session) *Handle {
	if ctx == nil {
		ctx = context.Background()
	}
	h := &Handle{ctx: ctx, svc: svc}
	if sess != nil {
		h.sess = sess.Clone()
	}
	return h
}

// ID returns the session ID, or "" for an empty handle.
func (h *Handle) ID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sess == nil {
		return ""
	}
	return h.sess.ID
}

// Snapshot returns a copy of the session as last seen by this handle.
func (h *Handle) Snapshot() *domain.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sess == nil {
		return nil
	}
	return h.sess.Clone()
}

// IsActive reports whether the session exists, is unexpired and has not
// been revoked through this handle.
func (h *Handle) IsActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.activeLocked()
}

func (h *Handle) activeLocked() bool {
	return h.sess != nil && !h.revoked && !h.sess.IsExpired()
}

// Identity returns the session ID.
func (h *Handle) Identity() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sess == nil || h.sess.ID == "" {
		return "", domain.ErrSessionUnavailable
	}
	return h.sess.ID, nil
}

// Read returns a session variable from the snapshot.
func (h *Handle) Read(name, def string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.activeLocked() {
		return "", domain.ErrSessionNotActive
	}
	return h.sess.Get(name, def), nil
}

// Write persists a session variable.
func (h *Handle) Write(name, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.activeLocked() {
		return domain.ErrSessionNotActive
	}

	updated, err := h.svc.SetVariable(h.ctx, h.sess.ID, name, value)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrSessionExpired) {
			h.revoked = true
			return domain.ErrSessionNotActive.WithCause(err)
		}
		return err
	}
	h.sess = updated
	return nil
}

// Revoke deletes the session and deactivates the handle.
func (h *Handle) Revoke() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sess == nil {
		return domain.ErrSessionNotActive
	}
	h.revoked = true
	return h.svc.Revoke(h.ctx, h.sess.ID)
}
