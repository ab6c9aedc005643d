package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
)

// GetSession handles GET /session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	handle := SessionFromContext(r.Context())
	if handle == nil {
		WriteDomainError(w, r, domain.ErrSessionUnavailable)
		return
	}
	sess := handle.Snapshot()
	if sess == nil {
		WriteDomainError(w, r, domain.ErrSessionUnavailable)
		return
	}

	resp := &SessionResponse{
		SessionID:  sess.ID,
		CreatedAt:  sess.CreatedAtTime().UTC(),
		LastActive: domainTime(sess.LastActive),
		KeyIssued:  sess.Get(h.cfg.KeyVariable, "") != "",
	}
	if sess.ExpiresAt > 0 {
		exp := sess.ExpiresAtTime().UTC()
		resp.ExpiresAt = &exp
	}
	WriteJSON(w, r, http.StatusOK, resp)
}

// RevokeSession handles POST /session/revoke.
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	handle := SessionFromContext(r.Context())
	if handle == nil {
		WriteDomainError(w, r, domain.ErrSessionUnavailable)
		return
	}

	id := handle.ID()
	if err := handle.Revoke(); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	h.cfg.Metrics.SessionRevoked()
	h.cfg.Cookie.Clear(w)

	WriteJSON(w, r, http.StatusOK, &RevokeResponse{SessionID: id, Revoked: true})
}

func domainTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
