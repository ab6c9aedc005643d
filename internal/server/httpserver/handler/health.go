package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/internal/infra/buildinfo"
)

// readyTimeout bounds the storage probe behind GET /ready.
const readyTimeout = 2 * time.Second

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, r, http.StatusOK, &HealthResponse{
		Status:  "healthy",
		Version: buildinfo.Get().Version,
		Time:    time.Now().UTC(),
	})
}

// Ready handles GET /ready. It reports not ready while the session store
// cannot be read.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Sessions == nil {
		WriteDomainError(w, r, domain.ErrServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	n, err := h.cfg.Sessions.Count(ctx)
	if err != nil {
		WriteDomainError(w, r, domain.ErrServiceUnavailable.WithDetails("session store not reachable"))
		return
	}

	WriteJSON(w, r, http.StatusOK, &HealthResponse{
		Status:   "ready",
		Sessions: &n,
		Time:     time.Now().UTC(),
	})
}
