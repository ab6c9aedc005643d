package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/internal/core/service"
	"github.com/yndnr/nocsrf-go/internal/telemetry/metric"
)

// maxVerifyBody caps the JSON body accepted by POST /csrf/verify.
const maxVerifyBody = 16 << 10

// IssueToken handles GET /csrf/token.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	guard := GuardFromContext(r.Context())
	if guard == nil {
		WriteDomainError(w, r, domain.ErrSessionUnavailable)
		return
	}

	tok, err := guard.Token()
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	h.cfg.Metrics.TokenIssued()

	issuedAt, _ := domain.TokenIssuedAt(tok)
	w.Header().Set(h.cfg.HeaderName, tok)
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, r, http.StatusOK, &TokenResponse{
		Token:      tok,
		FormField:  h.cfg.FormField,
		HeaderName: h.cfg.HeaderName,
		IssuedAt:   issuedAt.UTC(),
	})
}

// VerifyToken handles POST /csrf/verify.
//
// The candidate is read from a JSON body {"token": "..."} when the request
// is JSON, otherwise from the form field and then the header. A failed
// check is reported in the body, not as an error status.
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	guard := GuardFromContext(r.Context())
	if guard == nil {
		WriteDomainError(w, r, domain.ErrSessionUnavailable)
		return
	}

	candidate, err := h.candidate(w, r, guard)
	if err != nil {
		WriteDomainError(w, r, domain.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	if candidate == "" {
		h.cfg.Metrics.ObserveVerification(metric.ResultMissing)
		WriteJSON(w, r, http.StatusOK, &VerifyResponse{Reason: ReasonMissing})
		return
	}

	ok, err := guard.Verify(candidate)
	if err != nil {
		h.cfg.Metrics.ObserveVerification(metric.ResultError)
		WriteServiceError(w, r, err)
		return
	}
	if !ok {
		h.cfg.Metrics.ObserveVerification(metric.ResultInvalid)
		reason := ReasonMismatch
		if !domain.ValidateTokenFormat(candidate) {
			reason = ReasonMalformed
		}
		WriteJSON(w, r, http.StatusOK, &VerifyResponse{Reason: reason})
		return
	}

	h.cfg.Metrics.ObserveVerification(metric.ResultValid)
	WriteJSON(w, r, http.StatusOK, &VerifyResponse{Valid: true})
}

func (h *Handler) candidate(w http.ResponseWriter, r *http.Request, guard *service.Guard) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return guard.Candidate(r), nil
	}

	var req VerifyRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVerifyBody))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if req.Token != "" {
		return req.Token, nil
	}
	return r.Header.Get(h.cfg.HeaderName), nil
}
