package httpserver

import (
	"net/http"
	"strings"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/internal/core/service"
	"github.com/yndnr/nocsrf-go/internal/server/httpserver/handler"
	"github.com/yndnr/nocsrf-go/internal/telemetry/logger"
	"github.com/yndnr/nocsrf-go/internal/telemetry/metric"
)

// SessionConfig configures the Session middleware.
type SessionConfig struct {
	Sessions   *service.SessionService
	Cookie     handler.Cookie
	Guard      *service.Config
	Metrics    *metric.Registry
	TrustProxy bool
}

// Session resolves the session cookie to a live session, starting a new
// one when the cookie is missing, unknown or expired. The session handle
// and a Guard bound to it are placed in the request context.
func Session(cfg SessionConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := ClientIP(r, cfg.TrustProxy)

			var cookieID string
			if c, err := r.Cookie(cfg.Cookie.Name); err == nil {
				cookieID = c.Value
			}

			resp, err := cfg.Sessions.Start(ctx, &service.StartSessionRequest{
				SessionID: cookieID,
				ClientIP:  ip,
				UserAgent: r.UserAgent(),
			})
			if err != nil {
				logger.L(ctx).Error("session start failed", "error", err)
				handler.WriteDomainError(w, r, domain.ErrSessionUnavailable)
				return
			}

			sess := resp.Session
			if resp.Created {
				cfg.Metrics.SessionStarted()
			} else if touched, err := cfg.Sessions.Touch(ctx, sess.ID, ip); err == nil {
				sess = touched
			} else {
				logger.L(ctx).Warn("session touch failed", "session_id", sess.ID, "error", err)
			}

			// Refreshing the cookie keeps its lifetime in step with the session TTL.
			cfg.Cookie.Set(w, sess.ID)
			if rw, ok := w.(*responseWriter); ok {
				rw.sessionID = sess.ID
			}

			h := cfg.Sessions.Handle(ctx, sess)
			ctx = logger.WithSessionID(ctx, sess.ID)
			ctx = handler.WithSession(ctx, h)
			ctx = handler.WithGuard(ctx, service.NewGuard(h, cfg.Guard))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProtectConfig configures the Protect middleware.
type ProtectConfig struct {
	// Methods are the request methods that require a token.
	Methods []string

	// ExemptPaths are exact paths that are never checked.
	ExemptPaths []string

	Metrics *metric.Registry
}

// Protect rejects requests using a protected method unless they carry a
// token that verifies against the session's key. It must run after Session.
func Protect(cfg ProtectConfig) Middleware {
	methods := make(map[string]struct{}, len(cfg.Methods))
	for _, m := range cfg.Methods {
		methods[strings.ToUpper(m)] = struct{}{}
	}
	exempt := make(map[string]struct{}, len(cfg.ExemptPaths))
	for _, p := range cfg.ExemptPaths {
		exempt[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := methods[r.Method]; !ok {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := exempt[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			guard := handler.GuardFromContext(r.Context())
			if guard == nil {
				handler.WriteDomainError(w, r, domain.ErrSessionUnavailable)
				return
			}

			candidate := guard.Candidate(r)
			if candidate == "" {
				cfg.Metrics.ObserveVerification(metric.ResultMissing)
				logger.L(r.Context()).Warn("csrf token missing", "method", r.Method, "path", r.URL.Path)
				handler.WriteDomainError(w, r, domain.ErrTokenMissing)
				return
			}

			ok, err := guard.Verify(candidate)
			if err != nil {
				cfg.Metrics.ObserveVerification(metric.ResultError)
				handler.WriteServiceError(w, r, err)
				return
			}
			if !ok {
				cfg.Metrics.ObserveVerification(metric.ResultInvalid)
				logger.L(r.Context()).Warn("csrf token rejected", "method", r.Method, "path", r.URL.Path, "token", candidate)
				handler.WriteDomainError(w, r, domain.ErrTokenMismatch)
				return
			}

			cfg.Metrics.ObserveVerification(metric.ResultValid)
			next.ServeHTTP(w, r)
		})
	}
}
