package handler

import (
	"context"

	"github.com/yndnr/nocsrf-go/internal/core/service"
)

type contextKey string

const (
	sessionKey contextKey = "nocsrf.session"
	guardKey   contextKey = "nocsrf.guard"
)

// WithSession stores the request's session handle.
func WithSession(ctx context.Context, h *service.Handle) context.Context {
	return context.WithValue(ctx, sessionKey, h)
}

// SessionFromContext returns the session handle, or nil.
func SessionFromContext(ctx context.Context) *service.Handle {
	h, _ := ctx.Value(sessionKey).(*service.Handle)
	return h
}

// WithGuard stores the request's Guard.
func WithGuard(ctx context.Context, g *service.Guard) context.Context {
	return context.WithValue(ctx, guardKey, g)
}

// GuardFromContext returns the request's Guard, or nil.
func GuardFromContext(ctx context.Context) *service.Guard {
	g, _ := ctx.Value(guardKey).(*service.Guard)
	return g
}
