package handler

import (
	"github.com/yndnr/nocsrf-go/internal/core/service"
	"github.com/yndnr/nocsrf-go/internal/telemetry/metric"
)

// Config wires the handlers to their collaborators.
type Config struct {
	Sessions *service.SessionService
	Metrics  *metric.Registry
	Cookie   Cookie

	// KeyVariable is the session variable holding the CSRF key.
	KeyVariable string

	// FormField and HeaderName are echoed to clients by GET /csrf/token.
	FormField  string
	HeaderName string
}

// Handler serves the CSRF, session and health endpoints. Routing and
// middleware are assembled by the httpserver package.
type Handler struct {
	cfg Config
}

// New creates a Handler. Empty names fall back to the service defaults.
func New(cfg Config) *Handler {
	if cfg.KeyVariable == "" {
		cfg.KeyVariable = service.DefaultKeyVariable
	}
	if cfg.FormField == "" {
		cfg.FormField = service.DefaultFormField
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = service.DefaultHeaderName
	}
	return &Handler{cfg: cfg}
}
