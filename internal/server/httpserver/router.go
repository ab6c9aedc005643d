package httpserver

import (
	"net/http"

	"github.com/yndnr/nocsrf-go/internal/core/service"
	"github.com/yndnr/nocsrf-go/internal/server/httpserver/handler"
	"github.com/yndnr/nocsrf-go/internal/telemetry/logger"
	"github.com/yndnr/nocsrf-go/internal/telemetry/metric"
)

// Route paths.
const (
	PathToken   = "/csrf/token"
	PathVerify  = "/csrf/verify"
	PathSession = "/session"
	PathRevoke  = "/session/revoke"
	PathHealth  = "/health"
	PathReady   = "/ready"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Sessions *service.SessionService

	// Guard selects the CSRF strategies. Its FormField and HeaderName are
	// also advertised by GET /csrf/token.
	Guard *service.Config

	// KeyVariable is the session variable holding the CSRF key.
	KeyVariable string

	Cookie  handler.Cookie
	Metrics *metric.Registry
	Logger  logger.Logger

	// ProtectMethods require a valid token on every session route.
	ProtectMethods []string

	// RateLimit is the per-client request rate (requests/second). Zero disables it.
	RateLimit float64
	RateBurst int

	// CORSAllowedOrigins enables CORS for the listed origins.
	CORSAllowedOrigins []string

	// TrustProxyHeaders honours X-Forwarded-For and X-Real-IP.
	TrustProxyHeaders bool

	// MetricsPath serves Prometheus metrics when Metrics is set.
	MetricsPath string
}

// NewRouter creates the HTTP router with every route and its middleware.
//
// Session routes run: RequestID, Recover, AccessLog, CORS, RateLimit,
// Observe, Session, Protect.
func NewRouter(cfg *RouterConfig) http.Handler {
	guardCfg := cfg.Guard
	if guardCfg == nil {
		guardCfg = service.DefaultConfig()
	}

	h := handler.New(handler.Config{
		Sessions:    cfg.Sessions,
		Metrics:     cfg.Metrics,
		Cookie:      cfg.Cookie,
		KeyVariable: cfg.KeyVariable,
		FormField:   guardCfg.FormField,
		HeaderName:  guardCfg.HeaderName,
	})

	var limiter *LimiterRegistry
	if cfg.RateLimit > 0 {
		limiter = NewLimiterRegistry(cfg.RateLimit, cfg.RateBurst)
	}

	headerName := guardCfg.HeaderName
	if headerName == "" {
		headerName = service.DefaultHeaderName
	}

	// Outer middleware shared by every session route.
	edge := []Middleware{
		RequestID(cfg.Logger),
		Recover(),
		AccessLog(cfg.TrustProxyHeaders),
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		edge = append(edge, CORS(CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedHeaders: []string{headerName},
		}))
	}
	edge = append(edge, RateLimit(limiter, cfg.Metrics, cfg.TrustProxyHeaders))

	sessionMW := Session(SessionConfig{
		Sessions:   cfg.Sessions,
		Cookie:     cfg.Cookie,
		Guard:      guardCfg,
		Metrics:    cfg.Metrics,
		TrustProxy: cfg.TrustProxyHeaders,
	})
	protect := Protect(ProtectConfig{
		Methods:     cfg.ProtectMethods,
		ExemptPaths: []string{PathVerify},
		Metrics:     cfg.Metrics,
	})

	route := func(pattern string, fn http.HandlerFunc) http.Handler {
		mws := append(append([]Middleware{}, edge...),
			Observe(cfg.Metrics, pattern),
			sessionMW,
			protect,
		)
		return Chain(fn, mws...)
	}

	mux := http.NewServeMux()

	// Health endpoints never touch sessions.
	mux.Handle("GET "+PathHealth, Chain(http.HandlerFunc(h.Health), RequestID(cfg.Logger), Recover()))
	mux.Handle("GET "+PathReady, Chain(http.HandlerFunc(h.Ready), RequestID(cfg.Logger), Recover()))

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, cfg.Metrics.Handler())
	}

	mux.Handle("GET "+PathToken, route(PathToken, h.IssueToken))
	mux.Handle("POST "+PathVerify, route(PathVerify, h.VerifyToken))
	mux.Handle("GET "+PathSession, route(PathSession, h.GetSession))
	mux.Handle("POST "+PathRevoke, route(PathRevoke, h.RevokeSession))

	// Preflight requests for any route.
	if len(cfg.CORSAllowedOrigins) > 0 {
		mux.Handle("OPTIONS /", Chain(http.NotFoundHandler(), edge...))
	}

	return mux
}
