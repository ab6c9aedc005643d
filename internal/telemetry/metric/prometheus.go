// Package metric provides Prometheus metrics for NoCSRF.
package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "nocsrf"

// Verification outcomes.
const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
	ResultMissing = "missing"
	ResultError   = "error"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// CSRF metrics
	TokensIssued  prometheus.Counter
	Verifications *prometheus.CounterVec
	KeysGenerated prometheus.Counter

	// Session metrics
	SessionsStarted prometheus.Counter
	SessionsRevoked prometheus.Counter
	SessionsSwept   prometheus.Counter

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RateLimited     prometheus.Counter
}

// NewRegistry creates the metric set on a private Prometheus registry,
// together with the Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		TokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "csrf",
			Name:      "tokens_issued_total",
			Help:      "CSRF tokens minted.",
		}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "csrf",
			Name:      "verifications_total",
			Help:      "CSRF verifications by result.",
		}, []string{"result"}),
		KeysGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "csrf",
			Name:      "keys_generated_total",
			Help:      "Per-session secret keys generated.",
		}),

		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Sessions created.",
		}),
		SessionsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "session",
			Name:      "revoked_total",
			Help:      "Sessions revoked by clients.",
		}),
		SessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "session",
			Name:      "swept_total",
			Help:      "Expired sessions removed by the sweeper.",
		}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.TokensIssued,
		r.Verifications,
		r.KeysGenerated,
		r.SessionsStarted,
		r.SessionsRevoked,
		r.SessionsSwept,
		r.RequestsTotal,
		r.RequestDuration,
		r.RateLimited,
	)
	return r
}

// Prometheus returns the underlying registry for extra collectors.
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// MustRegister adds collectors to the registry.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	if r == nil {
		return
	}
	r.reg.MustRegister(cs...)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveHTTP records one served request.
func (r *Registry) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveVerification records a verification outcome.
func (r *Registry) ObserveVerification(result string) {
	if r == nil {
		return
	}
	r.Verifications.WithLabelValues(result).Inc()
}

// TokenIssued counts a minted CSRF token.
func (r *Registry) TokenIssued() {
	if r != nil {
		r.TokensIssued.Inc()
	}
}

// KeyGenerated counts a freshly generated session key.
func (r *Registry) KeyGenerated() {
	if r != nil {
		r.KeysGenerated.Inc()
	}
}

// SessionStarted counts a newly created session.
func (r *Registry) SessionStarted() {
	if r != nil {
		r.SessionsStarted.Inc()
	}
}

// SessionRevoked counts a session revoked by its client.
func (r *Registry) SessionRevoked() {
	if r != nil {
		r.SessionsRevoked.Inc()
	}
}

// SessionsRemoved adds n swept sessions.
func (r *Registry) SessionsRemoved(n int) {
	if r != nil && n > 0 {
		r.SessionsSwept.Add(float64(n))
	}
}

// RequestRateLimited counts a request rejected by the limiter.
func (r *Registry) RequestRateLimited() {
	if r != nil {
		r.RateLimited.Inc()
	}
}
