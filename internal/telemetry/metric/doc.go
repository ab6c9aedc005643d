// Package metric provides Prometheus metrics for NoCSRF.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: the metric set, its registry and the HTTP handler
//   - collector.go: a collector sampling the live session count on scrape
//
// Metrics include:
//
//   - CSRF token issuance and verification outcomes
//   - Key generation and session lifecycle counters
//   - HTTP request counters and latency histograms
//
// A nil *Registry is valid and records nothing, so callers need not branch
// on whether metrics are enabled. Metrics are exposed at /metrics.
package metric
