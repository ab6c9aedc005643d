// Package metric provides Prometheus metrics for NoCSRF.
package metric

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CountFunc reports the current number of stored sessions.
type CountFunc func(ctx context.Context) (int, error)

// SessionCollector samples the session count at scrape time.
type SessionCollector struct {
	count   CountFunc
	timeout time.Duration

	active *prometheus.Desc
	up     *prometheus.Desc
}

// NewSessionCollector creates a collector around count.
func NewSessionCollector(count CountFunc) *SessionCollector {
	return &SessionCollector{
		count:   count,
		timeout: 2 * time.Second,
		active: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "session", "active"),
			"Sessions currently stored.",
			nil, nil,
		),
		up: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "session", "store_up"),
			"Whether the session store answered the last scrape.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *SessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.up
}

// Collect implements prometheus.Collector.
func (c *SessionCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	n, err := c.count(ctx)
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(n))
}
