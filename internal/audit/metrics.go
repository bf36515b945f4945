// Copyright 2025 LifeReady
package audit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the audit log: counting
// every append and its latency.
type Metrics struct {
	appended *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics constructs and registers the audit collectors against reg.
// Pass prometheus.NewRegistry() in tests to avoid colliding with the
// default global registry across test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		appended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_events_appended_total",
			Help: "Count of audit events appended, by action.",
		}, []string{"action"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "audit_append_duration_seconds",
			Help:    "Latency of the tail-read-and-insert audit append transaction.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.appended, m.duration)
	return m
}

// ObserveAppend records one completed append of the given action, taking
// seconds as measured by the caller (typically time.Since(start).Seconds()).
func (m *Metrics) ObserveAppend(action string, seconds float64) {
	if m == nil {
		return
	}
	m.appended.WithLabelValues(action).Inc()
	m.duration.Observe(seconds)
}
