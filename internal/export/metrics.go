// Copyright 2025 LifeReady
package export

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for the export pipeline.
type Metrics struct {
	bundles *prometheus.CounterVec
}

// NewMetrics constructs and registers the export collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bundles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "export_bundles_total",
			Help: "Count of export bundle attempts, by case_type and outcome.",
		}, []string{"case_type", "outcome"}),
	}
	reg.MustRegister(m.bundles)
	return m
}

// ObserveBundle records one completed export attempt.
func (m *Metrics) ObserveBundle(caseType, outcome string) {
	if m == nil {
		return
	}
	m.bundles.WithLabelValues(caseType, outcome).Inc()
}
