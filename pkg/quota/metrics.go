package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the quota package.
type Metrics struct {
	// Quota decisions by check and result
	checks *prometheus.CounterVec

	// Counter-store failures that admitted the request
	failOpen prometheus.Counter

	// Asynchronous usage increments by result
	usageUpdates *prometheus.CounterVec
}

// NewMetrics registers the quota collectors on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_quota_checks_total",
				Help: "Total number of quota checks performed",
			},
			[]string{"check", "result"},
		),

		failOpen: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tollgate_quota_fail_open_total",
				Help: "Total number of rate checks admitted because the counter store failed",
			},
		),

		usageUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_quota_usage_updates_total",
				Help: "Total number of asynchronous monthly usage increments",
			},
			[]string{"result"},
		),
	}
}

// RecordCheck records the outcome of a quota check.
func (m *Metrics) RecordCheck(check string, admitted bool) {
	result := "admitted"
	if !admitted {
		result = "rejected"
	}
	m.checks.WithLabelValues(check, result).Inc()
}

// RecordFailOpen records a fail-open admission.
func (m *Metrics) RecordFailOpen() {
	m.failOpen.Inc()
}

// RecordUsageUpdate records an asynchronous usage increment.
func (m *Metrics) RecordUsageUpdate(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.usageUpdates.WithLabelValues(result).Inc()
}
