package maintenance

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for maintenance jobs.
type Metrics struct {
	// Job executions by job and result
	jobRuns *prometheus.CounterVec

	// Job execution latency
	jobDuration *prometheus.HistogramVec

	// Tenant reset attempts beyond the first
	resetRetries prometheus.Counter

	// Tenants whose reset failed after every attempt
	resetFailures prometheus.Counter

	// Audit records removed by retention cleanup
	cleanupDeleted prometheus.Counter

	// Scheduler state (1 running, 0 stopped)
	schedulerRunning prometheus.Gauge
}

// NewMetrics creates the maintenance collectors and registers them on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_maintenance_job_runs_total",
				Help: "Total number of maintenance job executions",
			},
			[]string{"job", "result"},
		),

		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tollgate_maintenance_job_duration_seconds",
				Help:    "Maintenance job execution latency",
				Buckets: []float64{0.01, 0.1, 1, 10, 60, 300, 1800},
			},
			[]string{"job"},
		),

		resetRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tollgate_maintenance_reset_retries_total",
				Help: "Total number of tenant reset retries",
			},
		),

		resetFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tollgate_maintenance_reset_failures_total",
				Help: "Total number of tenants whose monthly reset failed",
			},
		),

		cleanupDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tollgate_maintenance_cleanup_deleted_total",
				Help: "Total number of audit records deleted by retention cleanup",
			},
		),

		schedulerRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tollgate_maintenance_scheduler_running",
				Help: "Whether the maintenance scheduler is running",
			},
		),
	}
}

// RecordJob records one job execution. result is "success", "partial" or
// "error".
func (m *Metrics) RecordJob(job, result string, duration time.Duration) {
	m.jobRuns.WithLabelValues(job, result).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}
