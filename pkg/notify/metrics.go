package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for notification delivery.
type Metrics struct {
	dispatched *prometheus.CounterVec
	deliveries *prometheus.CounterVec
}

// NewMetrics registers the notify collectors on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		dispatched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_notifications_total",
				Help: "Total number of notifications dispatched",
			},
			[]string{"job_type", "success"},
		),
		deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_webhook_deliveries_total",
				Help: "Total number of webhook delivery attempts",
			},
			[]string{"result"},
		),
	}
}
