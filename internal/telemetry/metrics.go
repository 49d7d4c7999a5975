package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service. A nil *Metrics is
// valid and records nothing, which keeps tests off the global registry.
type Metrics struct {
	OrdersTotal    *prometheus.CounterVec
	CarrierErrors  *prometheus.CounterVec
	FallbacksTotal *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	RunOrders      prometheus.Histogram
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		OrdersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recon_orders_total",
				Help: "Total orders reconciled by carrier and resulting status",
			},
			[]string{"carrier", "status"},
		),
		CarrierErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recon_carrier_errors_total",
				Help: "Total reconciliation failures by carrier and error type",
			},
			[]string{"carrier", "error_type"},
		),
		FallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recon_fallbacks_total",
				Help: "Total enhanced-tracking calls that fell back to basic tracking",
			},
			[]string{"carrier"},
		),
		RunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recon_run_duration_seconds",
				Help:    "Reconciliation run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		RunOrders: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recon_run_orders",
				Help:    "Eligible orders per reconciliation run",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
	}
}

// RecordOrder records a completed per-order reconciliation.
func (m *Metrics) RecordOrder(carrier, status string) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(carrier, status).Inc()
}

// RecordError records a per-order reconciliation failure.
func (m *Metrics) RecordError(carrier, errorType string) {
	if m == nil {
		return
	}
	m.CarrierErrors.WithLabelValues(carrier, errorType).Inc()
}

// RecordFallback records an enhanced-to-basic tracking fallback.
func (m *Metrics) RecordFallback(carrier string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(carrier).Inc()
}

// RecordRun records a completed reconciliation run.
func (m *Metrics) RecordRun(durationSeconds float64, orders int) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(durationSeconds)
	m.RunOrders.Observe(float64(orders))
}
