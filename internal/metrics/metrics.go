package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gate
type Metrics struct {
	registry *prometheus.Registry

	// Validation metrics
	ValidationsTotal    *prometheus.CounterVec
	ValidationDuration  *prometheus.HistogramVec
	AuditAppendFailures prometheus.Counter

	// Learning metrics
	RecordingsTotal        *prometheus.CounterVec
	RecommendationDuration prometheus.Histogram
	IndexRebuildsTotal     prometheus.Counter
}

// NewMetrics creates and registers all metrics on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_validations_total",
				Help: "Total number of validation decisions",
			},
			[]string{"tool", "outcome", "reason"},
		),
		ValidationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolgate_validation_duration_seconds",
				Help:    "Duration of validation calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		AuditAppendFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "toolgate_audit_append_failures_total",
				Help: "Total number of failed audit log appends",
			},
		),

		RecordingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_usage_recordings_total",
				Help: "Total number of usage recordings",
			},
			[]string{"status"},
		),
		RecommendationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "toolgate_recommendation_duration_seconds",
				Help:    "Duration of recommendation scoring in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		IndexRebuildsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "toolgate_index_rebuilds_total",
				Help: "Total number of performance index rebuilds",
			},
		),
	}

	registry.MustRegister(
		m.ValidationsTotal,
		m.ValidationDuration,
		m.AuditAppendFailures,
		m.RecordingsTotal,
		m.RecommendationDuration,
		m.IndexRebuildsTotal,
	)

	return m
}

// Handler returns an HTTP handler exposing the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
