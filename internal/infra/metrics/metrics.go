// Package metrics provides Prometheus metrics for the advisory service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ayuxy027/Krishak-AI/internal/usecase/generation"
)

const namespace = "krishak"

var _ generation.Metrics = (*Metrics)(nil)

// Metrics holds the generation collectors. It is safe for concurrent use.
type Metrics struct {
	// GenerationTotal counts completed generations by use case and outcome.
	GenerationTotal *prometheus.CounterVec
	// GenerationDuration measures end-to-end generation time including retries.
	GenerationDuration *prometheus.HistogramVec
	// RetryAttempts counts retry controller decisions.
	RetryAttempts *prometheus.CounterVec
	// TransportErrors counts failed sends by provider and error kind.
	TransportErrors *prometheus.CounterVec
	// ValidationDegraded counts results with at least one defaulted field.
	ValidationDegraded *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GenerationTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_requests_total",
				Help:      "Total number of generation requests",
			},
			[]string{"use_case", "outcome"},
		),
		GenerationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Duration of generation requests in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"use_case"},
		),
		RetryAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_attempts_total",
				Help:      "Total number of retry controller attempts by outcome",
			},
			[]string{"outcome"},
		),
		TransportErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transport_errors_total",
				Help:      "Total number of transport errors",
			},
			[]string{"provider", "kind"},
		),
		ValidationDegraded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_degraded_total",
				Help:      "Total number of results with defaulted fields",
			},
			[]string{"schema"},
		),
	}
}

// RecordGeneration records a finished generation.
func (m *Metrics) RecordGeneration(useCase, outcome string, elapsed time.Duration) {
	m.GenerationTotal.WithLabelValues(useCase, outcome).Inc()
	m.GenerationDuration.WithLabelValues(useCase).Observe(elapsed.Seconds())
}

// RecordRetryAttempt records one retry controller decision.
func (m *Metrics) RecordRetryAttempt(outcome string) {
	m.RetryAttempts.WithLabelValues(outcome).Inc()
}

// RecordTransportError records a failed send.
func (m *Metrics) RecordTransportError(provider, kind string) {
	m.TransportErrors.WithLabelValues(provider, kind).Inc()
}

// RecordValidationDegraded records a degraded result.
func (m *Metrics) RecordValidationDegraded(schema string) {
	m.ValidationDegraded.WithLabelValues(schema).Inc()
}
