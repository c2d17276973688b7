// Package metrics exposes Prometheus instrumentation for acquisition and study runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// Metrics groups every collector EventLens registers. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	AcquisitionAttempts *prometheus.CounterVec
	ProviderRequests    *prometheus.CounterVec
	BreakerState        *prometheus.GaugeVec
	StudyRuns           *prometheus.CounterVec
	StudyDuration       prometheus.Histogram
	BootstrapGroups     prometheus.Counter
}

// New creates a Metrics bound to a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		AcquisitionAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventlens",
			Name:      "acquisition_attempts_total",
			Help:      "Price acquisition tier attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		ProviderRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventlens",
			Name:      "provider_requests_total",
			Help:      "Upstream provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "eventlens",
			Name:      "provider_breaker_state",
			Help:      "Circuit breaker state per provider (0=closed, 1=half-open, 2=open).",
		}, []string{"provider"}),
		StudyRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventlens",
			Name:      "study_runs_total",
			Help:      "Event study runs by outcome.",
		}, []string{"outcome"}),
		StudyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eventlens",
			Name:      "study_duration_seconds",
			Help:      "Wall time of complete event study runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		BootstrapGroups: f.NewCounter(prometheus.CounterOpts{
			Namespace: "eventlens",
			Name:      "bootstrap_groups_total",
			Help:      "Event/window groups evaluated by bootstrap resampling.",
		}),
	}
}

func (m *Metrics) ObserveAcquisition(strategy, outcome string) {
	if m == nil {
		return
	}
	m.AcquisitionAttempts.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) ObserveProvider(provider, outcome string) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) SetBreakerState(provider string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(provider).Set(state)
}

func (m *Metrics) ObserveStudy(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StudyRuns.WithLabelValues(outcome).Inc()
	m.StudyDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) IncBootstrapGroups() {
	if m == nil {
		return
	}
	m.BootstrapGroups.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
