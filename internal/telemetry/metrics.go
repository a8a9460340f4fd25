// Package telemetry exposes turn metrics through Prometheus and serves
// them together with liveness and readiness probes.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hammamikhairi/polyglot/internal/domain"
)

const namespace = "polyglot"

// Breaker state values of the llm_breaker_state gauge.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// Metrics holds the collectors on a private registry so tests and
// multiple instances never collide on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	Turns           *prometheus.CounterVec
	Replies         *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	CleanupFailures prometheus.Counter
	TranscribeErrs  prometheus.Counter
	BreakerState    prometheus.Gauge
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Turns handled, by input modality and outcome.",
		}, []string{"modality", "outcome"}),
		Replies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies produced, by source (primary or fallback).",
		}, []string{"source"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of each turn stage.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"stage"}),
		CleanupFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "temp_cleanup_failures_total",
			Help:      "Temporary files that could not be deleted after all retries.",
		}),
		TranscribeErrs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Recognizer failures that were reported as silence.",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "llm_breaker_state",
			Help:      "Primary-path circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
	}
}

// StageDone implements engine.Observer.
func (m *Metrics) StageDone(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// TurnDone implements engine.Observer.
func (m *Metrics) TurnDone(t *domain.Turn) {
	m.Turns.WithLabelValues(t.Modality.String(), t.Outcome.String()).Inc()
	if t.ReplyText != "" {
		m.Replies.WithLabelValues(t.ReplySource.String()).Inc()
	}
}

// CleanupFailed counts a leaked temporary file. Its signature matches
// audio.WithLeakHook.
func (m *Metrics) CleanupFailed(path string, err error) {
	m.CleanupFailures.Inc()
}

// TranscriptionFailed counts a swallowed recognizer error.
func (m *Metrics) TranscriptionFailed(err error) {
	m.TranscribeErrs.Inc()
}

// BreakerChanged records a breaker transition. Its signature matches
// gpt.WithStateHook.
func (m *Metrics) BreakerChanged(from, to string) {
	switch to {
	case "open":
		m.BreakerState.Set(BreakerOpen)
	case "half-open":
		m.BreakerState.Set(BreakerHalfOpen)
	default:
		m.BreakerState.Set(BreakerClosed)
	}
}
