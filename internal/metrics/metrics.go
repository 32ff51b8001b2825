// Package metrics exposes extraction call metrics for Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jackzampolin/scribe/internal/providers"
)

const namespace = "scribe"

// Recorder turns extraction call reports into Prometheus metrics. It
// implements providers.Observer.
type Recorder struct {
	calls    *prometheus.CounterVec
	attempts *prometheus.HistogramVec
	retries  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	tokens   *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the extraction metrics with reg. A nil reg uses a fresh
// registry, which keeps tests independent of the global default.
func New(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Recorder{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "calls_total",
			Help:      "Extraction calls by model and outcome kind.",
		}, []string{"model", "outcome"}),
		attempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "attempts",
			Help:      "HTTP attempts made per extraction call.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}, []string{"model"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "retries_total",
			Help:      "Retries after transient provider errors.",
		}, []string{"model"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "latency_seconds",
			Help:      "End-to-end extraction latency in seconds, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
		}, []string{"model"}),
		tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "tokens_total",
			Help:      "Tokens reported by the provider, by direction.",
		}, []string{"model", "direction"}),
		gatherer: reg,
	}
}

// ObserveCall records one finished extraction.
func (r *Recorder) ObserveCall(_ context.Context, report providers.CallReport) {
	outcome := string(providers.Classify(report.Err))
	if report.Err == nil {
		outcome = "success"
	}

	r.calls.WithLabelValues(report.Model, outcome).Inc()
	if report.Attempts > 0 {
		r.attempts.WithLabelValues(report.Model).Observe(float64(report.Attempts))
	}
	if report.Attempts > 1 {
		r.retries.WithLabelValues(report.Model).Add(float64(report.Attempts - 1))
	}
	r.latency.WithLabelValues(report.Model).Observe(report.Latency.Seconds())

	if report.Usage.InputTokens > 0 {
		r.tokens.WithLabelValues(report.Model, "input").Add(float64(report.Usage.InputTokens))
	}
	if report.Usage.OutputTokens > 0 {
		r.tokens.WithLabelValues(report.Model, "output").Add(float64(report.Usage.OutputTokens))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

var _ providers.Observer = (*Recorder)(nil)
