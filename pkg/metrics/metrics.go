// Package metrics holds the Prometheus collectors for agent runs.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the agent loop collectors.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	RetriesTotal  prometheus.Counter
	StageDuration *prometheus.HistogramVec
	Retrieved     prometheus.Histogram
	IngestedTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns collectors registered on the process-wide registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultMetrics
}

// New registers a fresh set of collectors on reg. Tests pass their own registry.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ewa_agent_runs_total",
			Help: "Agent runs by outcome (approved, rejected, error)",
		}, []string{"outcome"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ewa_agent_run_duration_seconds",
			Help:    "End-to-end agent run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
		}),
		RetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ewa_agent_retries_total",
			Help: "Retries triggered by the reflection stage",
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ewa_agent_stage_duration_seconds",
			Help:    "Stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"stage"}),
		Retrieved: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ewa_agent_retrieved_chunks",
			Help:    "Chunks returned by the findings tool per iteration",
			Buckets: []float64{0, 1, 2, 4, 8, 12, 16},
		}),
		IngestedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ewa_ingested_chunks_total",
			Help: "Report chunks indexed into the retrieval store",
		}),
		gatherer: gatherer,
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
