// Package metrics exposes execution statistics in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scenarioctl/internal/api"
)

// Metrics records job and item statistics. It is a runner observer.
type Metrics struct {
	registry *prometheus.Registry

	jobsCreated  prometheus.Counter
	jobsFinished *prometheus.CounterVec // by outcome
	jobsRunning  prometheus.Gauge
	jobDuration  prometheus.Histogram

	results      *prometheus.CounterVec   // by type and outcome
	itemDuration *prometheus.HistogramVec // by type
}

// New creates the metrics and registers them, along with the Go runtime
// collectors, on a registry of their own.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		jobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scenarioctl",
			Subsystem: "jobs",
			Name:      "created_total",
			Help:      "Total number of jobs created",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scenarioctl",
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Total number of finished jobs by outcome",
		}, []string{"outcome"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scenarioctl",
			Subsystem: "jobs",
			Name:      "running",
			Help:      "Number of jobs currently running",
		}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scenarioctl",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Job run time in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),

		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scenarioctl",
			Subsystem: "items",
			Name:      "results_total",
			Help:      "Total number of item results by item type and outcome",
		}, []string{"type", "outcome"}),
		itemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scenarioctl",
			Subsystem: "items",
			Name:      "duration_seconds",
			Help:      "Item run time in seconds, nested items included",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		m.jobsCreated,
		m.jobsFinished,
		m.jobsRunning,
		m.jobDuration,
		m.results,
		m.itemDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// JobCreated counts a new job.
func (m *Metrics) JobCreated() {
	m.jobsCreated.Inc()
}

func (m *Metrics) JobStarted(string) {
	m.jobsRunning.Inc()
}

func (m *Metrics) ItemFinished(_ string, r api.Result) {
	m.results.WithLabelValues(r.Subject.Type, string(r.Outcome)).Inc()
	m.itemDuration.WithLabelValues(r.Subject.Type).Observe(r.DurationMs / 1000)
}

func (m *Metrics) JobFinished(_ string, outcome api.Outcome, duration time.Duration) {
	m.jobsRunning.Dec()
	m.jobsFinished.WithLabelValues(string(outcome)).Inc()
	m.jobDuration.Observe(duration.Seconds())
}
