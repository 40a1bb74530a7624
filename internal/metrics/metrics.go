// Package metrics exposes Prometheus instruments for pipeline stages and
// artifact cleanup. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notecast"

// Stage outcomes.
const (
	OutcomeExecuted = "executed"
	OutcomeReused   = "reused"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Recorder holds the registered instruments.
type Recorder struct {
	registry        *prometheus.Registry
	stageRuns       *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	pipelineRuns    *prometheus.CounterVec
	cleanups        *prometheus.CounterVec
	pendingCleanups prometheus.Gauge
}

// New registers the notecast instruments on a fresh registry together with
// the Go runtime and process collectors.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		stageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Pipeline stage outcomes by stage.",
		}, []string{"stage", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of executed pipeline stages.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"stage"}),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline requests by result.",
		}, []string{"result"}),
		cleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanups_total",
			Help:      "Deferred artifact cleanups by outcome.",
		}, []string{"outcome"}),
		pendingCleanups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cleanups_pending",
			Help:      "Cleanups currently scheduled.",
		}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.stageRuns,
		r.stageDuration,
		r.pipelineRuns,
		r.cleanups,
		r.pendingCleanups,
	)
	return r
}

// Registry exposes the underlying registry for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveStage records one stage outcome. Duration is only observed for
// executed and failed stages.
func (r *Recorder) ObserveStage(stage, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.stageRuns.WithLabelValues(stage, outcome).Inc()
	if outcome == OutcomeExecuted || outcome == OutcomeFailed {
		r.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	}
}

// ObservePipeline records a finished request: "completed", "cached", or "failed".
func (r *Recorder) ObservePipeline(result string) {
	if r == nil {
		return
	}
	r.pipelineRuns.WithLabelValues(result).Inc()
}

// ObserveCleanup records a fired cleanup: "removed", "deferred", or "failed".
func (r *Recorder) ObserveCleanup(outcome string) {
	if r == nil {
		return
	}
	r.cleanups.WithLabelValues(outcome).Inc()
}

// SetPendingCleanups reports the number of scheduled cleanups.
func (r *Recorder) SetPendingCleanups(n int) {
	if r == nil {
		return
	}
	r.pendingCleanups.Set(float64(n))
}
