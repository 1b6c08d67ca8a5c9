// Package metrics provides a Prometheus-backed implementation of the
// engine's Metrics interface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements engine.Metrics by updating a small set of
// Prometheus collectors. It satisfies the interface structurally, rather
// than importing the engine package, so the engine never depends on
// Prometheus and can be embedded by a caller that doesn't want metrics at
// all.
type Recorder struct {
	load     *prometheus.GaugeVec
	jobs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder builds a Recorder and registers its collectors with the
// default Prometheus registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		load: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dispatchling",
			Name:      "current_load",
			Help:      "Number of jobs currently in flight for a function.",
		}, []string{"function"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dispatchling",
			Name:      "jobs_total",
			Help:      "Jobs that reached a terminal outcome, by function and outcome.",
		}, []string{"function", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dispatchling",
			Name:      "job_duration_seconds",
			Help:      "Wall clock duration of a job from assignment to its terminal outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"function"}),
	}
	prometheus.MustRegister(r.load, r.jobs, r.duration)
	return r
}

// SetLoad implements engine.Metrics.
func (r *Recorder) SetLoad(function string, load int) {
	r.load.WithLabelValues(function).Set(float64(load))
}

// JobFinished implements engine.Metrics.
func (r *Recorder) JobFinished(function, outcome string, d time.Duration) {
	r.jobs.WithLabelValues(function, outcome).Inc()
	r.duration.WithLabelValues(function).Observe(d.Seconds())
}
