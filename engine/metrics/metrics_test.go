package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// unregisteredRecorder builds a Recorder without touching the default
// Prometheus registry, so tests can construct as many as they like
// without tripping MustRegister's duplicate-collector panic.
func unregisteredRecorder() *Recorder {
	return &Recorder{
		load: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "test_current_load",
		}, []string{"function"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_jobs_total",
		}, []string{"function", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "test_job_duration_seconds",
		}, []string{"function"}),
	}
}

func TestRecorderSetLoad(t *testing.T) {
	r := unregisteredRecorder()
	r.SetLoad("resize", 3)
	assert.Equal(t, float64(3), testutil.ToFloat64(r.load.WithLabelValues("resize")))
}

func TestRecorderJobFinishedIncrementsCounter(t *testing.T) {
	r := unregisteredRecorder()
	r.JobFinished("resize", "complete", 250*time.Millisecond)
	r.JobFinished("resize", "complete", 250*time.Millisecond)
	r.JobFinished("resize", "exception", 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.jobs.WithLabelValues("resize", "complete")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.jobs.WithLabelValues("resize", "exception")))
}
