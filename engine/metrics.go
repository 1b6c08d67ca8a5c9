package engine

import "time"

// Metrics receives engine observability events. Implementations must be
// safe for concurrent use and must never block or panic: recording a
// metric is never allowed to affect job outcomes.
type Metrics interface {
	// SetLoad reports the current in-flight job count for a function.
	SetLoad(function string, load int)
	// JobFinished reports that an order reached a terminal outcome
	// ("complete", "exception", "fail", or "timeout") after d.
	JobFinished(function, outcome string, d time.Duration)
}

// NopMetrics discards everything. It is the default when a Worker is
// created without an explicit Metrics implementation.
type NopMetrics struct{}

func (NopMetrics) SetLoad(string, int)                        {}
func (NopMetrics) JobFinished(string, string, time.Duration) {}
