// Package diag exposes a small HTTP surface for operating a worker
// process: liveness, Prometheus metrics, and a snapshot of in-flight
// jobs for a given function.
package diag

import (
	"encoding/json"
	"net/http"

	"github.com/appscode/pat"
	"github.com/kestrelco/dispatchling/engine"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// statusSource is the slice of Engine used by this package, kept narrow
// so diag can be tested against a fake without pulling in a real engine.
type statusSource interface {
	Status(fn string) []engine.Status
	Workers() []string
	Ready(fn string) bool
}

// NewMux builds an http.Handler serving:
//
//	GET /healthz   - 200 once fn's registration handshake has completed
//	                 and it hasn't been asked to stop; 503 otherwise
//	GET /metrics   - Prometheus exposition format, from the default registry
//	GET /jobs      - JSON snapshot of in-flight jobs for fn
func NewMux(src statusSource, fn string) http.Handler {
	mux := pat.New()
	mux.Get("/healthz", healthzHandler(src, fn))
	mux.Get("/metrics", promhttp.Handler())
	mux.Get("/jobs", jobsHandler(src, fn))
	return mux
}

func healthzHandler(src statusSource, fn string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !src.Ready(fn) {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

func jobsHandler(src statusSource, fn string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := src.Status(fn)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(statuses); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
