package engine

import "sync"

// Status is a point-in-time snapshot of one in-flight order's progress, as
// last reported by its child process. Adapted from the reference client's
// job status type for use inside the worker instead of outside it: here it
// backs a diagnostics endpoint rather than a polling client call.
type Status struct {
	Handle      string `json:"handle"`
	Numerator   string `json:"numerator"`
	Denominator string `json:"denominator"`
}

// orderStatusTable tracks the most recent Status for every order currently
// running under a Worker, keyed by job handle. The assignee registers an
// entry when an order starts; the order itself updates the
// numerator/denominator as WorkStatus requests are produced and removes
// the entry when it sends its terminal request.
type orderStatusTable struct {
	mu sync.RWMutex
	m  map[string]Status
}

func newOrderStatusTable() *orderStatusTable {
	return &orderStatusTable{m: map[string]Status{}}
}

func (t *orderStatusTable) start(handle string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[handle] = Status{Handle: handle}
}

func (t *orderStatusTable) update(handle, numerator, denominator string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.m[handle]; !ok {
		return
	}
	t.m[handle] = Status{Handle: handle, Numerator: numerator, Denominator: denominator}
}

func (t *orderStatusTable) finish(handle string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, handle)
}

// Snapshot returns a copy of every order's current status, safe to hand to
// an HTTP handler or marshal to JSON.
func (t *orderStatusTable) Snapshot() []Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Status, 0, len(t.m))
	for _, s := range t.m {
		out = append(out, s)
	}
	return out
}
