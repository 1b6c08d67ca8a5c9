package engine

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine targets one dispatch server and owns the set of functions
// currently registered against it. Each registered function
// gets its own Worker (and its own TCP connection), so a slow or stuck
// function can never head-of-line block another.
type Engine struct {
	addr     *net.TCPAddr
	clientID string

	mu      sync.Mutex
	workers map[string]*Worker
	cancel  map[string]context.CancelFunc
	done    map[string]chan struct{}

	metrics Metrics

	running *Latch
}

// Create resolves serverAddr and returns an Engine bound to it. It fails
// fast if the address does not resolve to any endpoint, rather than
// deferring that discovery to the first worker's dial.
func Create(serverAddr string) (*Engine, error) {
	if serverAddr == "" {
		return nil, ErrNoServerAddr
	}
	addr, err := net.ResolveTCPAddr("tcp", serverAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoServerAddr, err)
	}
	return &Engine{
		addr:     addr,
		clientID: baseClientID(),
		workers:  map[string]*Worker{},
		cancel:   map[string]context.CancelFunc{},
		done:     map[string]chan struct{}{},
		metrics:  NopMetrics{},
		running:  NewLatch(),
	}, nil
}

// WithMetrics installs a Metrics sink used by every worker subsequently
// started on this engine. Call before StartWorker; it does not affect
// workers already running.
func (e *Engine) WithMetrics(m Metrics) *Engine {
	if m != nil {
		e.metrics = m
	}
	return e
}

func baseClientID() string {
	return "dispatchling-" + uuid.New().String()
}

// StartWorker registers fn against the dispatch server, executing each
// assigned job by invoking executor as a child process, bounding
// in-flight jobs to concurrency and each job's wall-clock time to
// timeout (0 disables the timeout). It returns once the worker goroutine
// has been launched, not once registration has completed on the wire.
func (e *Engine) StartWorker(fn, executor string, concurrency int, timeout time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.workers[fn]; exists {
		return fmt.Errorf("worker for %q: %w", fn, ErrAlreadyRunning)
	}

	w := NewWorker(fn, executor, concurrency, timeout, e.clientID, e.metrics)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.workers[fn] = w
	e.cancel[fn] = cancel
	e.done[fn] = done

	go func() {
		defer close(done)
		if err := w.Run(ctx, e.addr); err != nil {
			log.Printf("[%s] worker exited with error: %v", fn, err)
		}
	}()

	return nil
}

// StopWorker gracefully stops the worker registered for fn: it stops
// accepting new assignments, lets any in-flight orders finish, then
// disconnects. It returns once the stop has been requested, not once the
// worker has fully drained; use Wait for that.
func (e *Engine) StopWorker(fn string) error {
	e.mu.Lock()
	w, ok := e.workers[fn]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("worker for %q: %w", fn, ErrUnknownWorker)
	}
	w.Stop()
	return nil
}

// Wait blocks until every currently-registered worker has fully stopped.
func (e *Engine) Wait() {
	e.mu.Lock()
	dones := make([]chan struct{}, 0, len(e.done))
	for _, d := range e.done {
		dones = append(dones, d)
	}
	e.mu.Unlock()

	for _, d := range dones {
		<-d
	}
}

// Shutdown stops every registered worker and blocks until they have all
// fully drained and disconnected.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	for _, w := range e.workers {
		w.Stop()
	}
	e.mu.Unlock()
	e.Wait()
	e.running.Burn()
}

// Ready reports whether the worker registered for fn has completed its
// registration handshake and has not been asked to stop. It returns
// false for an unregistered function name.
func (e *Engine) Ready(fn string) bool {
	e.mu.Lock()
	w, ok := e.workers[fn]
	e.mu.Unlock()
	if !ok {
		return false
	}
	return w.Ready()
}

// Status returns a snapshot of in-flight orders for fn, or nil if fn is
// not a registered worker.
func (e *Engine) Status(fn string) []Status {
	e.mu.Lock()
	w, ok := e.workers[fn]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	return w.status.Snapshot()
}

// Workers returns the names of every currently-registered function.
func (e *Engine) Workers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.workers))
	for name := range e.workers {
		names = append(names, name)
	}
	return names
}
