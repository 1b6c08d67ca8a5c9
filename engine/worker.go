package engine

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Worker is one registered function: a single connection to the dispatch
// server, the concurrency budget for that function, and the four
// cooperating tasks (reader, writer, assignee, exitter) that drive it.
type Worker struct {
	Name        string
	Executor    string
	Concurrency int
	Timeout     time.Duration
	ClientID    string

	metrics Metrics
	status  *orderStatusTable

	currentLoad atomic.Int64
	// tasks counts the reader task, the assignee task, and every spawned
	// Order while it is still able to write to the request channel. The
	// exitter waits on this, not on currentLoad directly, before closing
	// the request channel: by the time it reaches zero, nothing is left
	// that could still send on a closed channel.
	tasks     sync.WaitGroup
	exitLatch *Latch
	ready     atomic.Bool
}

// NewWorker constructs a Worker for one function. Concurrency must be a
// positive integer; timeout of 0 disables the per-job wall-clock bound.
func NewWorker(name, executor string, concurrency int, timeout time.Duration, clientID string, m Metrics) *Worker {
	if m == nil {
		m = NopMetrics{}
	}
	return &Worker{
		Name:        name,
		Executor:    executor,
		Concurrency: concurrency,
		Timeout:     timeout,
		ClientID:    clientID,
		metrics:     m,
		status:      newOrderStatusTable(),
		exitLatch:   NewLatch(),
	}
}

// Stop burns the worker's exit latch, starting graceful shutdown. It
// returns once the burn is acknowledged, not once the worker has fully
// drained and disconnected; callers that need full drain should wait on
// Run's return instead.
func (w *Worker) Stop() {
	w.exitLatch.Burn()
}

// Ready reports whether the registration handshake has completed and the
// worker has not yet been asked to stop.
func (w *Worker) Ready() bool {
	return w.ready.Load() && !w.exitLatch.IsBurnt()
}

// Load returns the current number of in-flight jobs for this worker.
func (w *Worker) Load() int64 {
	return w.currentLoad.Load()
}

// Run dials addr, performs the registration handshake, and drives the
// connection until the worker is stopped or a fatal transport error
// occurs. It blocks until the connection has fully unwound.
func (w *Worker) Run(ctx context.Context, addr *net.TCPAddr) error {
	log.Printf("[%s] connecting to dispatch server %s", w.Name, addr)
	conn, err := net.DialTCP("tcp", nil, addr)
	if err != nil {
		return fmt.Errorf("[%s] dial: %w", w.Name, err)
	}
	defer conn.Close()

	if err := w.handshake(conn); err != nil {
		return fmt.Errorf("[%s] handshake: %w", w.Name, err)
	}
	w.ready.Store(true)

	resCh := make(chan Response, 512)
	reqCh := make(chan Request, 512)

	// Once the exit latch burns, half-close the read side so the reader
	// task's blocked Read returns instead of holding the connection open
	// forever; the write side stays open for the writer's final CantDo.
	unblock := make(chan struct{})
	go func() {
		defer close(unblock)
		select {
		case <-w.exitLatch.Done():
			conn.CloseRead()
		case <-unblock:
		}
	}()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, 4)
	run := func(name string, f func() error) {
		results <- result{name: name, err: f()}
	}

	go run("exitter", func() error { w.exitter(resCh, reqCh); return nil })
	go run("reader", func() error { return w.reader(conn, resCh, reqCh) })
	go run("writer", func() error { return w.writer(conn, reqCh) })
	go run("assignee", func() error { return w.assignee(ctx, resCh, reqCh) })

	// Collect results as they arrive rather than waiting for all four: a
	// task that fails before the worker was asked to stop must burn the
	// latch itself, or the other three (which only unwind once the latch
	// is burnt) would block forever.
	var firstErr error
	for i := 0; i < 4; i++ {
		r := <-results
		if r.err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", r.name, r.err)
		}
		if !w.exitLatch.IsBurnt() {
			log.Printf("[%s] %v, forcing shutdown", w.Name, r.err)
			w.exitLatch.Burn()
		}
	}
	close(unblock)

	log.Printf("[%s] worker stopped", w.Name)
	return firstErr
}

func (w *Worker) handshake(conn net.Conn) error {
	for _, req := range []Request{
		NewSetClientID([]byte(w.ClientID)),
		NewCanDo(w.Name),
		NewPreSleep(),
	} {
		if _, err := conn.Write(Encode(req)); err != nil {
			return err
		}
	}
	return nil
}
