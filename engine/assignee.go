package engine

import (
	"context"
	"log"
)

// assignee consumes job assignments off resCh, validates them, and spawns
// one Order goroutine per assignment, keeping current_load and the
// PreSleep solicitation policy in sync with the worker's concurrency
// budget. It returns when resCh is closed (by the reader) and drained.
func (w *Worker) assignee(ctx context.Context, resCh <-chan Response, reqCh chan<- Request) error {
	w.tasks.Add(1)
	defer w.tasks.Done()
	defer log.Printf("[%s] assignee stopped", w.Name)

	for resp := range resCh {
		if resp.Kind != ResJobAssignUniq {
			continue
		}
		if resp.Name != w.Name {
			log.Printf("[%s] assignee: got assignment for %q, dropping", w.Name, resp.Name)
			continue
		}

		w.currentLoad.Add(1)
		w.metrics.SetLoad(w.Name, int(w.currentLoad.Load()))
		w.status.start(resp.Handle)

		if w.currentLoad.Load() < int64(w.Concurrency) {
			select {
			case reqCh <- NewPreSleep():
			case <-w.exitLatch.Done():
			}
		}

		order := newOrder(w.Name, w.Executor, w.Timeout, resp.Handle, resp.Unique, resp.Workload, reqCh, w.metrics, w.status)
		w.tasks.Add(1)
		go func() {
			defer w.tasks.Done()
			if err := order.Run(ctx); err != nil {
				log.Printf("[%s] order %s: %v", w.Name, order.handle, err)
			}
			load := w.currentLoad.Add(-1)
			w.metrics.SetLoad(w.Name, int(load))
			if load < int64(w.Concurrency) {
				select {
				case reqCh <- NewPreSleep():
				case <-w.exitLatch.Done():
				}
			}
		}()
	}
	return nil
}
