package engine

import "log"

// exitter waits for the worker to be asked to stop, then waits for every
// task that could still write to the request channel (the reader, the
// assignee, and every in-flight order) to finish before closing it. This
// is the only place reqCh is closed, and it happens only once nothing can
// possibly send on it again.
func (w *Worker) exitter(resCh <-chan Response, reqCh chan<- Request) {
	defer log.Printf("[%s] exitter stopped", w.Name)

	w.exitLatch.Wait()
	log.Printf("[%s] exit requested, draining in-flight orders", w.Name)
	w.tasks.Wait()
	close(reqCh)
}
