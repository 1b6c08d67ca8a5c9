package engine

import (
	"log"
	"net"
)

// writer drains reqCh and encodes each request onto conn. Once the exit
// latch has burnt, the first request it writes is preceded by a
// synthesized CantDo, so the dispatch server stops offering this worker
// new assignments while its in-flight orders finish. If reqCh closes
// before that ever happened (the worker was asked to stop with nothing
// pending), the CantDo is still sent once, as the very last frame.
func (w *Worker) writer(conn net.Conn, reqCh <-chan Request) error {
	defer log.Printf("[%s] writer stopped", w.Name)

	sentCantDo := false
	for req := range reqCh {
		if !sentCantDo && w.exitLatch.IsBurnt() {
			if err := w.write(conn, NewCantDo(w.Name)); err != nil {
				return err
			}
			sentCantDo = true
		}
		if err := w.write(conn, req); err != nil {
			return err
		}
	}

	if !sentCantDo {
		return w.write(conn, NewCantDo(w.Name))
	}
	return nil
}

func (w *Worker) write(conn net.Conn, req Request) error {
	_, err := conn.Write(Encode(req))
	return err
}
