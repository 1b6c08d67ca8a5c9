package engine

import (
	"errors"
	"io"
	"log"
	"net"
)

const readerBufSize = 64 * 1024

// reader pulls frames off conn, forwards JobAssignUniq responses to the
// assignee over resCh, and enqueues GrabJobUniq solicitations on reqCh as
// the worker's load allows. It returns nil on a clean shutdown (conn's
// read half closed by Worker.Run once the exit latch burns) and a non-nil
// error on any other transport failure.
//
// reader is resCh's only producer, so it alone closes resCh on the way
// out; this is what lets the assignee's range loop end without any
// sender ever risking a send on a closed channel.
func (w *Worker) reader(conn net.Conn, resCh chan<- Response, reqCh chan<- Request) error {
	w.tasks.Add(1)
	defer w.tasks.Done()
	defer close(resCh)
	defer log.Printf("[%s] reader stopped", w.Name)

	buf := make([]byte, 0, readerBufSize)
	tmp := make([]byte, readerBufSize)

	for {
		for {
			pkt, consumed, err := Decode(buf)
			if err == ErrIncomplete {
				break
			}
			if err != nil {
				var mferr *MalformedFrameError
				if errors.As(err, &mferr) {
					log.Printf("[%s] reader: discarding buffer after %v", w.Name, mferr)
					buf = buf[:0]
					break
				}
				return err
			}
			buf = buf[consumed:]
			if err := w.handleResponse(pkt.Response, resCh, reqCh); err != nil {
				return err
			}
		}

		n, err := conn.Read(tmp)
		if err != nil {
			if w.exitLatch.IsBurnt() {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return errors.New("dispatch server closed the connection")
			}
			return err
		}
		buf = append(buf, tmp[:n]...)
	}
}

func (w *Worker) handleResponse(resp *Response, resCh chan<- Response, reqCh chan<- Request) error {
	if resp == nil {
		return nil
	}
	switch resp.Kind {
	case ResJobAssignUniq:
		select {
		case resCh <- *resp:
		case <-w.exitLatch.Done():
		}
	case ResNoop:
		if w.currentLoad.Load() < int64(w.Concurrency) {
			select {
			case reqCh <- NewGrabJobUniq():
			case <-w.exitLatch.Done():
			}
		}
	case ResNoJob:
		// Nothing assigned; stay asleep.
	default:
		// Unrecognized response kind the protocol may define but this
		// worker doesn't act on; drop it.
	}
	return nil
}
