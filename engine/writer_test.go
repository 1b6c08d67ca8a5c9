package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterSendsQueuedRequestsInOrder(t *testing.T) {
	server, client := pipeConn()
	defer server.Close()
	defer client.Close()

	w := NewWorker("resize", "/bin/true", 4, 0, "client-1", nil)
	reqCh := make(chan Request, 8)

	done := make(chan error, 1)
	go func() { done <- w.writer(client, reqCh) }()

	reqCh <- NewPreSleep()
	reqCh <- NewGrabJobUniq()

	first := readOneFrame(t, server)
	require.NotNil(t, first.Request)
	assert.Equal(t, ReqPreSleep, first.Request.Kind)

	second := readOneFrame(t, server)
	require.NotNil(t, second.Request)
	assert.Equal(t, ReqGrabJobUniq, second.Request.Kind)

	close(reqCh)
	third := readOneFrame(t, server) // final CantDo
	require.NotNil(t, third.Request)
	assert.Equal(t, ReqCantDo, third.Request.Kind)

	require.NoError(t, <-done)
}

func TestWriterSynthesizesCantDoBeforeFirstSendAfterLatchBurnt(t *testing.T) {
	server, client := pipeConn()
	defer server.Close()
	defer client.Close()

	w := NewWorker("resize", "/bin/true", 4, 0, "client-1", nil)
	reqCh := make(chan Request, 8)
	w.exitLatch.Burn()

	go w.writer(client, reqCh)

	reqCh <- NewWorkComplete("h1", nil)

	cantDo := readOneFrame(t, server)
	require.NotNil(t, cantDo.Request)
	assert.Equal(t, ReqCantDo, cantDo.Request.Kind)

	complete := readOneFrame(t, server)
	require.NotNil(t, complete.Request)
	assert.Equal(t, ReqWorkComplete, complete.Request.Kind)

	close(reqCh)

	// writer must not send a second CantDo once sentCantDo is true.
	server.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 64)
	_, err := server.Read(buf)
	assert.Error(t, err, "expected a read timeout, got more data instead")
}

func readOneFrame(t *testing.T, conn interface {
	Read([]byte) (int, error)
}) Packet {
	t.Helper()
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		pkt, _, err := Decode(buf)
		if err == nil {
			return pkt
		}
		if err != ErrIncomplete {
			require.NoError(t, err)
		}
		n, err := conn.Read(tmp)
		require.NoError(t, err)
		buf = append(buf, tmp[:n]...)
	}
}
