package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptExecutor writes body to a temp file, marks it executable, and
// returns its path so an Order can run it like any other child process.
func scriptExecutor(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "child.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func runOrder(t *testing.T, executor string, timeout time.Duration) []Request {
	t.Helper()
	reqCh := make(chan Request, 64)
	order := newOrder("echo", executor, timeout, "handle-1", "uniq-1", []byte("payload"), reqCh, NopMetrics{}, newOrderStatusTable())

	err := order.Run(context.Background())
	require.NoError(t, err)
	close(reqCh)

	var reqs []Request
	for r := range reqCh {
		reqs = append(reqs, r)
	}
	return reqs
}

func TestOrderCompleteEventMergesDataAndError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	executor := scriptExecutor(t, `cat >/dev/null
echo '{"type":"complete","data":{"x":1},"error":null}'
`)
	reqs := runOrder(t, executor, 0)
	require.Len(t, reqs, 1)
	assert.Equal(t, ReqWorkComplete, reqs[0].Kind)
	assert.JSONEq(t, `{"x":1}`, string(reqs[0].Data))
}

func TestOrderCompleteEventWithNullDataAndError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	executor := scriptExecutor(t, `cat >/dev/null
echo '{"type":"progress","numerator":1,"denominator":2}'
echo '{"type":"complete","data":null,"error":null}'
`)
	reqs := runOrder(t, executor, 0)
	require.Len(t, reqs, 2)
	assert.Equal(t, ReqWorkStatus, reqs[0].Kind)
	assert.Equal(t, "1", reqs[0].Numerator)
	assert.Equal(t, "2", reqs[0].Denominator)
	assert.Equal(t, ReqWorkComplete, reqs[1].Kind)
	assert.JSONEq(t, `{}`, string(reqs[1].Data))
}

func TestOrderExitZeroWithoutCompleteLineSendsEmptyComplete(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	executor := scriptExecutor(t, `cat >/dev/null
exit 0
`)
	reqs := runOrder(t, executor, 0)
	require.Len(t, reqs, 1)
	assert.Equal(t, ReqWorkComplete, reqs[0].Kind)
	assert.Nil(t, reqs[0].Data)
}

func TestOrderNonZeroExitSendsWorkException(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	executor := scriptExecutor(t, `cat >/dev/null
exit 7
`)
	reqs := runOrder(t, executor, 0)
	require.Len(t, reqs, 1)
	assert.Equal(t, ReqWorkException, reqs[0].Kind)

	var body map[string]string
	require.NoError(t, json.Unmarshal(reqs[0].Data, &body))
	assert.Contains(t, body["error"], "code=7")
}

func TestOrderTimeoutKillsChildAndSendsWorkException(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	executor := scriptExecutor(t, `cat >/dev/null
sleep 5
`)
	reqs := runOrder(t, executor, 20*time.Millisecond)
	require.Len(t, reqs, 1)
	assert.Equal(t, ReqWorkException, reqs[0].Kind)

	var body map[string]string
	require.NoError(t, json.Unmarshal(reqs[0].Data, &body))
	assert.Contains(t, body["error"], "timed out")
}

func TestOrderSpawnFailureSendsWorkFail(t *testing.T) {
	reqCh := make(chan Request, 4)
	order := newOrder("echo", "/nonexistent/path/to/executor", 0, "handle-1", "uniq-1", nil, reqCh, NopMetrics{}, nil)

	err := order.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOrderSpawnFailed)

	close(reqCh)
	var reqs []Request
	for r := range reqCh {
		reqs = append(reqs, r)
	}
	require.Len(t, reqs, 1)
	assert.Equal(t, ReqWorkFail, reqs[0].Kind)
}

func TestOrderOnlyEverSendsOneTerminalRequest(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	// The child emits its own "complete" line AND exits 0; only the
	// stdout-driven terminal request should reach the channel.
	executor := scriptExecutor(t, `cat >/dev/null
echo '{"type":"complete","data":{"done":true},"error":null}'
exit 0
`)
	reqs := runOrder(t, executor, 0)

	terminalCount := 0
	for _, r := range reqs {
		if r.Kind == ReqWorkComplete || r.Kind == ReqWorkException || r.Kind == ReqWorkFail {
			terminalCount++
		}
	}
	assert.Equal(t, 1, terminalCount)
}

func TestOrderPrintEventDoesNotProduceRequest(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	executor := scriptExecutor(t, `cat >/dev/null
echo '{"type":"print","content":"hello"}'
echo '{"type":"complete","data":null,"error":null}'
`)
	reqs := runOrder(t, executor, 0)
	require.Len(t, reqs, 1)
	assert.Equal(t, ReqWorkComplete, reqs[0].Kind)
}
