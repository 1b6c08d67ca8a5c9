package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatchStartsUnburnt(t *testing.T) {
	l := NewLatch()
	assert.False(t, l.IsBurnt())
}

func TestLatchBurnWakesWaiters(t *testing.T) {
	l := NewLatch()

	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Burn was called")
	case <-time.After(20 * time.Millisecond):
	}

	l.Burn()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Burn")
	}
	assert.True(t, l.IsBurnt())
}

func TestLatchBurnIsIdempotent(t *testing.T) {
	l := NewLatch()
	assert.NotPanics(t, func() {
		l.Burn()
		l.Burn()
		l.Burn()
	})
	assert.True(t, l.IsBurnt())
}

func TestLatchBurnConcurrent(t *testing.T) {
	l := NewLatch()
	done := make(chan struct{})
	for i := 0; i < 16; i++ {
		go func() {
			l.Burn()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 16; i++ {
		<-done
	}
	assert.True(t, l.IsBurnt())
}

func TestLatchDoneSelectable(t *testing.T) {
	l := NewLatch()
	select {
	case <-l.Done():
		t.Fatal("Done channel closed before Burn")
	default:
	}
	l.Burn()
	select {
	case <-l.Done():
	default:
		t.Fatal("Done channel not closed after Burn")
	}
}
