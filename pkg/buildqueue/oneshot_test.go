package buildqueue

import (
	"sync"
	"testing"
	"time"
)

func TestOneShotEvent_WaitReturnsOnSignal(t *testing.T) {
	e := newOneShotEvent()
	done := make(chan struct{})
	go func() {
		e.wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("wait returned before signal")
	case <-time.After(20 * time.Millisecond):
	}

	e.signal()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("wait did not return after signal")
	}
}

func TestOneShotEvent_SignalBeforeWaitIsNotLost(t *testing.T) {
	e := newOneShotEvent()
	e.signal()
	e.wait() // must return immediately, not block
}

func TestOneShotEvent_SignalIsIdempotent(t *testing.T) {
	e := newOneShotEvent()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.signal()
		}()
	}
	wg.Wait() // must not panic on double-close
	e.wait()
}

func TestOneShotEvent_WaitTimeout(t *testing.T) {
	e := newOneShotEvent()

	if signalled := e.waitTimeout(20 * time.Millisecond); signalled {
		t.Fatalf("expected timeout, got signalled")
	}

	e.signal()
	if signalled := e.waitTimeout(time.Second); !signalled {
		t.Fatalf("expected signalled, got timeout")
	}
}
