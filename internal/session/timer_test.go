package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCountdownTicksDownAndExpiresOnce(t *testing.T) {
	clock := &manualClock{}
	var ticks []int
	var expired int
	timer := NewCountdown(time.Second, clock.schedule, func(r int) { ticks = append(ticks, r) }, func() { expired++ })

	timer.Reset(3)
	timer.Start()
	timer.Start() // already running

	if fired := clock.advance(10); fired != 3 {
		t.Fatalf("expected 3 ticks, got %d", fired)
	}
	if len(ticks) != 3 || ticks[0] != 2 || ticks[1] != 1 || ticks[2] != 0 {
		t.Fatalf("expected ticks 2,1,0, got %v", ticks)
	}
	if expired != 1 {
		t.Fatalf("expected exactly one expiry, got %d", expired)
	}
	if timer.Remaining() != 0 || timer.Running() {
		t.Fatalf("expected stopped at 0, remaining=%d running=%v", timer.Remaining(), timer.Running())
	}

	timer.Start()
	if clock.fire() {
		t.Fatalf("expired countdown must not restart without Reset")
	}
}

func TestCountdownStopDropsPendingTick(t *testing.T) {
	clock := &manualClock{}
	var ticks int
	timer := NewCountdown(time.Second, clock.schedule, func(int) { ticks++ }, nil)

	timer.Reset(5)
	timer.Start()
	clock.fire()
	timer.Stop()
	if clock.fire() {
		t.Fatalf("stopped countdown left a pending tick")
	}
	if ticks != 1 || timer.Remaining() != 4 {
		t.Fatalf("expected one tick and 4 remaining, got %d/%d", ticks, timer.Remaining())
	}

	timer.Start()
	clock.fire()
	if timer.Remaining() != 3 {
		t.Fatalf("expected resume from 4 to 3, got %d", timer.Remaining())
	}
}

func TestCountdownWithRealClock(t *testing.T) {
	var expired int32
	done := make(chan struct{})
	timer := NewCountdown(time.Millisecond, nil, nil, func() {
		if atomic.AddInt32(&expired, 1) == 1 {
			close(done)
		}
	})
	timer.Reset(3)
	timer.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown never expired")
	}
	time.Sleep(10 * time.Millisecond)
	if atomic.LoadInt32(&expired) != 1 {
		t.Fatalf("expected one expiry, got %d", expired)
	}
}
