package session

import (
	"sync"
	"time"
)

// Scheduler runs f once after d and returns a function that cancels it.
type Scheduler func(d time.Duration, f func()) (cancel func() bool)

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Countdown is the shared session clock. Every tick re-schedules the next one,
// so ticks never overlap; the counter stops at zero and expiry is reported once
// per Reset.
type Countdown struct {
	interval time.Duration
	schedule Scheduler
	onTick   func(remaining int)
	onExpire func()

	mu        sync.Mutex
	remaining int
	running   bool
	fired     bool
	gen       uint64
	cancel    func() bool
}

func NewCountdown(interval time.Duration, schedule Scheduler, onTick func(int), onExpire func()) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	if schedule == nil {
		schedule = afterFunc
	}
	return &Countdown{
		interval: interval,
		schedule: schedule,
		onTick:   onTick,
		onExpire: onExpire,
	}
}

// Reset stops the clock and sets the counter without starting it.
func (t *Countdown) Reset(seconds int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	if seconds < 0 {
		seconds = 0
	}
	t.remaining = seconds
	t.fired = false
}

// Start resumes ticking from the current counter. It is a no-op when already
// running or after expiry.
func (t *Countdown) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running || t.fired {
		return
	}
	t.running = true
	t.scheduleLocked()
}

// Stop halts ticking and drops any pending tick.
func (t *Countdown) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Countdown) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Countdown) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Countdown) stopLocked() {
	t.gen++
	t.running = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *Countdown) scheduleLocked() {
	gen := t.gen
	t.cancel = t.schedule(t.interval, func() { t.tick(gen) })
}

func (t *Countdown) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.running {
		t.mu.Unlock()
		return
	}
	if t.remaining > 0 {
		t.remaining--
	}
	remaining := t.remaining
	expire := false
	if remaining == 0 {
		t.running = false
		t.cancel = nil
		if !t.fired {
			t.fired = true
			expire = true
		}
	} else {
		t.scheduleLocked()
	}
	t.mu.Unlock()

	// Callbacks run without the clock lock so they may call back into Countdown.
	if t.onTick != nil {
		t.onTick(remaining)
	}
	if expire && t.onExpire != nil {
		t.onExpire()
	}
}
