package clock

import (
	"sync"
	"time"
)

// Ticker invokes onTick once per interval between Start and Stop.
// At most one timer is armed at any time.
type Ticker struct {
	clock    Clock
	interval time.Duration
	onTick   func()

	mu      sync.Mutex
	timer   Timer
	gen     uint64 // bumped on every Start/Stop; stale callbacks compare against it
	running bool
}

// NewTicker creates a stopped ticker.
func NewTicker(c Clock, interval time.Duration, onTick func()) *Ticker {
	return &Ticker{clock: c, interval: interval, onTick: onTick}
}

// Start arms the ticker. Calling Start while running is a no-op.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.gen++
	t.arm(t.gen)
}

// Stop disarms the ticker. It is idempotent.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Running reports whether the ticker is armed.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// arm schedules the next tick. Caller holds t.mu.
func (t *Ticker) arm(gen uint64) {
	t.timer = t.clock.AfterFunc(t.interval, func() { t.fire(gen) })
}

func (t *Ticker) fire(gen uint64) {
	t.mu.Lock()
	if !t.running || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.arm(gen)
	t.mu.Unlock()
	t.onTick()
}
