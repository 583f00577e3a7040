package app

import (
	"sync"
	"time"
)

// TickInterval is how often a running timer reports elapsed time.
const TickInterval = time.Second

// Timer tracks elapsed play time in whole seconds across start/stop cycles.
// Stop is idempotent: a second call neither adds time nor restarts anything.
type Timer struct {
	mu          sync.Mutex
	now         func() time.Time
	tick        time.Duration
	running     bool
	startedAt   time.Time
	accumulated time.Duration
	stop        chan struct{}
}

// NewTimerWithClock returns a stopped timer reading now and ticking every tick.
func NewTimerWithClock(now func() time.Time, tick time.Duration) *Timer {
	return &Timer{now: now, tick: tick}
}

// Start begins counting. onTick, when non-nil, receives the elapsed seconds on every tick
// until Stop is called. Starting a running timer is a no-op.
func (t *Timer) Start(onTick func(elapsed int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.startedAt = t.now()
	t.stop = make(chan struct{})
	if onTick != nil && t.tick > 0 {
		go t.loop(t.stop, onTick)
	}
}

func (t *Timer) loop(stop <-chan struct{}, onTick func(int)) {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			onTick(t.Elapsed())
		}
	}
}

// Stop freezes the elapsed value and returns it.
func (t *Timer) Stop() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.accumulated += t.since()
		t.running = false
		close(t.stop)
	}
	return int(t.accumulated / time.Second)
}

// Elapsed returns whole seconds played so far.
func (t *Timer) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := t.accumulated
	if t.running {
		total += t.since()
	}
	return int(total / time.Second)
}

// since must be called with mu held. Clocks that step backwards count as zero.
func (t *Timer) since() time.Duration {
	d := t.now().Sub(t.startedAt)
	if d < 0 {
		return 0
	}
	return d
}
