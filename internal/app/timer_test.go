package app_test

import (
	"testing"
	"time"

	"nutriplay-engine/internal/app"
)

func TestTimerElapsedIsMonotonicAndFrozenOnStop(t *testing.T) {
	clock := newFakeClock()
	timer := app.NewTimerWithClock(clock.Now, time.Second)

	timer.Start(nil)
	prev := timer.Elapsed()
	for i := 0; i < 5; i++ {
		clock.Advance(700 * time.Millisecond)
		cur := timer.Elapsed()
		if cur < prev {
			t.Fatalf("elapsed went backwards: %d -> %d", prev, cur)
		}
		prev = cur
	}
	if prev != 3 {
		t.Fatalf("expected 3s after 3.5s, got %d", prev)
	}

	frozen := timer.Stop()
	clock.Advance(time.Minute)
	if got := timer.Elapsed(); got != frozen {
		t.Fatalf("expected frozen %d, got %d", frozen, got)
	}
	if again := timer.Stop(); again != frozen {
		t.Fatalf("second stop changed elapsed: %d -> %d", frozen, again)
	}
}

func TestTimerAccumulatesAcrossCycles(t *testing.T) {
	clock := newFakeClock()
	timer := app.NewTimerWithClock(clock.Now, time.Second)

	timer.Start(nil)
	clock.Advance(2 * time.Second)
	timer.Stop()

	clock.Advance(10 * time.Second) // paused

	timer.Start(nil)
	timer.Start(nil) // no-op while running
	clock.Advance(3 * time.Second)
	if got := timer.Stop(); got != 5 {
		t.Fatalf("expected 5s, got %d", got)
	}
	clock.Advance(time.Minute)
	if got := timer.Elapsed(); got != 5 {
		t.Fatalf("expected stopped timer to stay at 5s, got %d", got)
	}
}

func TestTimerTicks(t *testing.T) {
	timer := app.NewTimerWithClock(time.Now, 5*time.Millisecond)
	ticks := make(chan int, 16)
	timer.Start(func(elapsed int) {
		select {
		case ticks <- elapsed:
		default:
		}
	})
	defer timer.Stop()

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a tick")
	}
}
