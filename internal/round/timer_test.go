package round

import (
	"errors"
	"testing"
	"time"

	"github.com/verte-zerg/tangotune/internal/sched"
)

func TestTimerExpiresOnceAndKeepsTicking(t *testing.T) {
	m := sched.NewManual()
	timer := NewTimer(m)
	ticks, expiries := 0, 0
	var lastElapsed float64
	err := timer.Start(NewConfig(3, DefaultPenalty), func(elapsed, _ float64) {
		ticks++
		lastElapsed = elapsed
	}, func() { expiries++ })
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	m.Advance(2900 * time.Millisecond)
	if expiries != 0 {
		t.Fatalf("expired early at %v", lastElapsed)
	}
	m.Advance(100 * time.Millisecond)
	if expiries != 1 || lastElapsed != 3 {
		t.Fatalf("expected expiry at 3s, got expiries=%d elapsed=%v", expiries, lastElapsed)
	}
	if timer.Score() > 1e-9 {
		t.Fatalf("score at expiry = %v, want ~0", timer.Score())
	}

	m.Advance(time.Second)
	if expiries != 1 {
		t.Fatalf("expiry fired %d times", expiries)
	}
	if ticks != 40 {
		t.Fatalf("expected timer to keep ticking until stopped, got %d ticks", ticks)
	}
	timer.Stop()
}

func TestTimerStopIsIdempotent(t *testing.T) {
	m := sched.NewManual()
	timer := NewTimer(m)
	timer.Stop()

	ticks := 0
	if err := timer.Start(NewConfig(5, DefaultPenalty), func(float64, float64) { ticks++ }, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Advance(300 * time.Millisecond)
	timer.Stop()
	timer.Stop()
	m.Advance(5 * time.Second)
	if ticks != 3 {
		t.Fatalf("expected 3 ticks before stop, got %d", ticks)
	}
	if timer.Active() {
		t.Fatalf("timer still active after stop")
	}
}

func TestTimerRejectsSecondStart(t *testing.T) {
	timer := NewTimer(sched.NewManual())
	if err := timer.Start(NewConfig(5, DefaultPenalty), nil, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := timer.Start(NewConfig(5, DefaultPenalty), nil, nil); !errors.Is(err, ErrTimerActive) {
		t.Fatalf("expected ErrTimerActive, got %v", err)
	}
	timer.Stop()
	if err := timer.Start(NewConfig(5, DefaultPenalty), nil, nil); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
}

func TestTimerRejectsInvalidConfig(t *testing.T) {
	timer := NewTimer(sched.NewManual())
	if err := timer.Start(Config{TimeLimitSeconds: 0, MaxScore: 100}, nil, nil); err == nil {
		t.Fatalf("expected error for zero time limit")
	}
	if err := timer.Start(NewConfig(5, 1.5), nil, nil); err == nil {
		t.Fatalf("expected error for penalty above 1")
	}
}

func TestTimerStopInsideTickSuppressesExpiry(t *testing.T) {
	m := sched.NewManual()
	timer := NewTimer(m)
	expired := false
	err := timer.Start(NewConfig(3, DefaultPenalty), func(elapsed, _ float64) {
		if elapsed >= 3 {
			timer.Stop()
		}
	}, func() { expired = true })
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Advance(5 * time.Second)
	if expired {
		t.Fatalf("expiry fired after the timer was stopped")
	}
}

func TestTimerLongLimitDoesNotClimb(t *testing.T) {
	m := sched.NewManual()
	timer := NewTimer(m)
	cfg := NewConfig(20, DefaultPenalty)
	if cfg.MaxScore >= 0 {
		t.Fatalf("expected extrapolated negative max score, got %v", cfg.MaxScore)
	}
	if err := timer.Start(cfg, func(_, score float64) {
		if score != 0 {
			t.Fatalf("score = %v, want 0 for a negative max score", score)
		}
	}, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if timer.Score() != 0 {
		t.Fatalf("starting score = %v, want 0", timer.Score())
	}
	m.Advance(2 * time.Second)
	timer.Stop()
}

// lateScheduler runs every callback a fixed delay after its deadline.
type lateScheduler struct {
	*sched.Manual
	late time.Duration
}

func (s lateScheduler) AfterFunc(d time.Duration, fn func()) func() {
	return s.Manual.AfterFunc(d+s.late, fn)
}

func TestTimerLatencyDoesNotAccumulate(t *testing.T) {
	m := sched.NewManual()
	timer := NewTimer(lateScheduler{Manual: m, late: 30 * time.Millisecond})
	ticks := 0
	if err := timer.Start(NewConfig(3, DefaultPenalty), func(float64, float64) { ticks++ }, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Advance(1030 * time.Millisecond)
	if ticks != 10 {
		t.Fatalf("expected 10 ticks after 1.03s with 30ms latency, got %d", ticks)
	}
	timer.Stop()
}
