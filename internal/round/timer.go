package round

import (
	"errors"
	"math"
	"time"

	"github.com/verte-zerg/tangotune/internal/sched"
)

// TickInterval is the countdown cadence.
const TickInterval = 100 * time.Millisecond

const ticksPerSecond = 10

// ErrTimerActive is returned when Start is called on a running timer.
var ErrTimerActive = errors.New("round timer already running")

// Timer counts a round down in 100ms ticks and decays its score linearly.
// It signals expiry once and keeps ticking until the caller stops it.
type Timer struct {
	sched sched.Scheduler

	cfg        Config
	ticks      int
	limitTicks int
	decay      float64
	score      float64

	started time.Time
	active  bool
	expired bool
	gen     uint64
	stop    func()

	onTick   func(elapsed, score float64)
	onExpire func()
}

// NewTimer returns an idle timer.
func NewTimer(s sched.Scheduler) *Timer {
	return &Timer{sched: s}
}

// Start begins ticking. onTick runs after every tick, onExpire once the elapsed time
// reaches the limit.
func (t *Timer) Start(cfg Config, onTick func(elapsed, score float64), onExpire func()) error {
	if t.active {
		return ErrTimerActive
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	t.cfg = cfg
	t.ticks = 0
	t.limitTicks = int(math.Ceil(cfg.TimeLimitSeconds*ticksPerSecond - 1e-9))
	// Limits above ~15.5s extrapolate to a negative max score; the running score starts at 0 then.
	t.decay = math.Max(cfg.MaxScore/(cfg.TimeLimitSeconds*ticksPerSecond), 0)
	t.score = math.Max(cfg.MaxScore, 0)
	t.onTick = onTick
	t.onExpire = onExpire
	t.expired = false
	t.active = true
	t.started = t.sched.Clock().Now()
	t.gen++
	t.schedule(t.gen)
	return nil
}

// Stop cancels the countdown. It is safe to call repeatedly or before Start.
func (t *Timer) Stop() {
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	if t.active {
		t.active = false
		t.gen++
	}
}

// Penalize applies the configured wrong-guess penalty and returns the new score.
func (t *Timer) Penalize() float64 {
	if !t.active {
		return t.score
	}
	t.score = Penalize(t.score, t.cfg.WrongPenaltyFraction)
	return t.score
}

// Active reports whether the timer is ticking.
func (t *Timer) Active() bool {
	return t.active
}

// Elapsed returns the elapsed round time in seconds.
func (t *Timer) Elapsed() float64 {
	return float64(t.ticks) / ticksPerSecond
}

// Score returns the current round score.
func (t *Timer) Score() float64 {
	return t.score
}

// schedule arms the next tick against its deadline from Start, so callback latency
// does not accumulate across ticks.
func (t *Timer) schedule(gen uint64) {
	deadline := t.started.Add(time.Duration(t.ticks+1) * TickInterval)
	delay := max(deadline.Sub(t.sched.Clock().Now()), 0)
	t.stop = t.sched.AfterFunc(delay, func() { t.tick(gen) })
}

func (t *Timer) tick(gen uint64) {
	if !t.active || gen != t.gen {
		return
	}
	t.ticks++
	t.score = math.Max(t.score-t.decay, 0)
	t.schedule(gen)
	if t.onTick != nil {
		t.onTick(t.Elapsed(), t.score)
	}
	if gen != t.gen || t.expired || t.ticks < t.limitTicks {
		return
	}
	t.expired = true
	if t.onExpire != nil {
		t.onExpire()
	}
}
