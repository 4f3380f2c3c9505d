package sched

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Manual is a Scheduler on a clockwork fake clock. Nothing runs until Advance or Flush
// is called, and then callbacks run synchronously on the caller in deadline order.
type Manual struct {
	clock *clockwork.FakeClock
	start time.Time
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	at      time.Time
	seq     uint64
	timer   clockwork.Timer
	fn      func()
	stopped bool
}

// NewManual returns a Manual scheduler on a fresh fake clock.
func NewManual() *Manual {
	fc := clockwork.NewFakeClock()
	return &Manual{clock: fc, start: fc.Now()}
}

// Clock implements Scheduler.
func (m *Manual) Clock() clockwork.Clock {
	return m.clock
}

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, fn func()) func() {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTask{
		at:    m.clock.Now().Add(d),
		seq:   m.seq,
		timer: m.clock.NewTimer(d),
		fn:    fn,
	}
	m.tasks = append(m.tasks, t)
	return func() {
		t.stopped = true
		t.timer.Stop()
	}
}

// Post implements Scheduler.
func (m *Manual) Post(fn func()) {
	m.AfterFunc(0, fn)
}

// Advance moves the clock forward by d, running every callback that falls due,
// including ones scheduled by callbacks along the way. Each callback sees the clock
// at its own deadline.
func (m *Manual) Advance(d time.Duration) {
	target := m.clock.Now().Add(d)
	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		if gap := t.at.Sub(m.clock.Now()); gap > 0 {
			m.clock.Advance(gap)
		}
		select {
		case <-t.timer.Chan():
		default:
		}
		t.fn()
	}
	if gap := target.Sub(m.clock.Now()); gap > 0 {
		m.clock.Advance(gap)
	}
}

// Flush runs callbacks that are already due without moving the clock.
func (m *Manual) Flush() {
	m.Advance(0)
}

// Elapsed returns the time the clock has moved since creation.
func (m *Manual) Elapsed() time.Duration {
	return m.clock.Since(m.start)
}

// Pending reports how many live callbacks are still queued.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (m *Manual) nextDue(target time.Time) *manualTask {
	idx := -1
	for i, t := range m.tasks {
		if t.stopped || t.at.After(target) {
			continue
		}
		if idx < 0 || t.at.Before(m.tasks[idx].at) || (t.at.Equal(m.tasks[idx].at) && t.seq < m.tasks[idx].seq) {
			idx = i
		}
	}
	if idx < 0 {
		m.compact()
		return nil
	}
	t := m.tasks[idx]
	m.tasks = append(m.tasks[:idx], m.tasks[idx+1:]...)
	return t
}

func (m *Manual) compact() {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.tasks = live
}
