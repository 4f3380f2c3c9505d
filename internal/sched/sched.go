// Package sched delivers timer and backend callbacks to the goroutine that owns game state.
package sched

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler runs callbacks on a single owning goroutine.
type Scheduler interface {
	// AfterFunc schedules fn after d. The returned func cancels fn if it has not run yet.
	AfterFunc(d time.Duration, fn func()) (stop func())
	// Post queues fn to run as soon as the owner drains its queue.
	Post(fn func())
	// Clock is the clock deadlines are measured on.
	Clock() clockwork.Clock
}

// Loop is a Scheduler backed by a clockwork clock. Timers fire on clock goroutines;
// their callbacks are handed to the owner through C in the order they were posted.
type Loop struct {
	clock clockwork.Clock
	ch    chan func()

	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewLoop returns a running Loop whose output channel has the given depth.
// Call Close to stop it.
func NewLoop(clock clockwork.Clock, buffer int) *Loop {
	if buffer < 1 {
		buffer = 1
	}
	l := &Loop{
		clock: clock,
		ch:    make(chan func(), buffer),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go l.pump()
	return l
}

// C returns the queue the owner must drain and run.
func (l *Loop) C() <-chan func() {
	return l.ch
}

// Clock implements Scheduler.
func (l *Loop) Clock() clockwork.Clock {
	return l.clock
}

// AfterFunc implements Scheduler.
func (l *Loop) AfterFunc(d time.Duration, fn func()) func() {
	t := l.clock.AfterFunc(d, func() { l.Post(fn) })
	return func() { t.Stop() }
}

// Post implements Scheduler. It never blocks, so the owner may post to itself.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Close stops delivery. Callbacks still queued are dropped.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

func (l *Loop) pump() {
	for {
		select {
		case <-l.done:
			return
		default:
		}
		l.mu.Lock()
		if len(l.pending) == 0 {
			l.mu.Unlock()
			select {
			case <-l.wake:
				continue
			case <-l.done:
				return
			}
		}
		fn := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]
		l.mu.Unlock()

		select {
		case l.ch <- fn:
		case <-l.done:
			return
		}
	}
}
