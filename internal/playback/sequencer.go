package playback

import (
	"time"

	"github.com/verte-zerg/tangotune/internal/generator"
	"github.com/verte-zerg/tangotune/internal/sched"
)

const (
	// FadeSteps is the number of volume changes in one fade.
	FadeSteps = 15

	// StartWindow bounds the random start offset as a fraction of the duration.
	StartWindow = 0.75
)

// Sequencer owns at most one backend player and drives load, seek, fades and release.
// All methods and callbacks run on the scheduler's goroutine.
type Sequencer struct {
	sched     sched.Scheduler
	newPlayer Factory
	gen       *generator.Generator

	player   Player
	handle   uint64
	duration float64
	volume   float64

	fadeGen  uint64
	fadeStop func()

	onFinish func()
}

// NewSequencer returns an idle sequencer.
func NewSequencer(s sched.Scheduler, newPlayer Factory, gen *generator.Generator) *Sequencer {
	return &Sequencer{sched: s, newPlayer: newPlayer, gen: gen}
}

// OnFinish sets the handler for a resource that plays to its natural end.
func (s *Sequencer) OnFinish(fn func()) {
	s.onFinish = fn
}

// Load releases the current resource and starts loading url. Exactly one of onReady
// or onError is called, unless the load is superseded first.
func (s *Sequencer) Load(url string, onReady func(durationSeconds float64), onError func(err error)) {
	s.StopAndRelease()
	s.handle++
	handle := s.handle
	p := s.newPlayer()
	s.player = p

	p.On(EventReady, func(error) {
		s.sched.Post(func() {
			if handle != s.handle {
				return
			}
			s.duration = p.Duration()
			if onReady != nil {
				onReady(s.duration)
			}
		})
	})
	p.On(EventError, func(err error) {
		s.sched.Post(func() {
			if handle != s.handle {
				return
			}
			s.StopAndRelease()
			if onError != nil {
				onError(&ResourceLoadError{URL: url, Err: err})
			}
		})
	})
	p.On(EventFinish, func(error) {
		s.sched.Post(func() {
			if handle != s.handle {
				return
			}
			if s.onFinish != nil {
				s.onFinish()
			}
		})
	})
	p.Load(url)
}

// PickStartOffset returns a uniform offset in [0, duration*StartWindow).
func (s *Sequencer) PickStartOffset(durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return s.gen.Float64() * durationSeconds * StartWindow
}

// Play seeks to offsetSeconds and starts playback at volume 0. onStarted runs on the
// scheduler with nil or a *PlaybackStartError.
func (s *Sequencer) Play(offsetSeconds float64, onStarted func(err error)) {
	handle := s.handle
	err := s.start(offsetSeconds)
	s.sched.Post(func() {
		if handle != s.handle {
			return
		}
		if onStarted == nil {
			return
		}
		if err != nil {
			onStarted(&PlaybackStartError{Err: err})
			return
		}
		onStarted(nil)
	})
}

func (s *Sequencer) start(offsetSeconds float64) error {
	if s.player == nil {
		return ErrNotLoaded
	}
	if s.duration > 0 {
		if err := s.player.SeekTo(offsetSeconds / s.duration); err != nil {
			return err
		}
	}
	s.setVolume(0)
	return s.player.Play()
}

// Fade ramps the volume linearly from one level to another in FadeSteps steps over d,
// replacing any fade in progress.
func (s *Sequencer) Fade(from, to float64, d time.Duration, onComplete func()) {
	s.cancelFade()
	if s.player == nil {
		return
	}
	fadeGen := s.fadeGen
	clock := s.sched.Clock()
	started := clock.Now()
	s.setVolume(from)

	var step func(i int)
	step = func(i int) {
		// Step i lands at i/FadeSteps of d from the start, so the fade lasts exactly d.
		deadline := started.Add(time.Duration(int64(d) * int64(i) / FadeSteps))
		s.fadeStop = s.sched.AfterFunc(max(deadline.Sub(clock.Now()), 0), func() {
			if fadeGen != s.fadeGen || s.player == nil {
				return
			}
			s.setVolume(from + (to-from)*float64(i)/FadeSteps)
			if i < FadeSteps {
				step(i + 1)
				return
			}
			s.fadeStop = nil
			if onComplete != nil {
				onComplete()
			}
		})
	}
	step(1)
}

// StopAndRelease halts playback, cancels any fade and releases the backend player.
func (s *Sequencer) StopAndRelease() {
	s.cancelFade()
	if s.player != nil {
		s.player.Pause()
		s.player.Destroy()
		s.player = nil
	}
	s.handle++
	s.duration = 0
	s.volume = 0
}

// Active reports whether a resource is held.
func (s *Sequencer) Active() bool {
	return s.player != nil
}

// Duration returns the loaded resource duration in seconds.
func (s *Sequencer) Duration() float64 {
	return s.duration
}

// Volume returns the last volume applied.
func (s *Sequencer) Volume() float64 {
	return s.volume
}

func (s *Sequencer) setVolume(v float64) {
	s.volume = v
	if s.player != nil {
		s.player.SetVolume(v)
	}
}

func (s *Sequencer) cancelFade() {
	if s.fadeStop != nil {
		s.fadeStop()
		s.fadeStop = nil
	}
	s.fadeGen++
}
