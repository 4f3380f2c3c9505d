package playback_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/verte-zerg/tangotune/internal/generator"
	"github.com/verte-zerg/tangotune/internal/playback"
	"github.com/verte-zerg/tangotune/internal/playback/playbacktest"
	"github.com/verte-zerg/tangotune/internal/sched"
)

func newSequencer(f *playbacktest.Factory) (*playback.Sequencer, *sched.Manual) {
	m := sched.NewManual()
	return playback.NewSequencer(m, f.New, generator.NewSeeded(7)), m
}

func TestLoadReadyPlayAndFadeIn(t *testing.T) {
	f := &playbacktest.Factory{DurationSeconds: 200, AutoReady: true}
	seq, m := newSequencer(f)

	var duration float64
	seq.Load("songs/a.mp3", func(d float64) { duration = d }, func(err error) {
		t.Fatalf("unexpected load error: %v", err)
	})
	m.Flush()
	if duration != 200 {
		t.Fatalf("duration = %v, want 200", duration)
	}

	var started bool
	seq.Play(100, func(err error) {
		if err != nil {
			t.Fatalf("play: %v", err)
		}
		started = true
	})
	m.Flush()
	p := f.Last()
	if !started || !p.Playing {
		t.Fatalf("expected playback to start")
	}
	if len(p.Seeks) != 1 || p.Seeks[0] != 0.5 {
		t.Fatalf("expected seek to 0.5, got %v", p.Seeks)
	}
	if p.Volume() != 0 {
		t.Fatalf("playback must start silent, volume %v", p.Volume())
	}

	completions := 0
	p.Volumes = nil
	seq.Fade(0, 1, 800*time.Millisecond, func() { completions++ })
	m.Advance(799 * time.Millisecond)
	if completions != 0 {
		t.Fatalf("fade completed early")
	}
	m.Advance(time.Millisecond)
	if completions != 1 {
		t.Fatalf("expected fade completion at exactly 800ms, got %d", completions)
	}
	// First entry is the starting level, then one per step.
	if got := len(p.Volumes) - 1; got != playback.FadeSteps {
		t.Fatalf("expected %d fade steps, got %d", playback.FadeSteps, got)
	}
	if math.Abs(seq.Volume()-1) > 1e-9 {
		t.Fatalf("final volume = %v, want 1", seq.Volume())
	}
	for i := 1; i < len(p.Volumes); i++ {
		if p.Volumes[i] < p.Volumes[i-1] {
			t.Fatalf("fade-in volume decreased at step %d: %v", i, p.Volumes)
		}
	}
	m.Advance(time.Second)
	if completions != 1 {
		t.Fatalf("fade completion fired %d times", completions)
	}
}

func TestFadeLastsExactlyItsDuration(t *testing.T) {
	f := &playbacktest.Factory{DurationSeconds: 100, AutoReady: true}
	seq, m := newSequencer(f)
	seq.Load("a", nil, nil)
	m.Flush()

	// One second does not divide into 15 whole-nanosecond steps.
	done := false
	seq.Fade(1, 0, time.Second, func() { done = true })
	m.Advance(time.Second - time.Nanosecond)
	if done {
		t.Fatalf("fade completed before its duration")
	}
	m.Advance(time.Nanosecond)
	if !done || seq.Volume() != 0 {
		t.Fatalf("fade not complete at its duration: done=%v volume=%v", done, seq.Volume())
	}
}

func TestNewFadeCancelsPrevious(t *testing.T) {
	f := &playbacktest.Factory{DurationSeconds: 100, AutoReady: true}
	seq, m := newSequencer(f)
	seq.Load("a", nil, nil)
	m.Flush()

	firstDone, secondDone := false, false
	seq.Fade(0, 1, time.Second, func() { firstDone = true })
	m.Advance(300 * time.Millisecond)
	seq.Fade(1, 0, 600*time.Millisecond, func() { secondDone = true })
	m.Advance(2 * time.Second)

	if firstDone {
		t.Fatalf("replaced fade still completed")
	}
	if !secondDone {
		t.Fatalf("second fade did not complete")
	}
	if seq.Volume() != 0 {
		t.Fatalf("volume after fade-out = %v, want 0", seq.Volume())
	}
}

func TestStopAndReleaseIsIdempotent(t *testing.T) {
	f := &playbacktest.Factory{DurationSeconds: 100, AutoReady: true}
	seq, m := newSequencer(f)

	seq.StopAndRelease()

	seq.Load("a", nil, nil)
	m.Flush()
	fadeDone := false
	seq.Fade(0, 1, 800*time.Millisecond, func() { fadeDone = true })
	m.Advance(200 * time.Millisecond)

	seq.StopAndRelease()
	seq.StopAndRelease()
	m.Advance(2 * time.Second)

	p := f.Last()
	if !p.Destroyed || p.Playing {
		t.Fatalf("player not released: destroyed=%v playing=%v", p.Destroyed, p.Playing)
	}
	if fadeDone {
		t.Fatalf("fade completed after release")
	}
	if seq.Active() {
		t.Fatalf("sequencer still holds a player")
	}
	if m.Pending() != 0 {
		t.Fatalf("callbacks still pending after release: %d", m.Pending())
	}
}

func TestLoadReleasesPriorHandle(t *testing.T) {
	f := &playbacktest.Factory{DurationSeconds: 100}
	seq, m := newSequencer(f)

	firstReady := false
	seq.Load("first", func(float64) { firstReady = true }, nil)
	first := f.Last()
	seq.Load("second", nil, nil)
	if !first.Destroyed {
		t.Fatalf("first player not released before the second load")
	}

	first.EmitReady()
	m.Flush()
	if firstReady {
		t.Fatalf("stale ready from a superseded load was delivered")
	}
	if len(f.Players) != 2 {
		t.Fatalf("expected two players, got %d", len(f.Players))
	}
}

func TestLoadErrorReleasesAndReports(t *testing.T) {
	boom := errors.New("decode failed")
	f := &playbacktest.Factory{FailURLs: map[string]error{"bad": boom}}
	seq, m := newSequencer(f)

	var got error
	seq.Load("bad", func(float64) { t.Fatalf("ready on failing load") }, func(err error) { got = err })
	m.Flush()

	var loadErr *playback.ResourceLoadError
	if !errors.As(got, &loadErr) || loadErr.URL != "bad" || !errors.Is(got, boom) {
		t.Fatalf("expected ResourceLoadError wrapping decode failure, got %v", got)
	}
	if seq.Active() || !f.Last().Destroyed {
		t.Fatalf("failed resource not released")
	}
}

func TestPlayFailureReportsStartError(t *testing.T) {
	blocked := errors.New("autoplay not allowed")
	f := &playbacktest.Factory{DurationSeconds: 100, AutoReady: true, PlayErr: blocked}
	seq, m := newSequencer(f)
	seq.Load("a", nil, nil)
	m.Flush()

	var got error
	seq.Play(10, func(err error) { got = err })
	m.Flush()
	var startErr *playback.PlaybackStartError
	if !errors.As(got, &startErr) || !errors.Is(got, blocked) {
		t.Fatalf("expected PlaybackStartError, got %v", got)
	}
}

func TestPlayWithoutLoad(t *testing.T) {
	seq, m := newSequencer(&playbacktest.Factory{})
	var got error
	seq.Play(0, func(err error) { got = err })
	m.Flush()
	if !errors.Is(got, playback.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", got)
	}
}

func TestPickStartOffsetBounds(t *testing.T) {
	seq, _ := newSequencer(&playbacktest.Factory{})
	for i := 0; i < 500; i++ {
		off := seq.PickStartOffset(180)
		if off < 0 || off >= 135 {
			t.Fatalf("offset %v outside [0, 135)", off)
		}
	}
	if off := seq.PickStartOffset(0); off != 0 {
		t.Fatalf("offset for empty duration = %v, want 0", off)
	}
	if off := seq.PickStartOffset(4); off >= 3 {
		t.Fatalf("offset for short track = %v, want < 3", off)
	}
}

func TestFinishEventDelivered(t *testing.T) {
	f := &playbacktest.Factory{DurationSeconds: 100, AutoReady: true}
	seq, m := newSequencer(f)
	finished := 0
	seq.OnFinish(func() { finished++ })
	seq.Load("a", nil, nil)
	m.Flush()

	p := f.Last()
	p.EmitFinish()
	m.Flush()
	if finished != 1 {
		t.Fatalf("expected finish callback, got %d", finished)
	}

	seq.StopAndRelease()
	p.EmitFinish()
	m.Flush()
	if finished != 1 {
		t.Fatalf("finish from a released player was delivered")
	}
}
