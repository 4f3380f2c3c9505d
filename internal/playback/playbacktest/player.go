// Package playbacktest provides an in-memory audio backend for tests.
package playbacktest

import (
	"errors"

	"github.com/verte-zerg/tangotune/internal/playback"
)

// Player records every call made by the sequencer.
type Player struct {
	URL             string
	DurationSeconds float64
	PlayErr         error

	Playing   bool
	Destroyed bool
	Seeks     []float64
	Volumes   []float64

	handlers map[playback.Event]func(error)
}

// Load implements playback.Player.
func (p *Player) Load(url string) {
	p.URL = url
}

// On implements playback.Player.
func (p *Player) On(event playback.Event, handler func(error)) {
	if p.handlers == nil {
		p.handlers = map[playback.Event]func(error){}
	}
	p.handlers[event] = handler
}

// Play implements playback.Player.
func (p *Player) Play() error {
	if p.PlayErr != nil {
		return p.PlayErr
	}
	p.Playing = true
	return nil
}

// Pause implements playback.Player.
func (p *Player) Pause() {
	p.Playing = false
}

// SeekTo implements playback.Player.
func (p *Player) SeekTo(fraction float64) error {
	if fraction < 0 || fraction > 1 {
		return errors.New("seek out of range")
	}
	p.Seeks = append(p.Seeks, fraction)
	return nil
}

// SetVolume implements playback.Player.
func (p *Player) SetVolume(level float64) {
	p.Volumes = append(p.Volumes, level)
}

// Duration implements playback.Player.
func (p *Player) Duration() float64 {
	return p.DurationSeconds
}

// Destroy implements playback.Player.
func (p *Player) Destroy() {
	p.Playing = false
	p.Destroyed = true
}

// Volume returns the last volume set, or 0.
func (p *Player) Volume() float64 {
	if len(p.Volumes) == 0 {
		return 0
	}
	return p.Volumes[len(p.Volumes)-1]
}

// EmitReady fires the ready handler.
func (p *Player) EmitReady() {
	p.emit(playback.EventReady, nil)
}

// EmitError fires the error handler.
func (p *Player) EmitError(err error) {
	p.emit(playback.EventError, err)
}

// EmitFinish fires the finish handler.
func (p *Player) EmitFinish() {
	p.emit(playback.EventFinish, nil)
}

func (p *Player) emit(event playback.Event, err error) {
	if h, ok := p.handlers[event]; ok {
		h(err)
	}
}

// Factory hands out Players and keeps them for inspection.
type Factory struct {
	// DurationSeconds is given to every new player.
	DurationSeconds float64
	// AutoReady makes players report ready as soon as they are loaded.
	AutoReady bool
	// FailURLs makes loads of these URLs report an error.
	FailURLs map[string]error
	// PlayErr is returned by Play on every new player.
	PlayErr error

	Players []*Player
}

// New implements playback.Factory.
func (f *Factory) New() playback.Player {
	p := &autoPlayer{Player: &Player{DurationSeconds: f.DurationSeconds, PlayErr: f.PlayErr}, factory: f}
	f.Players = append(f.Players, p.Player)
	return p
}

// Last returns the most recently created player.
func (f *Factory) Last() *Player {
	if len(f.Players) == 0 {
		return nil
	}
	return f.Players[len(f.Players)-1]
}

type autoPlayer struct {
	*Player
	factory *Factory
}

func (a *autoPlayer) Load(url string) {
	a.Player.Load(url)
	if err, ok := a.factory.FailURLs[url]; ok {
		a.EmitError(err)
		return
	}
	if a.factory.AutoReady {
		a.EmitReady()
	}
}
