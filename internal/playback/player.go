// Package playback sequences snippet playback over an audio backend.
package playback

import (
	"errors"
	"fmt"
)

// Event names a backend notification.
type Event int

const (
	EventReady Event = iota
	EventError
	EventFinish
)

// Player is the capability the sequencer needs from an audio backend.
// Handlers registered with On may be called from any goroutine.
type Player interface {
	Load(url string)
	On(event Event, handler func(err error))
	Play() error
	Pause()
	SeekTo(fraction float64) error
	SetVolume(level float64)
	Duration() float64
	Destroy()
}

// Factory creates a fresh backend player for one resource.
type Factory func() Player

// ErrNotLoaded is reported when playback is requested without a loaded resource.
var ErrNotLoaded = errors.New("no audio resource loaded")

// ResourceLoadError reports a resource that could not be fetched or decoded.
type ResourceLoadError struct {
	URL string
	Err error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.URL, e.Err)
}

func (e *ResourceLoadError) Unwrap() error {
	return e.Err
}

// PlaybackStartError reports a device or policy refusing to start playback.
type PlaybackStartError struct {
	Err error
}

func (e *PlaybackStartError) Error() string {
	return fmt.Sprintf("failed to start playback: %v", e.Err)
}

func (e *PlaybackStartError) Unwrap() error {
	return e.Err
}
