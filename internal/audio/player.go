// Package audio plays MP3 snippets through ebiten's audio context.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	ebaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/verte-zerg/tangotune/internal/playback"
)

// SampleRate is the output rate of the shared audio context.
const SampleRate = 44100

// bytes per sample frame: 16-bit stereo.
const frameBytes = 4

const watchInterval = 250 * time.Millisecond

var (
	sharedOnce sync.Once
	sharedCtx  *ebaudio.Context
)

func sharedContext() *ebaudio.Context {
	sharedOnce.Do(func() {
		sharedCtx = ebaudio.NewContext(SampleRate)
	})
	return sharedCtx
}

// Fetcher returns the raw bytes of an audio resource.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DefaultFetcher reads http(s) URLs over the network and everything else from disk.
type DefaultFetcher struct {
	Client *http.Client
}

// Fetch implements Fetcher.
func (f DefaultFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return f.fetchHTTP(ctx, url)
	}
	data, err := os.ReadFile(strings.TrimPrefix(url, "file://"))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	return data, nil
}

func (f DefaultFetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected audio status: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to download audio: %w", err)
	}
	return data, nil
}

// Player is a playback.Player for one MP3 resource.
type Player struct {
	fetcher Fetcher
	clock   clockwork.Clock

	mu       sync.Mutex
	handlers map[playback.Event]func(error)
	player   *ebaudio.Player
	duration float64
	volume   float64
	started  bool
	closed   bool
	cancel   context.CancelFunc
	watch    clockwork.Ticker
	done     chan struct{}
}

// NewPlayer returns an unloaded player.
func NewPlayer(fetcher Fetcher, clock clockwork.Clock) *Player {
	if fetcher == nil {
		fetcher = DefaultFetcher{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Player{
		fetcher:  fetcher,
		clock:    clock,
		handlers: map[playback.Event]func(error){},
		done:     make(chan struct{}),
	}
}

// Factory returns a playback.Factory producing ebiten-backed players.
func Factory(fetcher Fetcher, clock clockwork.Clock) playback.Factory {
	return func() playback.Player {
		return NewPlayer(fetcher, clock)
	}
}

// On implements playback.Player.
func (p *Player) On(event playback.Event, handler func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[event] = handler
}

// Load implements playback.Player. Fetch and decode run in the background.
func (p *Player) Load(url string) {
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	go func() {
		started := time.Now()
		player, duration, err := p.open(ctx, url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("audio load failed")
			p.emit(playback.EventError, err)
			return
		}
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = player.Close()
			return
		}
		p.player = player
		p.duration = duration
		player.SetVolume(p.volume)
		p.mu.Unlock()
		log.Debug().Str("url", url).Float64("duration", duration).Dur("took", time.Since(started)).Msg("audio ready")
		p.emit(playback.EventReady, nil)
	}()
}

func (p *Player) open(ctx context.Context, url string) (*ebaudio.Player, float64, error) {
	data, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, 0, err
	}
	stream, err := mp3.DecodeWithSampleRate(SampleRate, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode mp3: %w", err)
	}
	player, err := sharedContext().NewPlayer(stream)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create player: %w", err)
	}
	duration := float64(stream.Length()) / float64(SampleRate*frameBytes)
	return player, duration, nil
}

// Play implements playback.Player.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil || p.closed {
		return playback.ErrNotLoaded
	}
	p.player.Play()
	p.started = true
	if p.watch == nil {
		p.watch = p.clock.NewTicker(watchInterval)
		go p.watchFinish(p.watch)
	}
	return nil
}

// Pause implements playback.Player.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player != nil {
		p.player.Pause()
	}
	p.started = false
}

// SeekTo implements playback.Player.
func (p *Player) SeekTo(fraction float64) error {
	if fraction < 0 || fraction > 1 {
		return fmt.Errorf("seek fraction out of range: %v", fraction)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil {
		return playback.ErrNotLoaded
	}
	pos := time.Duration(fraction * p.duration * float64(time.Second))
	if err := p.player.SetPosition(pos); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}

// SetVolume implements playback.Player.
func (p *Player) SetVolume(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = level
	if p.player != nil {
		p.player.SetVolume(level)
	}
}

// Duration implements playback.Player.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// Destroy implements playback.Player. It is safe to call more than once.
func (p *Player) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.done)
	if p.cancel != nil {
		p.cancel()
	}
	if p.watch != nil {
		p.watch.Stop()
		p.watch = nil
	}
	if p.player != nil {
		p.player.Pause()
		if err := p.player.Close(); err != nil {
			log.Debug().Err(err).Msg("audio close failed")
		}
		p.player = nil
	}
}

// watchFinish reports a stream that stopped by reaching its end.
func (p *Player) watchFinish(t clockwork.Ticker) {
	for {
		select {
		case <-p.done:
			return
		case <-t.Chan():
		}
		p.mu.Lock()
		if p.closed || p.player == nil {
			p.mu.Unlock()
			return
		}
		ended := p.started && !p.player.IsPlaying() &&
			p.player.Position().Seconds() >= p.duration-watchInterval.Seconds()
		if ended {
			p.started = false
		}
		p.mu.Unlock()
		if ended {
			p.emit(playback.EventFinish, nil)
		}
	}
}

func (p *Player) emit(event playback.Event, err error) {
	p.mu.Lock()
	h := p.handlers[event]
	closed := p.closed
	p.mu.Unlock()
	if h != nil && !closed {
		h(err)
	}
}
