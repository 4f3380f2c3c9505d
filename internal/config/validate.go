package config

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/tangotune/internal/model"
	"github.com/verte-zerg/tangotune/internal/round"
)

// Bounds on the number of songs in one game.
const (
	MinSongs = 1
	MaxSongs = 100
)

// ValidationError reports one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("--%s %s", e.Field, e.Message)
}

// Validate checks a game config before any round starts. Every failing field is
// reported, joined into one error.
func Validate(cfg model.GameConfig) error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Game == "" {
		fail("game", "must not be empty")
	}
	if cfg.NumSongs < MinSongs || cfg.NumSongs > MaxSongs {
		fail("songs", "must be between %d and %d", MinSongs, MaxSongs)
	}
	if cfg.TimeLimit < round.MinTimeLimit || cfg.TimeLimit > round.MaxTimeLimit {
		fail("time-limit", "must be between %g and %g seconds", round.MinTimeLimit, round.MaxTimeLimit)
	}
	if cfg.Penalty < 0 || cfg.Penalty > 1 {
		fail("penalty", "must be between 0 and 1")
	}
	if len(cfg.Artists) == 0 {
		if len(cfg.Levels) == 0 {
			fail("levels", "must select at least one level when no artists are given")
		}
		for _, lvl := range cfg.Levels {
			if lvl < 1 || lvl > 5 {
				fail("levels", "must be between 1 and 5, got %d", lvl)
				break
			}
		}
	}
	if len(cfg.Styles) == 0 {
		fail("styles", "must select at least one style")
	}
	switch cfg.Guess {
	case model.GuessArtist, model.GuessStyle:
	default:
		fail("guess", "must be %q or %q", model.GuessArtist, model.GuessStyle)
	}
	if cfg.WeakTop < 0 {
		fail("weak-top", "must be >= 0")
	}
	if cfg.WeakFactor < 0 {
		fail("weak-factor", "must be >= 0")
	}
	if cfg.WeakWindow < 0 {
		fail("weak-window", "must be >= 0")
	}
	if cfg.Catalog == "" {
		fail("catalog", "must not be empty")
	}
	return errors.Join(errs...)
}
