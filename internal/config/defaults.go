package config

import (
	"github.com/verte-zerg/tangotune/internal/model"
	"github.com/verte-zerg/tangotune/internal/round"
)

// Default game settings.
const (
	DefaultGame        = "classic"
	DefaultSongs       = 10
	DefaultTimeLimit   = 10.0
	DefaultWeakTop     = 5
	DefaultWeakFactor  = 3.0
	DefaultWeakWindow  = 20
	DefaultCurveWindow = 10
	DefaultLogLevel    = "info"
)

// DefaultStyles are the styles played when none are configured.
var DefaultStyles = []string{"Tango", "Vals", "Milonga"}

// DefaultLevels are the artist levels played when none are configured.
var DefaultLevels = []int{1, 2}

// Defaults returns the built-in game config.
func Defaults() model.GameConfig {
	return model.GameConfig{
		Game:       DefaultGame,
		NumSongs:   DefaultSongs,
		TimeLimit:  DefaultTimeLimit,
		Levels:     append([]int(nil), DefaultLevels...),
		Styles:     append([]string(nil), DefaultStyles...),
		Penalty:    round.DefaultPenalty,
		Guess:      model.GuessArtist,
		Autoplay:   true,
		Catalog:    DefaultCatalogDir(),
		WeakTop:    DefaultWeakTop,
		WeakFactor: DefaultWeakFactor,
		WeakWindow: DefaultWeakWindow,
	}
}

// Apply copies every set key of the section onto cfg, except keys for which skip
// reports true. Flag names double as key names.
func (g GameSection) Apply(cfg *model.GameConfig, skip func(name string) bool) {
	if skip == nil {
		skip = func(string) bool { return false }
	}
	apply(skip, "game", &cfg.Game, g.Name)
	apply(skip, "songs", &cfg.NumSongs, g.Songs)
	apply(skip, "time-limit", &cfg.TimeLimit, g.TimeLimit)
	apply(skip, "levels", &cfg.Levels, g.Levels)
	apply(skip, "styles", &cfg.Styles, g.Styles)
	apply(skip, "artists", &cfg.Artists, g.Artists)
	apply(skip, "composers", &cfg.Composers, g.Composers)
	apply(skip, "candombe", &cfg.Candombe, g.Candombe)
	apply(skip, "alternative", &cfg.Alternative, g.Alternative)
	apply(skip, "cancion", &cfg.Cancion, g.Cancion)
	apply(skip, "penalty", &cfg.Penalty, g.Penalty)
	apply(skip, "catalog", &cfg.Catalog, g.Catalog)
	apply(skip, "autoplay", &cfg.Autoplay, g.Autoplay)
	apply(skip, "focus-weak", &cfg.FocusWeak, g.FocusWeak)
	apply(skip, "weak-top", &cfg.WeakTop, g.WeakTop)
	apply(skip, "weak-factor", &cfg.WeakFactor, g.WeakFactor)
	apply(skip, "weak-window", &cfg.WeakWindow, g.WeakWindow)
	if g.Guess != nil && !skip("guess") {
		cfg.Guess = model.GuessKind(*g.Guess)
	}
}

// ApplySaved copies the remembered per-game values onto cfg, except keys for which
// skip reports true.
func ApplySaved(cfg *model.GameConfig, saved model.GameConfig, skip func(name string) bool) {
	if skip == nil {
		skip = func(string) bool { return false }
	}
	if saved.NumSongs > 0 && !skip("songs") {
		cfg.NumSongs = saved.NumSongs
	}
	if saved.TimeLimit > 0 && !skip("time-limit") {
		cfg.TimeLimit = saved.TimeLimit
	}
	if len(saved.Levels) > 0 && !skip("levels") {
		cfg.Levels = saved.Levels
	}
	if len(saved.Styles) > 0 && !skip("styles") {
		cfg.Styles = saved.Styles
	}
}

func apply[T any](skip func(string) bool, name string, target, value *T) {
	if value == nil {
		return
	}
	if skip(name) {
		return
	}
	*target = *value
}
