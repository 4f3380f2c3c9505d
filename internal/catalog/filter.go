package catalog

import (
	"strings"

	"github.com/verte-zerg/tangotune/internal/generator"
	"github.com/verte-zerg/tangotune/internal/model"
)

// DistractorCount is the number of wrong options shown with the correct answer.
const DistractorCount = 3

// Filter narrows the catalog to the songs a game may play.
type Filter struct {
	// Artists, when set, replaces the level filter.
	Artists   []string
	Levels    []int
	Composers []string
	Styles    []string

	// A song carrying one of these flags is only eligible when the flag is enabled.
	Candombe    bool
	Alternative bool
	Cancion     bool

	// Weak artists are drawn WeakFactor times more often than the rest.
	Weak       map[string]struct{}
	WeakFactor float64
}

// FilterFromConfig builds a Filter from a game config.
func FilterFromConfig(cfg model.GameConfig) Filter {
	return Filter{
		Artists:     cfg.Artists,
		Levels:      cfg.Levels,
		Composers:   cfg.Composers,
		Styles:      cfg.Styles,
		Candombe:    cfg.Candombe,
		Alternative: cfg.Alternative,
		Cancion:     cfg.Cancion,
		WeakFactor:  cfg.WeakFactor,
	}
}

// Result holds a random selection and the number of songs that matched.
type Result struct {
	Songs []model.Song
	Total int
}

// FetchFilteredSongs returns up to quantity distinct songs matching f, in random order.
func (c *Catalog) FetchFilteredSongs(gen *generator.Generator, f Filter, quantity int) Result {
	matched := c.Match(f)
	res := Result{Total: len(matched)}
	if len(f.Weak) > 0 && f.WeakFactor > 1 {
		res.Songs = generator.SampleWeighted(gen, matched, quantity, func(s model.Song) float64 {
			if _, ok := f.Weak[foldKey(s.Artist)]; ok {
				return f.WeakFactor
			}
			return 1
		})
		return res
	}
	res.Songs = generator.Sample(gen, matched, quantity)
	return res
}

// Match returns every song matching f in catalog order.
func (c *Catalog) Match(f Filter) []model.Song {
	var artists map[string]struct{}
	if len(f.Artists) > 0 {
		artists = foldSet(f.Artists)
	} else {
		artists = foldSet(c.ArtistNames(f.Levels))
	}
	composers := foldSet(f.Composers)
	styles := foldSet(f.Styles)

	var out []model.Song
	for _, s := range c.Songs {
		if _, ok := artists[foldKey(s.Artist)]; !ok {
			continue
		}
		if len(composers) > 0 && !anyComposer(composers, s.Composer) {
			continue
		}
		if len(styles) > 0 {
			if _, ok := styles[foldKey(s.Style)]; !ok {
				continue
			}
		}
		if s.Candombe && !f.Candombe {
			continue
		}
		if s.Alternative && !f.Alternative {
			continue
		}
		if s.Cancion && !f.Cancion {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Distractors returns up to DistractorCount names from all that differ from correct
// and from each other.
func Distractors(gen *generator.Generator, correct string, all []string) []string {
	seen := map[string]struct{}{foldKey(correct): {}}
	pool := make([]string, 0, len(all))
	for _, name := range all {
		key := foldKey(name)
		if _, ok := seen[key]; ok || key == "" {
			continue
		}
		seen[key] = struct{}{}
		pool = append(pool, name)
	}
	return generator.Sample(gen, pool, DistractorCount)
}

// Options returns the correct answer mixed with its distractors.
func Options(gen *generator.Generator, correct string, all []string) []string {
	opts := append([]string{correct}, Distractors(gen, correct, all)...)
	return Shuffle(gen, opts)
}

// Pool returns the names offered as answer options for kind: the configured artists,
// or the active artists of the configured levels, or every style.
func (c *Catalog) Pool(kind model.GuessKind, f Filter) []string {
	if kind == model.GuessStyle {
		if len(c.Styles) > 0 {
			return c.Styles
		}
		seen := map[string]struct{}{}
		var styles []string
		for _, s := range c.Songs {
			if _, ok := seen[foldKey(s.Style)]; !ok && s.Style != "" {
				seen[foldKey(s.Style)] = struct{}{}
				styles = append(styles, s.Style)
			}
		}
		return styles
	}
	if len(f.Artists) > 0 {
		return f.Artists
	}
	return c.ArtistNames(f.Levels)
}

// Shuffle returns a reordered copy of items.
func Shuffle[T any](gen *generator.Generator, items []T) []T {
	return generator.Shuffle(gen, items)
}

// composer fields may list several names separated by commas or slashes.
func anyComposer(want map[string]struct{}, field string) bool {
	for _, part := range strings.FieldsFunc(field, func(r rune) bool { return r == ',' || r == '/' }) {
		if _, ok := want[foldKey(part)]; ok {
			return true
		}
	}
	return false
}

func foldSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		if k := foldKey(v); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// WeakSet builds the lookup used by Filter.Weak.
func WeakSet(artists []string) map[string]struct{} {
	return foldSet(artists)
}
