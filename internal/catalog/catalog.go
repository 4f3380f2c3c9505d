// Package catalog loads the song, artist and style collections and selects songs for a game.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/verte-zerg/tangotune/internal/model"
)

const (
	songsFile   = "songs.json"
	artistsFile = "artists.json"
	stylesFile  = "styles.json"
)

// Catalog is an immutable snapshot of the three collections.
type Catalog struct {
	Source  string
	Songs   []model.Song
	Artists []model.Artist
	Styles  []string
}

type songJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Singer      string `json:"singer"`
	Style       string `json:"style"`
	Year        int    `json:"year"`
	Composer    string `json:"composer"`
	URL         string `json:"url"`
	Candombe    bool   `json:"candombe"`
	Alternative bool   `json:"alternative"`
	Cancion     bool   `json:"cancion"`
}

type artistJSON struct {
	Name   string `json:"name"`
	Level  int    `json:"level"`
	Active bool   `json:"active"`
}

// Load reads the catalog from a directory or an http(s) base URL.
// Relative song URLs are resolved against the source.
func Load(ctx context.Context, source string) (*Catalog, error) {
	if source == "" {
		return nil, fmt.Errorf("catalog source is empty")
	}
	fetch := readFile
	if isRemote(source) {
		fetch = readHTTP
	}

	var songs []songJSON
	if err := decode(ctx, fetch, source, songsFile, &songs); err != nil {
		return nil, err
	}
	var artists []artistJSON
	if err := decode(ctx, fetch, source, artistsFile, &artists); err != nil {
		return nil, err
	}
	var styles []string
	if err := decode(ctx, fetch, source, stylesFile, &styles); err != nil {
		return nil, err
	}

	cat := &Catalog{Source: source, Styles: styles}
	cat.Songs = make([]model.Song, 0, len(songs))
	for _, s := range songs {
		if s.URL == "" {
			log.Warn().Str("song", s.ID).Msg("song without audio url skipped")
			continue
		}
		resolved, err := resolveURL(source, s.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve url of song %s: %w", s.ID, err)
		}
		cat.Songs = append(cat.Songs, model.Song{
			ID:          s.ID,
			Title:       s.Title,
			Artist:      s.Artist,
			Singer:      s.Singer,
			Style:       s.Style,
			Year:        s.Year,
			Composer:    s.Composer,
			URL:         resolved,
			Candombe:    s.Candombe,
			Alternative: s.Alternative,
			Cancion:     s.Cancion,
		})
	}
	cat.Artists = make([]model.Artist, 0, len(artists))
	for _, a := range artists {
		cat.Artists = append(cat.Artists, model.Artist{Name: a.Name, Level: a.Level, Active: a.Active})
	}

	log.Info().
		Str("source", source).
		Int("songs", len(cat.Songs)).
		Int("artists", len(cat.Artists)).
		Int("styles", len(cat.Styles)).
		Msg("catalog loaded")
	return cat, nil
}

// ArtistNames returns the active artists whose level is in levels, in catalog order.
// An empty levels list matches every active artist.
func (c *Catalog) ArtistNames(levels []int) []string {
	want := intSet(levels)
	var names []string
	for _, a := range c.Artists {
		if !a.Active {
			continue
		}
		if len(want) > 0 {
			if _, ok := want[a.Level]; !ok {
				continue
			}
		}
		names = append(names, a.Name)
	}
	return names
}

// Levels returns the distinct artist levels present in the catalog, ascending.
func (c *Catalog) Levels() []int {
	seen := map[int]bool{}
	var out []int
	for _, a := range c.Artists {
		if !seen[a.Level] {
			seen[a.Level] = true
			out = append(out, a.Level)
		}
	}
	sort.Ints(out)
	return out
}

type fetchFunc func(ctx context.Context, source, name string) ([]byte, error)

func decode(ctx context.Context, fetch fetchFunc, source, name string, dst any) error {
	data, err := fetch(ctx, source, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

func readFile(_ context.Context, source, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(source, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func readHTTP(ctx context.Context, source, name string) ([]byte, error) {
	target, err := resolveURL(source, name)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status for %s: %s", name, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func resolveURL(source, ref string) (string, error) {
	if isRemote(ref) || strings.HasPrefix(ref, "file://") {
		return ref, nil
	}
	if !isRemote(source) {
		if filepath.IsAbs(ref) {
			return ref, nil
		}
		return filepath.Join(source, ref), nil
	}
	base, err := url.Parse(strings.TrimSuffix(source, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid catalog url: %w", err)
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid resource url %q: %w", ref, err)
	}
	return base.ResolveReference(rel).String(), nil
}

func intSet(values []int) map[int]struct{} {
	out := make(map[int]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
