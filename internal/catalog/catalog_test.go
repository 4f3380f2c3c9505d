package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/tangotune/internal/generator"
	"github.com/verte-zerg/tangotune/internal/model"
)

const testSongs = `[
 {"id":"1","title":"La Cumparsita","artist":"Juan D'Arienzo","style":"Tango","year":1937,"composer":"Matos Rodriguez","url":"audio/1.mp3"},
 {"id":"2","title":"Pensalo Bien","artist":"Juan D'Arienzo","style":"Tango","year":1938,"composer":"Juan Jose Visciglio, Luis Lopez","url":"audio/2.mp3"},
 {"id":"3","title":"Desde el Alma","artist":"Osvaldo Pugliese","style":"Vals","year":1955,"composer":"Rosita Melo","url":"audio/3.mp3"},
 {"id":"4","title":"Azabache","artist":"Francisco Canaro","style":"Milonga","year":1938,"composer":"Homero Exposito","url":"https://cdn.example.com/4.mp3","candombe":true},
 {"id":"5","title":"Remembranza","artist":"Carlos Di Sarli","style":"Tango","year":1956,"composer":"Mario Melfi","url":"audio/5.mp3","cancion":true},
 {"id":"6","title":"Nocturne","artist":"Gotan Project","style":"Tango","year":2001,"composer":"Philippe Cohen Solal","url":"audio/6.mp3","alternative":true},
 {"id":"7","title":"Orphan","artist":"Retired Orchestra","style":"Tango","year":1940,"composer":"Unknown","url":"audio/7.mp3"}
]`

const testArtists = `[
 {"name":"Juan D'Arienzo","level":1,"active":true},
 {"name":"Francisco Canaro","level":1,"active":true},
 {"name":"Osvaldo Pugliese","level":2,"active":true},
 {"name":"Carlos Di Sarli","level":2,"active":true},
 {"name":"Gotan Project","level":5,"active":true},
 {"name":"Retired Orchestra","level":1,"active":false}
]`

const testStyles = `["Tango","Vals","Milonga"]`

func writeCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{songsFile: testSongs, artistsFile: testArtists, stylesFile: testStyles}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func loadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := Load(context.Background(), writeCatalog(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return cat
}

func ids(songs []model.Song) map[string]bool {
	out := map[string]bool{}
	for _, s := range songs {
		out[s.ID] = true
	}
	return out
}

func TestLoadFromDirectoryResolvesURLs(t *testing.T) {
	dir := writeCatalog(t)
	cat, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cat.Songs) != 7 || len(cat.Artists) != 6 || len(cat.Styles) != 3 {
		t.Fatalf("unexpected sizes: %d songs, %d artists, %d styles", len(cat.Songs), len(cat.Artists), len(cat.Styles))
	}
	if got, want := cat.Songs[0].URL, filepath.Join(dir, "audio", "1.mp3"); got != want {
		t.Fatalf("relative url = %q, want %q", got, want)
	}
	if got := cat.Songs[3].URL; got != "https://cdn.example.com/4.mp3" {
		t.Fatalf("absolute url rewritten: %q", got)
	}
}

func TestLoadFromHTTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/data/songs.json", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(testSongs)) })
	mux.HandleFunc("/data/artists.json", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(testArtists)) })
	mux.HandleFunc("/data/styles.json", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(testStyles)) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cat, err := Load(context.Background(), srv.URL+"/data")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got, want := cat.Songs[0].URL, srv.URL+"/data/audio/1.mp3"; got != want {
		t.Fatalf("resolved url = %q, want %q", got, want)
	}
}

func TestLoadHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err := Load(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "songs.json") {
		t.Fatalf("expected error naming songs.json, got %v", err)
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing catalog")
	}
	if _, err := Load(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty source")
	}
}

func TestMatch(t *testing.T) {
	cat := loadTestCatalog(t)
	cases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"level one excludes flagged and inactive", Filter{Levels: []int{1}}, []string{"1", "2"}},
		{"candombe enabled", Filter{Levels: []int{1}, Candombe: true}, []string{"1", "2", "4"}},
		{"cancion needs flag", Filter{Levels: []int{2}}, []string{"3"}},
		{"cancion enabled", Filter{Levels: []int{2}, Cancion: true}, []string{"3", "5"}},
		{"alternative enabled", Filter{Levels: []int{5}, Alternative: true}, []string{"6"}},
		{"artists override levels", Filter{Artists: []string{"osvaldo pugliese"}, Levels: []int{1}}, []string{"3"}},
		{"styles", Filter{Levels: []int{1, 2}, Styles: []string{"Vals", "Milonga"}, Candombe: true}, []string{"3", "4"}},
		{"composers split on commas", Filter{Levels: []int{1}, Composers: []string{"Luis Lopez"}}, []string{"2"}},
		{"no levels matches every active artist", Filter{}, []string{"1", "2", "3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(cat.Match(tc.filter))
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for _, id := range tc.want {
				if !got[id] {
					t.Fatalf("missing song %s in %v", id, got)
				}
			}
		})
	}
}

func TestFetchFilteredSongsLimitsQuantity(t *testing.T) {
	cat := loadTestCatalog(t)
	gen := generator.NewSeeded(1)
	res := cat.FetchFilteredSongs(gen, Filter{Levels: []int{1, 2}, Candombe: true, Cancion: true}, 2)
	if res.Total != 5 {
		t.Fatalf("total = %d, want 5", res.Total)
	}
	if len(res.Songs) != 2 {
		t.Fatalf("expected 2 songs, got %d", len(res.Songs))
	}
	if res.Songs[0].ID == res.Songs[1].ID {
		t.Fatalf("duplicate song selected")
	}

	res = cat.FetchFilteredSongs(gen, Filter{Levels: []int{1}}, 10)
	if res.Total != 2 || len(res.Songs) != 2 {
		t.Fatalf("expected all 2 matches, got %d of %d", len(res.Songs), res.Total)
	}
}

func TestFetchFilteredSongsWeightsWeakArtists(t *testing.T) {
	cat := loadTestCatalog(t)
	gen := generator.NewSeeded(9)
	f := Filter{Levels: []int{1, 2}, Weak: WeakSet([]string{"Osvaldo Pugliese"}), WeakFactor: 50}
	hits := 0
	for i := 0; i < 200; i++ {
		res := cat.FetchFilteredSongs(gen, f, 1)
		if res.Songs[0].Artist == "Osvaldo Pugliese" {
			hits++
		}
	}
	if hits < 150 {
		t.Fatalf("weak artist picked %d/200 times", hits)
	}
}

func TestDistractors(t *testing.T) {
	gen := generator.NewSeeded(3)
	all := []string{"A", "B", "C", "D", "E", "b"}
	for i := 0; i < 50; i++ {
		got := Distractors(gen, "b", all)
		if len(got) != DistractorCount {
			t.Fatalf("expected %d distractors, got %v", DistractorCount, got)
		}
		seen := map[string]bool{}
		for _, name := range got {
			if strings.EqualFold(name, "b") {
				t.Fatalf("correct answer among distractors: %v", got)
			}
			if seen[name] {
				t.Fatalf("duplicate distractor: %v", got)
			}
			seen[name] = true
		}
	}
	if got := Distractors(gen, "A", []string{"A", "B"}); len(got) != 1 || got[0] != "B" {
		t.Fatalf("small pool should return what exists, got %v", got)
	}
}

func TestOptionsContainCorrect(t *testing.T) {
	gen := generator.NewSeeded(4)
	opts := Options(gen, "Vals", []string{"Tango", "Vals", "Milonga"})
	if len(opts) != 3 {
		t.Fatalf("expected 3 options, got %v", opts)
	}
	found := false
	for _, o := range opts {
		if o == "Vals" {
			found = true
		}
	}
	if !found {
		t.Fatalf("correct answer missing from %v", opts)
	}
}

func TestArtistNamesAndLevels(t *testing.T) {
	cat := loadTestCatalog(t)
	names := cat.ArtistNames([]int{1})
	if len(names) != 2 || names[0] != "Juan D'Arienzo" || names[1] != "Francisco Canaro" {
		t.Fatalf("unexpected level-1 artists: %v", names)
	}
	levels := cat.Levels()
	if len(levels) != 3 || levels[0] != 1 || levels[2] != 5 {
		t.Fatalf("unexpected levels: %v", levels)
	}
}

func TestPool(t *testing.T) {
	cat := loadTestCatalog(t)
	if got := cat.Pool(model.GuessStyle, Filter{}); len(got) != 3 || got[2] != "Milonga" {
		t.Fatalf("unexpected style pool: %v", got)
	}
	if got := cat.Pool(model.GuessArtist, Filter{Artists: []string{"Osvaldo Pugliese"}, Levels: []int{1}}); len(got) != 1 || got[0] != "Osvaldo Pugliese" {
		t.Fatalf("explicit artists should win: %v", got)
	}
	if got := cat.Pool(model.GuessArtist, Filter{Levels: []int{1}}); len(got) != 2 {
		t.Fatalf("unexpected level pool: %v", got)
	}

	cat.Styles = nil
	if got := cat.Pool(model.GuessStyle, Filter{}); len(got) != 3 || got[0] != "Tango" || got[1] != "Vals" {
		t.Fatalf("styles should fall back to song styles: %v", got)
	}
}
