package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/verte-zerg/tangotune/internal/catalog"
	"github.com/verte-zerg/tangotune/internal/game"
	"github.com/verte-zerg/tangotune/internal/generator"
	"github.com/verte-zerg/tangotune/internal/model"
	"github.com/verte-zerg/tangotune/internal/playback/playbacktest"
	"github.com/verte-zerg/tangotune/internal/sched"
	"github.com/verte-zerg/tangotune/internal/store"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Songs: []model.Song{
			{ID: "1", Title: "La Cumparsita", Artist: "Juan D'Arienzo", Style: "Tango", Year: 1937, Composer: "Matos Rodriguez", URL: "1.mp3"},
			{ID: "2", Title: "Desde el Alma", Artist: "Osvaldo Pugliese", Style: "Vals", Year: 1955, URL: "2.mp3"},
			{ID: "3", Title: "Azabache", Artist: "Francisco Canaro", Style: "Milonga", Year: 1938, URL: "3.mp3"},
		},
		Artists: []model.Artist{
			{Name: "Juan D'Arienzo", Level: 1, Active: true},
			{Name: "Osvaldo Pugliese", Level: 1, Active: true},
			{Name: "Francisco Canaro", Level: 1, Active: true},
			{Name: "Carlos Di Sarli", Level: 2, Active: true},
			{Name: "Anibal Troilo", Level: 2, Active: true},
		},
		Styles: []string{"Tango", "Vals", "Milonga"},
	}
}

type testEnv struct {
	m     *Model
	sched *sched.Manual
	store *store.Store
}

func newTestEnv(t *testing.T, mode model.Mode, cat *catalog.Catalog) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tangotune.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	manual := sched.NewManual()
	cfg := model.GameConfig{
		Game:       "classic",
		NumSongs:   2,
		TimeLimit:  10,
		Penalty:    0.05,
		Guess:      model.GuessArtist,
		Autoplay:   true,
		FocusWeak:  true,
		WeakTop:    3,
		WeakFactor: 3,
		WeakWindow: 5,
	}
	m := NewModel(Deps{
		Sched:   manual,
		Clock:   clockwork.NewFakeClockAt(time.Date(2026, 6, 1, 21, 0, 0, 0, time.UTC)),
		Players: (&playbacktest.Factory{DurationSeconds: 180, AutoReady: true}).New,
		Gen:     generator.NewSeeded(7),
		Store:   st,
		Catalog: cat,
		Config:  cfg,
		Mode:    mode,
	})
	return &testEnv{m: m, sched: manual, store: st}
}

func (e *testEnv) advance(d time.Duration) {
	e.sched.Advance(d)
	e.m.refresh()
}

func (e *testEnv) press(t *testing.T, keyMsg tea.KeyMsg) tea.Cmd {
	t.Helper()
	_, cmd := e.m.Update(keyMsg)
	return cmd
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestQuizSessionIsPersistedAndRestarts(t *testing.T) {
	env := newTestEnv(t, model.ModeQuiz, testCatalog())
	env.m.Init()
	if err := env.m.Err(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, ok, _ := env.store.LoadGameConfig(context.Background(), "classic"); !ok {
		t.Fatalf("game config should be saved when the session starts")
	}

	env.advance(800 * time.Millisecond)
	if env.m.snap.Phase != game.PhasePlaying {
		t.Fatalf("phase = %v, want playing", env.m.snap.Phase)
	}
	if !strings.Contains(env.m.View(), "pts") {
		t.Fatalf("countdown missing from view:\n%s", env.m.View())
	}
	q := env.m.snap.Question
	idx := -1
	for i, opt := range q.Options {
		if opt == q.Answer {
			idx = i
		}
	}
	if idx < 0 {
		t.Fatalf("answer %q missing from options %v", q.Answer, q.Options)
	}
	env.press(t, runeKey(rune('1'+idx)))
	if env.m.snap.Phase != game.PhaseReveal || env.m.last == nil {
		t.Fatalf("expected reveal after the correct answer, phase=%v", env.m.snap.Phase)
	}
	if view := env.m.View(); !strings.Contains(view, "Correct! +237") || !strings.Contains(view, q.Song.Title) {
		t.Fatalf("unexpected reveal view:\n%s", view)
	}

	env.press(t, tea.KeyMsg{Type: tea.KeyEnter})
	env.advance(time.Second)
	missed := env.m.snap.Question.Song.Artist
	if env.m.snap.Index != 1 {
		t.Fatalf("expected second round, got index %d", env.m.snap.Index)
	}
	env.advance(15 * time.Second)
	if env.m.summary == nil || env.m.snap.Phase != game.PhaseDone {
		t.Fatalf("expected the session to end, phase=%v", env.m.snap.Phase)
	}
	if view := env.m.View(); !strings.Contains(view, "1/2 correct") || !strings.Contains(view, "play again") {
		t.Fatalf("unexpected summary view:\n%s", view)
	}

	sessions, err := env.store.ListSessions(context.Background(), model.StatsConfig{Game: "classic"})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Rounds != 2 || sessions[0].Correct != 1 {
		t.Fatalf("unexpected stored sessions: %+v", sessions)
	}
	if len(env.m.sessions) != 1 || !strings.Contains(env.m.renderFooter(), "Best ") {
		t.Fatalf("footer stats not updated: %+v", env.m.sessions)
	}
	if _, ok := env.m.weakSet[strings.ToLower(missed)]; !ok || len(env.m.weakSet) != 1 {
		t.Fatalf("expected %q as the only weak artist, got %v", missed, env.m.weakSet)
	}

	env.press(t, tea.KeyMsg{Type: tea.KeyEnter})
	if env.m.summary != nil || env.m.snap.Phase == game.PhaseDone {
		t.Fatalf("enter should start a new session")
	}
	env.advance(time.Second)
	cmd := env.press(t, runeKey('q'))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if env.sched.Pending() != 0 {
		t.Fatalf("quit left %d callbacks pending", env.sched.Pending())
	}
}

func TestLearnModeShowsDetailsAndSkipsPersistence(t *testing.T) {
	env := newTestEnv(t, model.ModeLearn, testCatalog())
	env.m.Init()
	env.advance(800 * time.Millisecond)

	song := env.m.snap.Question.Song
	view := env.m.View()
	for _, want := range []string{song.Title, song.Artist, song.Style, "Year"} {
		if !strings.Contains(view, want) {
			t.Fatalf("missing %q in learn view:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Score") {
		t.Fatalf("learn mode should not show a score:\n%s", view)
	}

	env.press(t, runeKey('1'))
	if env.m.snap.Index != 0 {
		t.Fatalf("answer keys are disabled in learn mode")
	}
	env.press(t, runeKey('n'))
	env.advance(time.Second)
	env.press(t, runeKey('n'))
	if env.m.summary == nil {
		t.Fatalf("expected the session to end after skipping every song")
	}
	if !strings.Contains(env.m.View(), "Listened to 2 of 2 songs") {
		t.Fatalf("unexpected summary:\n%s", env.m.View())
	}
	sessions, err := env.store.ListSessions(context.Background(), model.StatsConfig{})
	if err != nil || len(sessions) != 0 {
		t.Fatalf("learn sessions must not be stored, got %v, %v", sessions, err)
	}
}

func TestInitFailsWithoutSongs(t *testing.T) {
	cat := testCatalog()
	cat.Songs = nil
	env := newTestEnv(t, model.ModeQuiz, cat)
	cmd := env.m.Init()
	if !errors.Is(env.m.Err(), game.ErrNoSongs) {
		t.Fatalf("expected ErrNoSongs, got %v", env.m.Err())
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit")
	}
	if env.m.View() != "" {
		t.Fatalf("expected empty view without a session")
	}
	// Keys other than quit are ignored until a session exists.
	if cmd := env.press(t, runeKey('1')); cmd != nil {
		t.Fatalf("unexpected command")
	}
}

func TestWaitCallbackRunsQueuedFunc(t *testing.T) {
	queue := make(chan func(), 1)
	m := &Model{deps: Deps{Queue: queue}}
	ran := false
	queue <- func() { ran = true }
	msg := m.waitCallback()()
	_, cmd := m.Update(msg)
	if !ran {
		t.Fatalf("queued callback did not run")
	}
	if cmd == nil {
		t.Fatalf("expected the model to keep waiting for callbacks")
	}
	if (&Model{}).waitCallback() != nil {
		t.Fatalf("no queue means no wait command")
	}
}
