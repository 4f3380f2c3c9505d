// Package tui provides the Bubble Tea game screen.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/verte-zerg/tangotune/internal/catalog"
	"github.com/verte-zerg/tangotune/internal/game"
	"github.com/verte-zerg/tangotune/internal/generator"
	"github.com/verte-zerg/tangotune/internal/model"
	"github.com/verte-zerg/tangotune/internal/playback"
	"github.com/verte-zerg/tangotune/internal/round"
	"github.com/verte-zerg/tangotune/internal/sched"
	statsPkg "github.com/verte-zerg/tangotune/internal/stats"
	"github.com/verte-zerg/tangotune/internal/store"
)

// Deps wires a Model to its collaborators.
type Deps struct {
	// Sched runs every game callback. Queue is the channel a sched.Loop hands them over
	// on; it is nil when Sched is driven directly, as in tests.
	Sched   sched.Scheduler
	Queue   <-chan func()
	Clock   clockwork.Clock
	Players playback.Factory
	Gen     *generator.Generator
	Store   *store.Store
	Catalog *catalog.Catalog
	Config  model.GameConfig
	Mode    model.Mode
	// Weak is the initial set of artists to favor when Config.FocusWeak is set.
	Weak []string
}

// callbackMsg carries a scheduled callback to Update.
type callbackMsg struct {
	fn func()
}

// Model implements the Bubble Tea game UI.
type Model struct {
	deps    Deps
	session *game.Session
	snap    game.Snapshot
	weakSet map[string]struct{}
	matched int

	width  int
	height int

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model

	notice  string
	last    *game.RoundResult
	summary *game.Summary
	err     error

	sessions []model.SessionAggregate
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	answerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0A458"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a game model. The first session starts in Init.
func NewModel(deps Deps) *Model {
	if deps.Mode == "" {
		deps.Mode = model.ModeQuiz
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = pendingStyle
	m := &Model{
		deps:     deps,
		weakSet:  catalog.WeakSet(deps.Weak),
		keys:     newKeyMap(deps.Mode),
		help:     help.New(),
		spinner:  sp,
		progress: progress.New(progress.WithGradient("#C89A3A", "#FF4D4F"), progress.WithoutPercentage()),
	}
	m.loadFooterStats()
	return m
}

// Err returns the error that ended the program, if any.
func (m *Model) Err() error {
	return m.err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if err := m.startSession(); err != nil {
		m.err = err
		return tea.Quit
	}
	return tea.Batch(m.waitCallback(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case callbackMsg:
		msg.fn()
		m.refresh()
		return m, m.waitCallback()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = min(max(msg.Width/2, 10), 60)
		return m, nil
	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		m.refresh()
		return m, cmd
	default:
		return m, nil
	}
}

func (m *Model) waitCallback() tea.Cmd {
	if m.deps.Queue == nil {
		return nil
	}
	queue := m.deps.Queue
	return func() tea.Msg {
		return callbackMsg{fn: <-queue}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case keyMatches(msg, m.keys.Quit):
		if m.session != nil {
			m.session.Cancel()
		}
		return tea.Quit
	case m.session == nil:
		return nil
	case keyMatches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case keyMatches(msg, m.keys.Answer):
		idx := int(msg.Runes[0] - '1')
		if _, err := m.session.GuessIndex(idx); err != nil {
			log.Debug().Err(err).Int("option", idx+1).Msg("guess ignored")
		}
	case keyMatches(msg, m.keys.Play):
		m.session.Play()
	case keyMatches(msg, m.keys.Next):
		if m.summary != nil {
			if err := m.startSession(); err != nil {
				m.err = err
				return tea.Quit
			}
			return nil
		}
		m.session.Next()
	}
	return nil
}

// startSession draws songs for a new session and starts it.
func (m *Model) startSession() error {
	cfg := m.deps.Config
	filter := catalog.FilterFromConfig(cfg)
	if cfg.FocusWeak {
		filter.Weak = m.weakSet
	}
	res := m.deps.Catalog.FetchFilteredSongs(m.deps.Gen, filter, cfg.NumSongs)
	if len(res.Songs) == 0 {
		return game.ErrNoSongs
	}
	m.matched = res.Total
	if m.deps.Store != nil {
		if err := m.deps.Store.SaveGameConfig(context.Background(), cfg); err != nil {
			log.Error().Err(err).Str("game", cfg.Game).Msg("failed to save game config")
		}
	}

	seq := playback.NewSequencer(m.deps.Sched, m.deps.Players, m.deps.Gen)
	m.session = game.New(m.deps.Sched, m.deps.Clock, seq, m.deps.Gen, game.OptionsFromConfig(cfg, m.deps.Mode), game.Hooks{
		RoundOver: m.roundOver,
		Notice:    m.showNotice,
		End:       m.finishSession,
	})
	m.summary = nil
	m.last = nil
	m.notice = ""
	if err := m.session.Start(res.Songs, m.deps.Catalog.Pool(cfg.Guess, filter)); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	m.refresh()
	return nil
}

func (m *Model) refresh() {
	if m.session != nil {
		m.snap = m.session.Snapshot()
	}
}

func (m *Model) roundOver(r game.RoundResult) {
	m.last = &r
	m.notice = ""
}

func (m *Model) showNotice(n game.Notice) {
	m.notice = n.Message
}

func (m *Model) finishSession(summary game.Summary) {
	m.summary = &summary
	if m.deps.Mode != model.ModeQuiz || m.deps.Store == nil {
		return
	}
	ctx := context.Background()
	id, err := m.deps.Store.InsertSession(ctx, summary.Result, summary.Rounds)
	if err != nil {
		log.Error().Err(err).Msg("failed to save session")
		return
	}
	var correctTime float64
	for _, r := range summary.Rounds {
		if r.Outcome == round.OutcomeCorrect.String() {
			correctTime += r.TimeUsed
		}
	}
	m.sessions = append(m.sessions, model.SessionAggregate{
		SessionID:   id,
		Game:        summary.Result.Game,
		EndedAt:     summary.Result.EndedAt,
		Score:       summary.Result.Score,
		Rounds:      len(summary.Rounds),
		Correct:     summary.Correct,
		CorrectTime: correctTime,
		TimeLimit:   summary.Result.TimeLimit,
	})
	if m.deps.Config.FocusWeak {
		m.refreshWeakSet()
	}
}

func (m *Model) loadFooterStats() {
	if m.deps.Store == nil || m.deps.Mode != model.ModeQuiz {
		return
	}
	sessions, err := m.deps.Store.ListSessions(context.Background(), model.StatsConfig{Game: m.deps.Config.Game})
	if err != nil {
		log.Error().Err(err).Msg("failed to load session stats")
		return
	}
	m.sessions = sessions
}

func (m *Model) refreshWeakSet() {
	cfg := m.deps.Config
	aggs, err := m.deps.Store.GetWeakArtists(context.Background(), cfg.WeakWindow, cfg.Game)
	if err != nil {
		log.Error().Err(err).Msg("failed to load weak artists")
		return
	}
	weak := statsPkg.SelectWeakArtists(aggs, cfg.WeakTop)
	if len(weak) == 0 {
		log.Info().Str("game", cfg.Game).Msg("no weak artists yet; using uniform selection")
	}
	m.weakSet = catalog.WeakSet(weak)
}
