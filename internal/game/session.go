// Package game runs a session: a sequence of rounds, each one a snippet that is
// loaded, faded in, timed, faded out and scored.
//
// The order inside a round is fixed:
//
//	load -> ready -> play at a random offset -> fade in -> start countdown
//	-> hold for (limit - fade) -> fade out -> release
//
// The countdown never starts before the fade-in completes, and only its expiry times a
// round out. A correct or zeroed round releases the audio at once; a timed-out round
// lets the fade-out finish.
package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/verte-zerg/tangotune/internal/catalog"
	"github.com/verte-zerg/tangotune/internal/generator"
	"github.com/verte-zerg/tangotune/internal/model"
	"github.com/verte-zerg/tangotune/internal/playback"
	"github.com/verte-zerg/tangotune/internal/round"
	"github.com/verte-zerg/tangotune/internal/sched"
)

// ErrNoSongs is returned when a session is started without songs.
var ErrNoSongs = errors.New("no songs match the selected settings")

// Default timings.
const (
	DefaultFadeDuration = 800 * time.Millisecond
	DefaultRevealDelay  = 2500 * time.Millisecond
)

// Phase is where the current round is in its sequence.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseAwaitingPlay
	PhaseFadingIn
	PhasePlaying
	PhaseReveal
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseAwaitingPlay:
		return "awaiting play"
	case PhaseFadingIn:
		return "fading in"
	case PhasePlaying:
		return "playing"
	case PhaseReveal:
		return "reveal"
	case PhaseDone:
		return "done"
	default:
		return "idle"
	}
}

// Options configure a session.
type Options struct {
	Game         string
	Mode         model.Mode
	Guess        model.GuessKind
	TimeLimit    float64
	Penalty      float64
	Autoplay     bool
	FadeDuration time.Duration
	RevealDelay  time.Duration
}

// OptionsFromConfig derives session options from a game config.
func OptionsFromConfig(cfg model.GameConfig, mode model.Mode) Options {
	return Options{
		Game:         cfg.Game,
		Mode:         mode,
		Guess:        cfg.Guess,
		TimeLimit:    cfg.TimeLimit,
		Penalty:      cfg.Penalty,
		Autoplay:     cfg.Autoplay,
		FadeDuration: DefaultFadeDuration,
		RevealDelay:  DefaultRevealDelay,
	}
}

// Question is what the player sees during a round.
type Question struct {
	Song    model.Song
	Answer  string
	Options []string
}

// NoticeKind classifies a non-blocking message.
type NoticeKind int

const (
	NoticeLoad NoticeKind = iota
	NoticeStart
)

// Notice is a non-blocking message about a skipped round.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}

// RoundResult describes a finished round.
type RoundResult struct {
	Question Question
	State    round.State
	Award    int
	Record   model.RoundRecord
}

// Summary describes a finished session.
type Summary struct {
	Result  model.SessionResult
	Rounds  []model.RoundRecord
	Correct int
	Played  int
}

// Hooks receive session events. Nil hooks are skipped.
type Hooks struct {
	RoundOver func(RoundResult)
	Notice    func(Notice)
	End       func(Summary)
}

// Snapshot is a read-only view for rendering.
type Snapshot struct {
	Phase     Phase
	Mode      model.Mode
	Index     int
	Total     int
	Question  Question
	Round     round.State
	TimeLimit float64
	Score     int
	LastAward int
	Wrong     map[string]bool
	Notice    string
	History   []model.RoundRecord
}

// Session orchestrates rounds. All methods must be called on the scheduler's goroutine.
type Session struct {
	sched sched.Scheduler
	clock clockwork.Clock
	seq   *playback.Sequencer
	gen   *generator.Generator
	opts  Options
	hooks Hooks

	songs []model.Song
	pool  []string

	phase    Phase
	idx      int
	question Question
	rnd      *round.Round
	roundGen uint64
	fadeOut  bool

	holdStop   func()
	revealStop func()

	score       int
	lastAward   int
	history     []model.RoundRecord
	played      int
	notice      string
	startNotice bool
	startedAt   time.Time
}

// New returns an idle session.
func New(s sched.Scheduler, clock clockwork.Clock, seq *playback.Sequencer, gen *generator.Generator, opts Options, hooks Hooks) *Session {
	if opts.FadeDuration <= 0 {
		opts.FadeDuration = DefaultFadeDuration
	}
	if opts.RevealDelay < 0 {
		opts.RevealDelay = 0
	}
	if opts.Mode == "" {
		opts.Mode = model.ModeQuiz
	}
	if opts.Guess == "" {
		opts.Guess = model.GuessArtist
	}
	sess := &Session{sched: s, clock: clock, seq: seq, gen: gen, opts: opts, hooks: hooks}
	seq.OnFinish(sess.handleFinish)
	return sess
}

// Start begins the first round. pool holds every name that may be offered as a
// distractor: artist names or styles, depending on the guess kind.
func (s *Session) Start(songs []model.Song, pool []string) error {
	if s.phase != PhaseIdle {
		return fmt.Errorf("session already started")
	}
	if len(songs) == 0 {
		return ErrNoSongs
	}
	if err := round.NewConfig(s.opts.TimeLimit, s.opts.Penalty).Validate(); err != nil {
		return err
	}
	s.songs = songs
	s.pool = pool
	s.startedAt = s.clock.Now()
	log.Info().
		Str("game", s.opts.Game).
		Str("mode", string(s.opts.Mode)).
		Int("songs", len(songs)).
		Float64("time_limit", s.opts.TimeLimit).
		Msg("session started")
	s.beginRound(0)
	return nil
}

// Guess submits an answer for the active round.
func (s *Session) Guess(answer string) (bool, error) {
	if s.opts.Mode != model.ModeQuiz || s.rnd == nil || s.phase != PhasePlaying {
		return false, round.ErrNotActive
	}
	return s.rnd.Guess(answer)
}

// GuessIndex submits the option at index i.
func (s *Session) GuessIndex(i int) (bool, error) {
	if i < 0 || i >= len(s.question.Options) {
		return false, fmt.Errorf("option %d out of range", i+1)
	}
	return s.Guess(s.question.Options[i])
}

// Play starts a snippet that is waiting for the player.
func (s *Session) Play() {
	if s.phase != PhaseAwaitingPlay {
		return
	}
	s.startPlayback(s.roundGen)
}

// Next skips the reveal pause. In learn mode it also skips the current song.
func (s *Session) Next() {
	switch {
	case s.phase == PhaseReveal:
		s.advance()
	case s.opts.Mode == model.ModeLearn && s.phase != PhaseIdle && s.phase != PhaseDone:
		s.roundGen++
		s.stopTimers()
		s.seq.StopAndRelease()
		s.played++
		s.advance()
	}
}

// Cancel stops the session without reporting a summary.
func (s *Session) Cancel() {
	if s.phase == PhaseDone {
		return
	}
	s.roundGen++
	s.stopTimers()
	if s.rnd != nil {
		s.rnd.Cancel()
	}
	s.seq.StopAndRelease()
	s.phase = PhaseDone
	log.Info().Str("game", s.opts.Game).Int("round", s.idx).Msg("session cancelled")
}

// Snapshot returns the current view.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:     s.phase,
		Mode:      s.opts.Mode,
		Index:     s.idx,
		Total:     len(s.songs),
		Question:  s.question,
		TimeLimit: s.opts.TimeLimit,
		Score:     s.score,
		LastAward: s.lastAward,
		Notice:    s.notice,
		History:   append([]model.RoundRecord(nil), s.history...),
	}
	if s.rnd != nil {
		snap.Round = s.rnd.State()
		snap.Wrong = make(map[string]bool, len(snap.Round.WrongGuesses))
		for _, w := range snap.Round.WrongGuesses {
			snap.Wrong[w] = true
		}
	}
	return snap
}

// Score returns the session score.
func (s *Session) Score() int {
	return s.score
}

// History returns the scored rounds so far.
func (s *Session) History() []model.RoundRecord {
	return append([]model.RoundRecord(nil), s.history...)
}

func (s *Session) beginRound(i int) {
	s.roundGen++
	gen := s.roundGen
	s.idx = i
	s.fadeOut = false
	s.lastAward = 0
	s.phase = PhaseLoading

	song := s.songs[i]
	answer := song.Artist
	if s.opts.Guess == model.GuessStyle {
		answer = song.Style
	}
	s.question = Question{Song: song, Answer: answer}
	if s.opts.Mode == model.ModeQuiz {
		s.question.Options = catalog.Options(s.gen, answer, s.pool)
	}
	s.rnd = round.New(s.sched, round.NewConfig(s.opts.TimeLimit, s.opts.Penalty), answer)

	log.Debug().Int("round", i).Str("song", song.ID).Str("url", song.URL).Msg("loading snippet")
	s.seq.Load(song.URL,
		func(float64) {
			if gen != s.roundGen {
				return
			}
			if s.opts.Autoplay {
				s.startPlayback(gen)
				return
			}
			s.phase = PhaseAwaitingPlay
		},
		func(err error) {
			if gen != s.roundGen {
				return
			}
			s.skip(gen, Notice{Kind: NoticeLoad, Message: fmt.Sprintf("Could not load %q, skipping", song.Title), Err: err})
		},
	)
}

func (s *Session) startPlayback(gen uint64) {
	s.phase = PhaseFadingIn
	offset := s.seq.PickStartOffset(s.seq.Duration())
	s.seq.Play(offset, func(err error) {
		if gen != s.roundGen {
			return
		}
		if err != nil {
			s.skip(gen, Notice{Kind: NoticeStart, Message: "Playback could not start; press space to play each snippet", Err: err})
			return
		}
		s.seq.Fade(0, 1, s.opts.FadeDuration, func() {
			if gen != s.roundGen {
				return
			}
			s.fadedIn(gen)
		})
	})
}

func (s *Session) fadedIn(gen uint64) {
	s.phase = PhasePlaying
	if s.opts.Mode == model.ModeQuiz {
		if err := s.rnd.Start(nil, func(st round.State) { s.roundOver(gen, st) }); err != nil {
			log.Error().Err(err).Msg("round did not start")
			s.skip(gen, Notice{Kind: NoticeStart, Message: "Round could not start, skipping", Err: err})
			return
		}
	}
	hold := time.Duration(s.opts.TimeLimit*float64(time.Second)) - s.opts.FadeDuration
	if hold < 0 {
		hold = 0
	}
	s.holdStop = s.sched.AfterFunc(hold, func() {
		if gen != s.roundGen {
			return
		}
		s.holdStop = nil
		s.startFadeOut(gen)
	})
}

func (s *Session) startFadeOut(gen uint64) {
	if s.fadeOut {
		return
	}
	s.fadeOut = true
	s.seq.Fade(1, 0, s.opts.FadeDuration, func() {
		if gen != s.roundGen {
			return
		}
		s.seq.StopAndRelease()
		s.snippetEnded(gen)
	})
}

// snippetEnded handles audio that is over, by fade-out or by reaching the end of the track.
// A quiz round that is already counting down keeps running until its timer expires.
func (s *Session) snippetEnded(gen uint64) {
	if s.opts.Mode == model.ModeLearn {
		if s.phase == PhasePlaying || s.phase == PhaseFadingIn {
			s.cancelHold()
			s.played++
			s.reveal(gen)
		}
		return
	}
	if s.rnd.Phase() == round.PhasePending {
		s.skip(gen, Notice{Kind: NoticeLoad, Message: fmt.Sprintf("%q ended before the round began, skipping", s.question.Song.Title)})
	}
}

func (s *Session) handleFinish() {
	if s.phase != PhaseFadingIn && s.phase != PhasePlaying {
		return
	}
	gen := s.roundGen
	s.cancelHold()
	s.seq.StopAndRelease()
	s.snippetEnded(gen)
}

func (s *Session) roundOver(gen uint64, st round.State) {
	if gen != s.roundGen || st.Outcome == round.OutcomeCancelled {
		return
	}
	switch st.Outcome {
	case round.OutcomeCorrect, round.OutcomeZeroed:
		s.cancelHold()
		s.seq.StopAndRelease()
	case round.OutcomeTimedOut:
		s.cancelHold()
		if s.seq.Active() {
			s.startFadeOut(gen)
		}
	}

	award := round.Award(st)
	s.score += award
	s.lastAward = award
	s.played++
	song := s.question.Song
	rec := model.RoundRecord{
		Index:      s.idx,
		SongID:     song.ID,
		Title:      song.Title,
		Artist:     song.Artist,
		Style:      song.Style,
		Outcome:    st.Outcome.String(),
		TimeUsed:   st.ElapsedSeconds,
		WrongCount: len(st.WrongGuesses),
		Score:      award,
	}
	s.history = append(s.history, rec)
	log.Debug().
		Int("round", s.idx).
		Str("outcome", rec.Outcome).
		Int("award", award).
		Int("wrong", rec.WrongCount).
		Msg("round over")
	if s.hooks.RoundOver != nil {
		s.hooks.RoundOver(RoundResult{Question: s.question, State: st, Award: award, Record: rec})
	}
	s.reveal(gen)
}

func (s *Session) reveal(gen uint64) {
	s.phase = PhaseReveal
	s.revealStop = s.sched.AfterFunc(s.opts.RevealDelay, func() {
		if gen != s.roundGen || s.phase != PhaseReveal {
			return
		}
		s.revealStop = nil
		s.advance()
	})
}

// skip cancels the current round without scoring it and moves on.
func (s *Session) skip(gen uint64, n Notice) {
	if gen != s.roundGen {
		return
	}
	s.roundGen++
	s.stopTimers()
	if s.rnd != nil {
		s.rnd.Cancel()
	}
	s.seq.StopAndRelease()

	log.Warn().Err(n.Err).Int("round", s.idx).Str("song", s.question.Song.ID).Msg(n.Message)
	show := true
	if n.Kind == NoticeStart {
		show = !s.startNotice
		s.startNotice = true
		// Later snippets wait for the player instead of starting on their own.
		s.opts.Autoplay = false
	}
	if show {
		s.notice = n.Message
		if s.hooks.Notice != nil {
			s.hooks.Notice(n)
		}
	}
	s.advance()
}

func (s *Session) advance() {
	s.stopTimers()
	next := s.idx + 1
	if next >= len(s.songs) {
		s.finish()
		return
	}
	s.beginRound(next)
}

func (s *Session) finish() {
	s.roundGen++
	s.seq.StopAndRelease()
	s.phase = PhaseDone
	correct := 0
	for _, r := range s.history {
		if r.Outcome == round.OutcomeCorrect.String() {
			correct++
		}
	}
	summary := Summary{
		Result: model.SessionResult{
			Game:      s.opts.Game,
			Mode:      s.opts.Mode,
			Guess:     s.opts.Guess,
			StartedAt: s.startedAt,
			EndedAt:   s.clock.Now(),
			NumSongs:  len(s.songs),
			TimeLimit: s.opts.TimeLimit,
			Score:     s.score,
		},
		Rounds:  s.History(),
		Correct: correct,
		Played:  s.played,
	}
	log.Info().
		Str("game", s.opts.Game).
		Int("score", s.score).
		Int("correct", correct).
		Int("rounds", len(s.history)).
		Msg("session finished")
	if s.hooks.End != nil {
		s.hooks.End(summary)
	}
}

func (s *Session) cancelHold() {
	if s.holdStop != nil {
		s.holdStop()
		s.holdStop = nil
	}
}

func (s *Session) stopTimers() {
	s.cancelHold()
	if s.revealStop != nil {
		s.revealStop()
		s.revealStop = nil
	}
}
