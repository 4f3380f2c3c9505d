package round

import (
	"errors"
	"math"
	"strings"

	"github.com/verte-zerg/tangotune/internal/sched"
)

// ErrNotActive is returned for guesses outside the active phase.
var ErrNotActive = errors.New("round is not active")

// Phase is the lifecycle stage of a round.
type Phase int

const (
	PhasePending Phase = iota
	PhaseActive
	PhaseOver
)

// Outcome is how a round ended.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeCorrect
	OutcomeTimedOut
	OutcomeZeroed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCorrect:
		return "correct"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeZeroed:
		return "zeroed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// State is a snapshot of a round.
type State struct {
	ElapsedSeconds float64
	CurrentScore   float64
	WrongGuesses   []string
	IsOver         bool
	Outcome        Outcome
}

// Round ties a Timer to an answer and resolves exactly one outcome.
type Round struct {
	cfg    Config
	answer string
	timer  *Timer

	phase Phase
	state State

	onTick func(State)
	onOver func(State)
}

// New returns a pending round.
func New(s sched.Scheduler, cfg Config, answer string) *Round {
	return &Round{
		cfg:    cfg,
		answer: answer,
		timer:  NewTimer(s),
		state:  State{CurrentScore: math.Max(cfg.MaxScore, 0)},
	}
}

// Start moves the round from pending to active and starts the countdown.
func (r *Round) Start(onTick, onOver func(State)) error {
	if r.phase != PhasePending {
		return ErrNotActive
	}
	r.onTick = onTick
	r.onOver = onOver
	if err := r.timer.Start(r.cfg, r.handleTick, r.handleExpire); err != nil {
		return err
	}
	r.phase = PhaseActive
	return nil
}

// Guess submits an answer. Wrong answers are recorded in order and cost the penalty;
// the round ends when the answer is right or the score runs out.
func (r *Round) Guess(answer string) (bool, error) {
	if r.phase != PhaseActive {
		return false, ErrNotActive
	}
	if Matches(answer, r.answer) {
		r.finish(OutcomeCorrect)
		return true, nil
	}
	r.state.WrongGuesses = append(r.state.WrongGuesses, answer)
	r.state.CurrentScore = r.timer.Penalize()
	if r.state.CurrentScore < ZeroEpsilon {
		r.state.CurrentScore = 0
		r.finish(OutcomeZeroed)
	}
	return false, nil
}

// Expire ends an active round as timed out, used when the snippet ends first.
func (r *Round) Expire() {
	if r.phase == PhaseActive {
		r.finish(OutcomeTimedOut)
	}
}

// Cancel ends the round without scoring it.
func (r *Round) Cancel() {
	if r.phase != PhaseOver {
		r.finish(OutcomeCancelled)
	}
}

// Phase returns the lifecycle stage.
func (r *Round) Phase() Phase {
	return r.phase
}

// Answer returns the expected answer.
func (r *Round) Answer() string {
	return r.answer
}

// Config returns the round parameters.
func (r *Round) Config() Config {
	return r.cfg
}

// State returns a copy of the round state.
func (r *Round) State() State {
	s := r.state
	s.WrongGuesses = append([]string(nil), r.state.WrongGuesses...)
	return s
}

func (r *Round) handleTick(elapsed, score float64) {
	if r.phase != PhaseActive {
		return
	}
	r.state.ElapsedSeconds = elapsed
	r.state.CurrentScore = score
	if r.onTick != nil {
		r.onTick(r.State())
	}
}

func (r *Round) handleExpire() {
	r.Expire()
}

func (r *Round) finish(outcome Outcome) {
	if r.phase == PhaseOver {
		return
	}
	wasActive := r.phase == PhaseActive
	r.timer.Stop()
	r.phase = PhaseOver
	r.state.IsOver = true
	r.state.Outcome = outcome
	if wasActive && r.onOver != nil {
		r.onOver(r.State())
	}
}

// Matches compares a guess against the expected answer, ignoring case and
// surrounding whitespace.
func Matches(guess, answer string) bool {
	return strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(answer))
}
