// Package round implements the per-round countdown and the scoring state machine.
package round

import (
	"fmt"
	"math"
)

const (
	// MinTimeLimit and MaxTimeLimit bound the time limits offered to players.
	MinTimeLimit = 3.0
	MaxTimeLimit = 15.0

	// DefaultPenalty is the fraction of the current score lost per wrong guess.
	DefaultPenalty = 0.05

	// ZeroEpsilon is the score below which a round counts as zeroed.
	ZeroEpsilon = 0.01

	awardTolerance = 1e-6
)

// Config holds the immutable parameters of one round.
type Config struct {
	TimeLimitSeconds     float64
	MaxScore             float64
	WrongPenaltyFraction float64
}

// NewConfig derives a round config from a time limit and a wrong-guess penalty.
func NewConfig(timeLimitSeconds, penalty float64) Config {
	return Config{
		TimeLimitSeconds:     timeLimitSeconds,
		MaxScore:             MaxScore(timeLimitSeconds),
		WrongPenaltyFraction: penalty,
	}
}

// Validate reports whether the config can drive a timer.
func (c Config) Validate() error {
	if c.TimeLimitSeconds <= 0 {
		return fmt.Errorf("time limit must be > 0, got %v", c.TimeLimitSeconds)
	}
	if c.WrongPenaltyFraction < 0 || c.WrongPenaltyFraction > 1 {
		return fmt.Errorf("penalty must be between 0 and 1, got %v", c.WrongPenaltyFraction)
	}
	return nil
}

// MaxScore is the starting score for a time limit: 500 at 3s down to 50 at 15s.
// Limits outside [3,15] extrapolate along the same line.
func MaxScore(timeLimitSeconds float64) float64 {
	return 500 - ((timeLimitSeconds-MinTimeLimit)/12)*450
}

// Penalize applies one wrong-guess penalty to score.
func Penalize(score, fraction float64) float64 {
	return math.Max(score-score*fraction, 0)
}

// Award converts the final state of a round into session points.
func Award(s State) int {
	switch s.Outcome {
	case OutcomeCorrect, OutcomeTimedOut:
		return int(math.Floor(math.Max(s.CurrentScore, 0) + awardTolerance))
	default:
		return 0
	}
}
