// Package model defines shared data structures.
package model

import "time"

// Mode selects how a session treats each snippet.
type Mode string

const (
	ModeQuiz  Mode = "quiz"
	ModeLearn Mode = "learn"
)

// GuessKind selects which song attribute the player has to name.
type GuessKind string

const (
	GuessArtist GuessKind = "artist"
	GuessStyle  GuessKind = "style"
)

// Song is one catalog entry with its audio resource.
type Song struct {
	ID          string
	Title       string
	Artist      string
	Singer      string
	Style       string
	Year        int
	Composer    string
	URL         string
	Candombe    bool
	Alternative bool
	Cancion     bool
}

// Artist is an orchestra or performer known to the catalog.
type Artist struct {
	Name   string
	Level  int
	Active bool
}

// GameConfig defines the settings of one game.
// NumSongs, TimeLimit, Levels and Styles are the values remembered per game name.
type GameConfig struct {
	Game      string
	NumSongs  int
	TimeLimit float64
	Levels    []int
	Styles    []string

	Artists     []string
	Composers   []string
	Candombe    bool
	Alternative bool
	Cancion     bool

	Penalty  float64
	Guess    GuessKind
	Autoplay bool
	Catalog  string

	FocusWeak  bool
	WeakTop    int
	WeakFactor float64
	WeakWindow int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Game        string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// SessionResult captures a finished quiz session.
type SessionResult struct {
	UUID      string
	Game      string
	Mode      Mode
	Guess     GuessKind
	StartedAt time.Time
	EndedAt   time.Time
	NumSongs  int
	TimeLimit float64
	Score     int
}

// RoundRecord stores the outcome of one scored round.
type RoundRecord struct {
	Index      int
	SongID     string
	Title      string
	Artist     string
	Style      string
	Outcome    string
	TimeUsed   float64
	WrongCount int
	Score      int
}

// SessionAggregate summarizes a session for reporting.
type SessionAggregate struct {
	SessionID   int64
	Game        string
	EndedAt     time.Time
	Score       int
	Rounds      int
	Correct     int
	CorrectTime float64
	TimeLimit   float64
}

// ArtistAggregate aggregates round results per artist across sessions.
type ArtistAggregate struct {
	Artist      string
	Correct     int
	Missed      int
	CorrectTime float64
}
