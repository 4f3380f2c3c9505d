// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/tangotune/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for sessions and saved game settings.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			game TEXT NOT NULL,
			mode TEXT NOT NULL,
			guess TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			num_songs INTEGER NOT NULL,
			time_limit REAL NOT NULL,
			score INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_rounds (
			session_id INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			song_id TEXT NOT NULL,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			style TEXT NOT NULL,
			outcome TEXT NOT NULL,
			time_used REAL NOT NULL,
			wrong_count INTEGER NOT NULL,
			score INTEGER NOT NULL,
			PRIMARY KEY (session_id, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS game_configs (
			game TEXT PRIMARY KEY,
			num_songs INTEGER NOT NULL,
			time_limit REAL NOT NULL,
			levels TEXT NOT NULL,
			styles TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_session_rounds_artist ON session_rounds(artist);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a finished session and its rounds. A missing UUID is generated.
func (s *Store) InsertSession(ctx context.Context, result model.SessionResult, rounds []model.RoundRecord) (int64, error) {
	if result.UUID == "" {
		result.UUID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (uuid, game, mode, guess, started_at, ended_at, num_songs, time_limit, score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.UUID,
		result.Game,
		string(result.Mode),
		string(result.Guess),
		result.StartedAt.Format(time.RFC3339Nano),
		result.EndedAt.Format(time.RFC3339Nano),
		result.NumSongs,
		result.TimeLimit,
		result.Score,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(rounds) > 0 {
		var stmt *sql.Stmt
		stmt, err = tx.PrepareContext(ctx,
			`INSERT INTO session_rounds (session_id, idx, song_id, title, artist, style, outcome, time_used, wrong_count, score)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, r := range rounds {
			if _, err = stmt.ExecContext(ctx, id, r.Index, r.SongID, r.Title, r.Artist, r.Style, r.Outcome, r.TimeUsed, r.WrongCount, r.Score); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetWeakArtists aggregates per-artist results over the most recent sessions.
func (s *Store) GetWeakArtists(ctx context.Context, window int, game string) ([]model.ArtistAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent_sessions AS (
		SELECT id FROM sessions
		WHERE (? = '' OR game = ?)
		ORDER BY ended_at DESC
		LIMIT ?
	)
	SELECT r.artist,
		SUM(CASE WHEN r.outcome = 'correct' THEN 1 ELSE 0 END) AS correct,
		SUM(CASE WHEN r.outcome IN ('timed_out', 'zeroed') THEN 1 ELSE 0 END) AS missed,
		SUM(CASE WHEN r.outcome = 'correct' THEN r.time_used ELSE 0 END) AS correct_time
	FROM session_rounds r
	JOIN recent_sessions rs ON rs.id = r.session_id
	GROUP BY r.artist`

	rows, err := s.db.QueryContext(ctx, query, game, game, window)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	return scanArtistAggregates(rows)
}

// ListSessions returns session aggregates filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Game != "" {
		clauses = append(clauses, "s.game = ?")
		args = append(args, cfg.Game)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "s.ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT s.id, s.game, s.ended_at, s.score, s.time_limit,
			COUNT(r.idx),
			COALESCE(SUM(CASE WHEN r.outcome = 'correct' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN r.outcome = 'correct' THEN r.time_used ELSE 0 END), 0)
		FROM sessions s
		LEFT JOIN session_rounds r ON r.session_id = s.id
		WHERE %s
		GROUP BY s.id
		ORDER BY s.ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt string
		if err := rows.Scan(&agg.SessionID, &agg.Game, &endedAt, &agg.Score, &agg.TimeLimit, &agg.Rounds, &agg.Correct, &agg.CorrectTime); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return sessions, nil
}

// ListArtistAggregatesForSessions aggregates per-artist results across sessions.
func (s *Store) ListArtistAggregatesForSessions(ctx context.Context, sessionIDs []int64) ([]model.ArtistAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders, args := idArgs(sessionIDs)
	query := fmt.Sprintf(`SELECT artist,
		SUM(CASE WHEN outcome = 'correct' THEN 1 ELSE 0 END) AS correct,
		SUM(CASE WHEN outcome IN ('timed_out', 'zeroed') THEN 1 ELSE 0 END) AS missed,
		SUM(CASE WHEN outcome = 'correct' THEN time_used ELSE 0 END) AS correct_time
		FROM session_rounds
		WHERE session_id IN (%s)
		GROUP BY artist`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	return scanArtistAggregates(rows)
}

// ListRounds returns the recorded rounds of one session in play order.
func (s *Store) ListRounds(ctx context.Context, sessionID int64) ([]model.RoundRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, song_id, title, artist, style, outcome, time_used, wrong_count, score
		 FROM session_rounds WHERE session_id = ? ORDER BY idx ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.RoundRecord
	for rows.Next() {
		var r model.RoundRecord
		if err := rows.Scan(&r.Index, &r.SongID, &r.Title, &r.Artist, &r.Style, &r.Outcome, &r.TimeUsed, &r.WrongCount, &r.Score); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListGames returns the distinct game names that have recorded sessions.
func (s *Store) ListGames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT game FROM sessions ORDER BY game`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	var games []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// SaveGameConfig remembers the per-game settings, replacing any earlier values.
func (s *Store) SaveGameConfig(ctx context.Context, cfg model.GameConfig) error {
	if cfg.Game == "" {
		return fmt.Errorf("game name is required")
	}
	levels, err := json.Marshal(nonNilInts(cfg.Levels))
	if err != nil {
		return fmt.Errorf("failed to encode levels: %w", err)
	}
	styles, err := json.Marshal(nonNilStrings(cfg.Styles))
	if err != nil {
		return fmt.Errorf("failed to encode styles: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO game_configs (game, num_songs, time_limit, levels, styles, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(game) DO UPDATE SET
			num_songs = excluded.num_songs,
			time_limit = excluded.time_limit,
			levels = excluded.levels,
			styles = excluded.styles,
			updated_at = excluded.updated_at`,
		cfg.Game, cfg.NumSongs, cfg.TimeLimit, string(levels), string(styles), s.now().Format(time.RFC3339Nano))
	return err
}

// LoadGameConfig returns the saved settings for game. The bool is false when none exist.
func (s *Store) LoadGameConfig(ctx context.Context, game string) (model.GameConfig, bool, error) {
	var (
		cfg    = model.GameConfig{Game: game}
		levels string
		styles string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT num_songs, time_limit, levels, styles FROM game_configs WHERE game = ?`, game).
		Scan(&cfg.NumSongs, &cfg.TimeLimit, &levels, &styles)
	if errors.Is(err, sql.ErrNoRows) {
		return model.GameConfig{}, false, nil
	}
	if err != nil {
		return model.GameConfig{}, false, err
	}
	if err := json.Unmarshal([]byte(levels), &cfg.Levels); err != nil {
		return model.GameConfig{}, false, fmt.Errorf("failed to decode levels: %w", err)
	}
	if err := json.Unmarshal([]byte(styles), &cfg.Styles); err != nil {
		return model.GameConfig{}, false, fmt.Errorf("failed to decode styles: %w", err)
	}
	return cfg, true, nil
}

func scanArtistAggregates(rows *sql.Rows) ([]model.ArtistAggregate, error) {
	var result []model.ArtistAggregate
	for rows.Next() {
		var agg model.ArtistAggregate
		if err := rows.Scan(&agg.Artist, &agg.Correct, &agg.Missed, &agg.CorrectTime); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func idArgs(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
