package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/verte-zerg/tangotune/internal/model"
	"github.com/verte-zerg/tangotune/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions         []model.SessionAggregate
	WindowSessionIDs []int64
	ArtistAggsAll    []model.ArtistAggregate
	ArtistAggsWindow []model.ArtistAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}

	windowIDs := lastSessionIDs(sessions, cfg.CurveWindow)
	all, err := st.ListArtistAggregatesForSessions(ctx, sessionIDs(sessions))
	if err != nil {
		return Report{}, err
	}
	window, err := st.ListArtistAggregatesForSessions(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Sessions:         sessions,
		WindowSessionIDs: windowIDs,
		ArtistAggsAll:    all,
		ArtistAggsWindow: window,
	}, nil
}

// Render writes the plain-text report. totalWidth sizes the score curve; zero uses the terminal.
func (r Report) Render(w io.Writer, cfg model.StatsConfig, totalWidth int, useColor bool) error {
	if err := RenderSummary(w, r.Sessions); err != nil {
		return err
	}
	if len(r.Sessions) == 0 {
		return nil
	}
	if err := RenderScoreCurve(w, r.Sessions, cfg.CurveWindow, totalWidth, 0, useColor); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Scores: %s\n\n", Sparkline(ScoreSeries(r.Sessions))); err != nil {
		return err
	}
	title := fmt.Sprintf("Per-Artist (last %d sessions)", len(r.WindowSessionIDs))
	if err := RenderArtistTable(w, title, r.ArtistAggsWindow); err != nil {
		return err
	}
	return RenderSessionTable(w, r.Sessions)
}

func sessionIDs(sessions []model.SessionAggregate) []int64 {
	ids := make([]int64, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	return ids
}

func lastSessionIDs(sessions []model.SessionAggregate, window int) []int64 {
	if window <= 0 || len(sessions) <= window {
		return sessionIDs(sessions)
	}
	return sessionIDs(sessions[len(sessions)-window:])
}
