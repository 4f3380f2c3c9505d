// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/tangotune/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Overview aggregates a list of sessions.
type Overview struct {
	Sessions      int
	Rounds        int
	Correct       int
	TotalScore    int
	AvgScore      float64
	BestScore     int
	Accuracy      float64
	AvgAnswerTime float64
}

// SessionAccuracy returns the share of rounds answered correctly.
func SessionAccuracy(s model.SessionAggregate) float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Rounds)
}

// Summarize computes an Overview for sessions.
func Summarize(sessions []model.SessionAggregate) Overview {
	var o Overview
	var correctTime float64
	for i, s := range sessions {
		o.Sessions++
		o.Rounds += s.Rounds
		o.Correct += s.Correct
		o.TotalScore += s.Score
		correctTime += s.CorrectTime
		if i == 0 || s.Score > o.BestScore {
			o.BestScore = s.Score
		}
	}
	if o.Sessions > 0 {
		o.AvgScore = float64(o.TotalScore) / float64(o.Sessions)
	}
	if o.Rounds > 0 {
		o.Accuracy = float64(o.Correct) / float64(o.Rounds)
	}
	if o.Correct > 0 {
		o.AvgAnswerTime = correctTime / float64(o.Correct)
	}
	return o
}

// ArtistAccuracy returns the share of an artist's rounds answered correctly.
// Artists without rounds count as fully accurate.
func ArtistAccuracy(agg model.ArtistAggregate) float64 {
	total := agg.Correct + agg.Missed
	if total == 0 {
		return 1.0
	}
	return float64(agg.Correct) / float64(total)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(min(i+1, window))
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := seriesMinMax(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// ScoreSeries returns session scores in order.
func ScoreSeries(sessions []model.SessionAggregate) []float64 {
	out := make([]float64, len(sessions))
	for i, s := range sessions {
		out[i] = float64(s.Score)
	}
	return out
}

// RenderSummary prints a summary block for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	o := Summarize(sessions)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", o.Sessions),
		fmt.Sprintf("Avg score: %.1f", o.AvgScore),
		fmt.Sprintf("Best score: %d", o.BestScore),
		fmt.Sprintf("Accuracy: %.1f%% (%d/%d)", o.Accuracy*100, o.Correct, o.Rounds),
		fmt.Sprintf("Avg answer time: %.2fs", o.AvgAnswerTime),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderScoreCurve prints the moving average of session scores and accuracy.
func RenderScoreCurve(w io.Writer, sessions []model.SessionAggregate, window, totalWidth, height int, useColor bool) error {
	if len(sessions) == 0 {
		return nil
	}
	scores := ScoreSeries(sessions)
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		accs[i] = SessionAccuracy(s) * 100
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeries(w, fmt.Sprintf("Score curve (window %d)", max(window, 1)), []Series{
		{Name: "Score", Values: MovingAverage(scores, window)},
		{Name: "Accuracy %", Values: MovingAverage(accs, window)},
	}, width, height, useColor)
}

// ArtistRows returns table rows for aggs, weakest first.
func ArtistRows(aggs []model.ArtistAggregate) [][]string {
	sorted := make([]model.ArtistAggregate, len(aggs))
	copy(sorted, aggs)
	sortWeakestFirst(sorted)
	rows := make([][]string, 0, len(sorted))
	for _, agg := range sorted {
		avg := 0.0
		if agg.Correct > 0 {
			avg = agg.CorrectTime / float64(agg.Correct)
		}
		rows = append(rows, []string{
			agg.Artist,
			fmt.Sprintf("%.1f%%", ArtistAccuracy(agg)*100),
			fmt.Sprintf("%d", agg.Correct),
			fmt.Sprintf("%d", agg.Missed),
			fmt.Sprintf("%.2f", avg),
		})
	}
	return rows
}

// ArtistHeaders are the column titles matching ArtistRows.
var ArtistHeaders = []string{"Artist", "Accuracy", "Correct", "Missed", "Avg time (s)"}

// RenderArtistTable prints per-artist aggregates.
func RenderArtistTable(w io.Writer, title string, aggs []model.ArtistAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No artist stats found.")
		return err
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	lines := formatTable(ArtistHeaders, ArtistRows(aggs), map[int]bool{1: true, 2: true, 3: true, 4: true})
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// SessionHeaders are the column titles matching SessionRows.
var SessionHeaders = []string{"Ended", "Game", "Score", "Correct", "Limit (s)"}

// SessionRows returns table rows for sessions, newest first.
func SessionRows(sessions []model.SessionAggregate) [][]string {
	rows := make([][]string, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		rows = append(rows, []string{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			s.Game,
			fmt.Sprintf("%d", s.Score),
			fmt.Sprintf("%d/%d", s.Correct, s.Rounds),
			fmt.Sprintf("%g", s.TimeLimit),
		})
	}
	return rows
}

// RenderSessionTable prints the sessions, newest first.
func RenderSessionTable(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Sessions"); err != nil {
		return err
	}
	for _, line := range formatTable(SessionHeaders, SessionRows(sessions), map[int]bool{2: true, 3: true, 4: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func sortWeakestFirst(aggs []model.ArtistAggregate) {
	sort.Slice(aggs, func(i, j int) bool {
		ai, aj := ArtistAccuracy(aggs[i]), ArtistAccuracy(aggs[j])
		if ai != aj {
			return ai < aj
		}
		if aggs[i].Missed != aggs[j].Missed {
			return aggs[i].Missed > aggs[j].Missed
		}
		return aggs[i].Artist < aggs[j].Artist
	})
}
