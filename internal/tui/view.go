package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tangotune/internal/game"
	"github.com/verte-zerg/tangotune/internal/model"
	"github.com/verte-zerg/tangotune/internal/round"
	statsPkg "github.com/verte-zerg/tangotune/internal/stats"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.session == nil {
		return ""
	}
	contentWidth := 60
	if m.width > 0 {
		contentWidth = max(int(float64(m.width)*0.70), 20)
	}
	lines := []string{m.renderHeader(), ""}
	lines = append(lines, m.renderBody(contentWidth)...)
	if m.notice != "" {
		lines = append(lines, "", noticeStyle.Render(truncate(m.notice, contentWidth)))
	}
	content := strings.Join(lines, "\n")
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	footer := m.renderFooter()
	helpLine := m.help.View(m.keys)
	if m.height < 4 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 2
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	helpRow := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, helpLine)
	return body + "\n" + footerLine + "\n" + helpRow
}

func (m *Model) renderHeader() string {
	snap := m.snap
	segments := []string{titleStyle.Render("tangotune"), string(snap.Mode)}
	if g := m.deps.Config.Game; g != "" {
		segments = append(segments, g)
	}
	if snap.Total > 0 && snap.Phase != game.PhaseDone {
		segments = append(segments, fmt.Sprintf("Song %d/%d", snap.Index+1, snap.Total))
	}
	if snap.Mode == model.ModeQuiz {
		segments = append(segments, fmt.Sprintf("Score %d", snap.Score))
	}
	return strings.Join(segments, " · ")
}

func (m *Model) renderBody(width int) []string {
	snap := m.snap
	switch snap.Phase {
	case game.PhaseLoading:
		return []string{m.spinner.View() + pendingStyle.Render(" Loading snippet…")}
	case game.PhaseAwaitingPlay:
		return []string{pendingStyle.Render("Press space to play the next snippet")}
	case game.PhaseDone:
		return m.renderSummary()
	}
	if snap.Mode == model.ModeLearn {
		return songDetails(snap.Question.Song, width)
	}

	var lines []string
	if snap.Phase == game.PhaseReveal {
		lines = append(lines, m.renderVerdict(width), "")
	} else {
		lines = append(lines, m.renderCountdown(), "")
	}
	lines = append(lines, m.renderOptions(width)...)
	return lines
}

func (m *Model) renderCountdown() string {
	snap := m.snap
	if snap.Phase == game.PhaseFadingIn || snap.TimeLimit <= 0 {
		return m.progress.ViewAs(1) + "  " + pendingStyle.Render("get ready")
	}
	remaining := max(snap.TimeLimit-snap.Round.ElapsedSeconds, 0)
	bar := m.progress.ViewAs(remaining / snap.TimeLimit)
	return fmt.Sprintf("%s  %4.1fs  %s", bar, remaining, answerStyle.Render(fmt.Sprintf("%.0f pts", snap.Round.CurrentScore)))
}

func (m *Model) renderVerdict(width int) string {
	snap := m.snap
	song := snap.Question.Song
	detail := truncate(fmt.Sprintf("%s · %s", song.Title, songLine(song)), width)
	switch snap.Round.Outcome {
	case round.OutcomeCorrect:
		return correctStyle.Render(fmt.Sprintf("✓ Correct! +%d", snap.LastAward)) + "\n" + pendingStyle.Render(detail)
	case round.OutcomeZeroed:
		return incorrectStyle.Render("✗ Out of points") + "\n" + pendingStyle.Render(detail)
	default:
		msg := "✗ Time's up"
		if snap.LastAward > 0 {
			msg = fmt.Sprintf("%s +%d", msg, snap.LastAward)
		}
		return incorrectStyle.Render(msg) + "\n" + pendingStyle.Render(detail)
	}
}

func (m *Model) renderOptions(width int) []string {
	snap := m.snap
	reveal := snap.Phase == game.PhaseReveal
	lines := make([]string, 0, len(snap.Question.Options))
	for i, opt := range snap.Question.Options {
		label := truncate(opt, max(width-4, 1))
		style := correctStyle
		switch {
		case reveal && round.Matches(opt, snap.Question.Answer):
			style = answerStyle
		case snap.Wrong[opt]:
			style = incorrectStyle.Strikethrough(true)
		case reveal:
			style = pendingStyle
		}
		lines = append(lines, fmt.Sprintf("%s  %s", pendingStyle.Render(fmt.Sprintf("%d", i+1)), style.Render(label)))
	}
	return lines
}

func (m *Model) renderSummary() []string {
	s := m.summary
	if s == nil {
		return []string{pendingStyle.Render("Session cancelled")}
	}
	var lines []string
	if s.Result.Mode == model.ModeLearn {
		lines = append(lines, fmt.Sprintf("Listened to %d of %d songs", s.Played, s.Result.NumSongs))
	} else {
		lines = append(lines,
			answerStyle.Render(fmt.Sprintf("Final score %d", s.Result.Score)),
			fmt.Sprintf("%d/%d correct", s.Correct, len(s.Rounds)),
		)
		for _, r := range s.Rounds {
			style := correctStyle
			if r.Outcome != round.OutcomeCorrect.String() {
				style = incorrectStyle
			}
			lines = append(lines, style.Render(fmt.Sprintf("%4d  %s", r.Score, truncate(r.Title+" · "+r.Artist, 50))))
		}
	}
	return append(lines, "", pendingStyle.Render("enter: play again · q: quit"))
}

func (m *Model) renderFooter() string {
	if len(m.sessions) == 0 {
		if m.deps.Mode == model.ModeQuiz {
			return footerStyle.Render(fmt.Sprintf("%d songs match", m.matched))
		}
		return ""
	}
	o := statsPkg.Summarize(m.sessions)
	last := m.sessions[len(m.sessions)-1]
	segments := []string{
		fmt.Sprintf("Last %d · %.0f%%", last.Score, statsPkg.SessionAccuracy(last)*100),
		fmt.Sprintf("Best %d", o.BestScore),
		fmt.Sprintf("All-time avg %.1f · %.1f%%", o.AvgScore, o.Accuracy*100),
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}
