package statsui

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tangotune/internal/model"
	"github.com/verte-zerg/tangotune/internal/stats"
)

func artistColumns() []table.Column {
	return []table.Column{
		{Title: stats.ArtistHeaders[0], Width: 28},
		{Title: stats.ArtistHeaders[1], Width: 9},
		{Title: stats.ArtistHeaders[2], Width: 8},
		{Title: stats.ArtistHeaders[3], Width: 7},
		{Title: stats.ArtistHeaders[4], Width: 12},
	}
}

func sessionColumns() []table.Column {
	return []table.Column{
		{Title: stats.SessionHeaders[0], Width: 17},
		{Title: stats.SessionHeaders[1], Width: 16},
		{Title: stats.SessionHeaders[2], Width: 6},
		{Title: stats.SessionHeaders[3], Width: 8},
		{Title: stats.SessionHeaders[4], Width: 9},
	}
}

func artistRows(aggs []model.ArtistAggregate) []table.Row {
	return toRows(stats.ArtistRows(aggs))
}

func sessionRows(sessions []model.SessionAggregate) []table.Row {
	return toRows(stats.SessionRows(sessions))
}

func toRows(cells [][]string) []table.Row {
	rows := make([]table.Row, len(cells))
	for i, c := range cells {
		rows[i] = table.Row(c)
	}
	return rows
}

func newTable(columns []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(1),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	t.SetStyles(styles)
	return t
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	return padLines(m.renderTabs(), m.width) + "\n" + padLines(m.renderFilterSummary(), m.width)
}

func (m *Model) renderFilterSummary() string {
	game := m.cfg.Game
	if game == "" {
		game = "any"
	}
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Settings: game=%s  since=%s  last=%s  window=%d", game, since, last, m.cfg.CurveWindow)
	if len(m.games) > 0 {
		summary += "  games: " + strings.Join(m.games, ", ")
	}
	return headerStyle.Render(stats.Truncate(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q"
	if m.activeTab == tabSessions {
		help = "Nav: left/right  Select: up/down  Rounds: enter  Window: -/=  Settings: /  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if t := m.tables[m.activeTab]; t != nil {
		switch {
		case len(m.report.Sessions) == 0:
			return fitLines("No sessions found.", m.width, height)
		case m.activeTab == tabArtists && len(m.report.ArtistAggsWindow) == 0:
			return fitLines("No artist stats found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(t.View()), m.width, height)
	}
	return fitLines(m.overview.View(), m.width, height)
}

func renderOverview(report stats.Report, window, width int) string {
	sessions := report.Sessions
	if len(sessions) == 0 {
		return "No sessions found."
	}
	o := stats.Summarize(sessions)
	cards := []string{
		metricCard("Sessions", fmt.Sprintf("%d", o.Sessions)),
		metricCard("Avg score", fmt.Sprintf("%.1f", o.AvgScore)),
		metricCard("Best score", fmt.Sprintf("%d", o.BestScore)),
		metricCard("Accuracy", fmt.Sprintf("%.1f%%", o.Accuracy*100)),
		metricCard("Avg answer", fmt.Sprintf("%.2fs", o.AvgAnswerTime)),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
		summary = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}

	lines := []string{summary, ""}
	if top := stats.MostPlayed(report.ArtistAggsAll, 3); len(top) > 0 {
		lines = append(lines, headerStyle.Render("Most played: "+strings.Join(top, ", ")))
	}
	lines = append(lines, headerStyle.Render("Scores: ")+stats.Truncate(stats.Sparkline(stats.ScoreSeries(sessions)), max(width-8, 1)), "")

	var buf bytes.Buffer
	if err := stats.RenderScoreCurve(&buf, sessions, window, width, plotHeight, true); err != nil {
		lines = append(lines, fmt.Sprintf("Failed to render curve: %v", err))
	} else {
		lines = append(lines, buf.String())
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func metricCard(label, value string) string {
	return cardStyle.Render(fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value)))
}

func (m *Model) renderRoundsModal() string {
	body := []string{cardValueStyle.Render(m.roundsTitle)}
	inner := max(modalWidth(m.width)-6, 10)
	if len(m.rounds) == 0 {
		body = append(body, headerStyle.Render("No rounds recorded."))
	}
	for _, r := range m.rounds {
		line := fmt.Sprintf("%2d. %-9s %4d  %s · %s", r.Index+1, r.Outcome, r.Score, r.Title, r.Artist)
		body = append(body, stats.Truncate(line, inner))
	}
	body = append(body, "", headerStyle.Render("Enter / Esc to close"))
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func modalWidth(width int) int {
	return max(40, min(width-4, 90))
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	if w := lipgloss.Width(line); w < width {
		return line + strings.Repeat(" ", width-w)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
