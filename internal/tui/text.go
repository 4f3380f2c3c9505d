package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tangotune/internal/model"
)

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// songLine is the short attribution shown after a round: artist, singer and year.
func songLine(song model.Song) string {
	parts := []string{song.Artist}
	if song.Singer != "" {
		parts = append(parts, song.Singer)
	}
	if song.Year > 0 {
		parts = append(parts, fmt.Sprintf("%d", song.Year))
	}
	return strings.Join(parts, " · ")
}

// songDetails lays out every known field of song as aligned label/value rows.
func songDetails(song model.Song, width int) []string {
	rows := [][2]string{
		{"Title", song.Title},
		{"Artist", song.Artist},
		{"Singer", song.Singer},
		{"Style", song.Style},
		{"Composer", song.Composer},
	}
	if song.Year > 0 {
		rows = append(rows, [2]string{"Year", fmt.Sprintf("%d", song.Year)})
	}
	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, runewidth.StringWidth(r[0]))
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		label := pendingStyle.Render(runewidth.FillRight(r[0], labelWidth))
		value := truncate(r[1], max(width-labelWidth-2, 1))
		if r[0] == "Title" {
			value = answerStyle.Render(value)
		} else {
			value = correctStyle.Render(value)
		}
		lines = append(lines, label+"  "+value)
	}
	return lines
}
