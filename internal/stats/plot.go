package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	axisLabelTop        = "max"
	axisLabelBottom     = "min"
	axisSeparator       = " │ "
	terminalWidthBackup = 80
)

// Each series gets a dash pattern so overlapping lines stay apart without color.
var dashPatterns = []struct {
	name   string
	period int
	on     int
}{
	{"solid", 1, 1},
	{"dashed", 6, 3},
	{"dotted", 4, 1},
}

var seriesColors = []lipgloss.Color{"#C89A3A", "#5FB3B3", "#B48EAD"}

// PlotSeries renders a braille line chart with one row per four dot rows.
// Every series is scaled to its own min and max, printed above the chart.
func PlotSeries(w io.Writer, title string, series []Series, width, height int, useColor bool) error {
	filtered := series[:0:0]
	for _, s := range series {
		if len(s.Values) > 0 {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(TerminalWidth(os.Stdout))
	}
	width = max(width, minPlotWidth)

	layers := make([][][]uint8, len(filtered))
	var legend []string
	var header []string
	for si, s := range filtered {
		values := resample(s.Values, width*2)
		lo, hi := seriesMinMax(s.Values)
		header = append(header, fmt.Sprintf("%s: min=%.1f max=%.1f", s.Name, lo, hi))
		if math.Abs(hi-lo) < 1e-9 {
			lo--
			hi++
		}
		cells := make([][]uint8, height)
		for y := range cells {
			cells[y] = make([]uint8, width)
		}
		pattern := dashPatterns[si%len(dashPatterns)]
		prevX, prevY := -1, -1
		for x, v := range values {
			y := int(math.Round((1 - (v-lo)/(hi-lo)) * float64(height*4-1)))
			if prevX >= 0 {
				drawLine(prevX, prevY, x, y, func(px, py int) {
					if pattern.period <= 1 || px%pattern.period < pattern.on {
						setDot(cells, px, py)
					}
				})
			} else {
				setDot(cells, x, y)
			}
			prevX, prevY = x, y
		}
		layers[si] = cells
		legend = append(legend, colorize(fmt.Sprintf("%c %s (%s)", rune(0x2801), s.Name, pattern.name), si, useColor))
	}

	lines := []string{}
	if title != "" {
		lines = append(lines, title)
	}
	lines = append(lines, header...)
	labelWidth := runewidth.StringWidth(axisLabelTop)
	for y := 0; y < height; y++ {
		label := ""
		switch y {
		case 0:
			label = axisLabelTop
		case height - 1:
			label = axisLabelBottom
		}
		var row strings.Builder
		row.WriteString(runewidth.FillLeft(label, labelWidth))
		row.WriteString(axisSeparator)
		for x := 0; x < width; x++ {
			var mask uint8
			owner := -1
			for si, cells := range layers {
				if m := cells[y][x]; m != 0 {
					if owner < 0 {
						owner = si
					}
					mask |= m
				}
			}
			ch := string(rune(0x2800 + int(mask)))
			if owner >= 0 {
				ch = colorize(ch, owner, useColor)
			}
			row.WriteString(ch)
		}
		lines = append(lines, row.String())
	}
	lines = append(lines, "Legend: "+strings.Join(legend, "  "), "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	axis := runewidth.StringWidth(axisLabelTop) + runewidth.StringWidth(axisSeparator)
	return max(totalWidth-axis, minPlotWidth)
}

// TerminalWidth reports the width of f when it is a terminal, or a fallback.
func TerminalWidth(f *os.File) int {
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// UseColor reports whether output to w should be colored.
func UseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func colorize(s string, idx int, useColor bool) string {
	if !useColor {
		return s
	}
	return lipgloss.NewStyle().Foreground(seriesColors[idx%len(seriesColors)]).Render(s)
}

// resample stretches or averages values to exactly n points.
func resample(values []float64, n int) []float64 {
	out := make([]float64, n)
	if len(values) == 1 || n == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	if len(values) > n {
		for i := range out {
			start := i * len(values) / n
			end := max((i+1)*len(values)/n, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	for i := range out {
		pos := float64(i) * float64(len(values)-1) / float64(n-1)
		idx := int(pos)
		if idx >= len(values)-1 {
			out[i] = values[len(values)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
	}
	return out
}

func seriesMinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// drawLine walks a Bresenham line from (x0,y0) to (x1,y1).
func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Braille cells are 2 dots wide and 4 high.
var brailleMasks = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func setDot(cells [][]uint8, x, y int) {
	cy, cx := y/4, x/2
	if x < 0 || y < 0 || cy >= len(cells) || cx >= len(cells[cy]) {
		return
	}
	cells[cy][cx] |= brailleMasks[x%2][y%4]
}
