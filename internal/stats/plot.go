package stats

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/diktor/internal/model"
)

const (
	minBarWidth         = 10
	barSeparator        = " │ "
	barRune             = "█"
	colorBar            = "\x1b[36m"
	colorToday          = "\x1b[32m"
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

// PlotDaily renders one bar per day, starting at the first day with activity.
// totalWidth <= 0 uses the terminal width.
func PlotDaily(w io.Writer, days []model.DayCount, totalWidth int, forceColor bool) error {
	start := -1
	maxCount := 0
	for i, d := range days {
		if d.Count > 0 && start < 0 {
			start = i
		}
		if d.Count > maxCount {
			maxCount = d.Count
		}
	}
	if start < 0 {
		return nil
	}
	if totalWidth <= 0 {
		totalWidth = TerminalWidth()
	}
	countWidth := len(fmt.Sprintf("%d", maxCount))
	barWidth := BarWidthFor(totalWidth, countWidth)
	useColor := shouldUseColor(w, forceColor)

	for i := start; i < len(days); i++ {
		d := days[i]
		n := scaleBar(d.Count, maxCount, barWidth)
		bar := strings.Repeat(barRune, n)
		if useColor && n > 0 {
			color := colorBar
			if i == len(days)-1 {
				color = colorToday
			}
			bar = color + bar + colorReset
		}
		line := fmt.Sprintf("%s%s%*d %s", d.Day.Format(dateFormat), barSeparator, countWidth, d.Count, bar)
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// BarWidthFor computes the bar area that fits next to the date and count columns.
func BarWidthFor(totalWidth, countWidth int) int {
	labelWidth := len(dateFormat) + displayWidth(barSeparator) + countWidth + 1
	width := totalWidth - labelWidth
	if width < minBarWidth {
		width = minBarWidth
	}
	return width
}

// scaleBar maps count onto [0, width]; any non-zero count gets at least one cell.
func scaleBar(count, maxCount, width int) int {
	if count <= 0 || maxCount <= 0 {
		return 0
	}
	n := count * width / maxCount
	if n < 1 {
		n = 1
	}
	return n
}

// TerminalWidth returns the stdout width, or a fallback when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
