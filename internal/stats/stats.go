package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/diktor/internal/model"
)

const (
	sparkChars     = " .:-=+*#%@"
	dateFormat     = "2006-01-02"
	dateTimeFormat = "2006-01-02 15:04"
	textColumnMax  = 48
)

// Lookup resolves an exercise by ID.
type Lookup func(id string) (model.Exercise, bool)

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints totals and streaks.
func RenderSummary(w io.Writer, r Report) error {
	if len(r.Records) == 0 {
		_, err := fmt.Fprintln(w, "No completed exercises yet.")
		return err
	}
	last := r.Records[len(r.Records)-1].Date
	lines := []string{
		"Summary",
		fmt.Sprintf("Completed exercises: %d", len(r.Records)),
		fmt.Sprintf("Distinct exercises: %d", len(r.PerExercise)),
		fmt.Sprintf("Active days: %d", r.ActiveDays),
		fmt.Sprintf("Current streak: %d", r.CurrentStreak),
		fmt.Sprintf("Longest streak: %d", r.LongestStreak),
		fmt.Sprintf("Last practice: %s", last.Local().Format(dateTimeFormat)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderExerciseTable prints completions per exercise, most practised first.
// Entries whose exercise is no longer in the catalog are listed with a "?" level.
func RenderExerciseTable(w io.Writer, r Report, lookup Lookup) error {
	if len(r.PerExercise) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Per-Exercise"); err != nil {
		return err
	}
	headers := []string{"ID", "Level", "Kind", "Count", "Last", "Text"}
	rows := make([][]string, 0, len(r.PerExercise))
	for _, c := range r.PerExercise {
		level, kind, text := "?", "?", ""
		if ex, ok := lookup(c.ExerciseID); ok {
			level = string(ex.Difficulty)
			kind = ex.Category.Label()
			text = truncate(ex.Text, textColumnMax)
		}
		rows = append(rows, []string{
			c.ExerciseID,
			level,
			kind,
			fmt.Sprintf("%d", c.Count),
			c.LastAt.Local().Format(dateFormat),
			text,
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{3: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderDaily prints a sparkline of the daily series followed by a bar chart.
func RenderDaily(w io.Writer, r Report, totalWidth int, useColor bool) error {
	if len(r.Daily) == 0 || len(r.Records) == 0 {
		return nil
	}
	values := make([]float64, len(r.Daily))
	for i, d := range r.Daily {
		values[i] = float64(d.Count)
	}
	first := r.Daily[0].Day.Format(dateFormat)
	last := r.Daily[len(r.Daily)-1].Day.Format(dateFormat)
	if _, err := fmt.Fprintf(w, "Daily (%s .. %s)\n[%s]\n\n", first, last, Sparkline(values)); err != nil {
		return err
	}
	return PlotDaily(w, r.Daily, totalWidth, useColor)
}

// RenderCatalog prints exercises as an aligned table.
func RenderCatalog(w io.Writer, exercises []model.Exercise) error {
	headers := []string{"ID", "Level", "Kind", "Text"}
	rows := make([][]string, 0, len(exercises))
	for _, ex := range exercises {
		rows = append(rows, []string{ex.ID, string(ex.Difficulty), ex.Category.Label(), ex.Text})
	}
	for _, line := range formatTable(headers, rows, nil) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
