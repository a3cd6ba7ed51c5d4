package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/diktor/internal/catalog"
	"github.com/verte-zerg/diktor/internal/model"
)

func at(day, hour int) time.Time {
	return time.Date(2024, 6, day, hour, 0, 0, 0, time.UTC)
}

func sampleRecords() []model.SessionRecord {
	return []model.SessionRecord{
		{ExerciseID: "b1", Date: at(3, 9)},
		{ExerciseID: "i2", Date: at(1, 9)},
		{ExerciseID: "b1", Date: at(2, 9)},
		{ExerciseID: "b1", Date: at(2, 18)},
		{ExerciseID: "gone", Date: at(5, 8)},
		{ExerciseID: "a1", Date: at(6, 8)},
	}
}

func TestBuildReport(t *testing.T) {
	now := at(7, 12)
	report := BuildReport(sampleRecords(), model.HistoryFilter{}, now, 7)

	if len(report.Records) != 6 {
		t.Fatalf("expected 6 records, got %d", len(report.Records))
	}
	if report.Records[0].ExerciseID != "i2" || !report.Records[5].Date.Equal(at(6, 8)) {
		t.Fatalf("expected records sorted by date, got %+v", report.Records)
	}
	if report.PerExercise[0].ExerciseID != "b1" || report.PerExercise[0].Count != 3 {
		t.Fatalf("unexpected top exercise %+v", report.PerExercise[0])
	}
	if !report.PerExercise[0].LastAt.Equal(at(3, 9)) {
		t.Fatalf("unexpected last completion %v", report.PerExercise[0].LastAt)
	}
	if len(report.Daily) != 7 || !report.Daily[6].Day.Equal(at(7, 0)) {
		t.Fatalf("unexpected daily window %+v", report.Daily)
	}
	if report.Daily[1].Count != 2 || report.Daily[3].Count != 0 {
		t.Fatalf("unexpected daily counts %+v", report.Daily)
	}
	if report.ActiveDays != 5 {
		t.Fatalf("expected 5 active days, got %d", report.ActiveDays)
	}
	if report.CurrentStreak != 2 {
		t.Fatalf("expected current streak 2 (days 5 and 6), got %d", report.CurrentStreak)
	}
	if report.LongestStreak != 3 {
		t.Fatalf("expected longest streak 3, got %d", report.LongestStreak)
	}
}

func TestBuildReportFilters(t *testing.T) {
	since := at(3, 0)
	report := BuildReport(sampleRecords(), model.HistoryFilter{Since: &since, Last: 2}, at(7, 12), 0)
	if len(report.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(report.Records))
	}
	if report.Records[0].ExerciseID != "gone" || report.Records[1].ExerciseID != "a1" {
		t.Fatalf("unexpected records %+v", report.Records)
	}
	if len(report.Daily) != defaultDays {
		t.Fatalf("expected default window, got %d", len(report.Daily))
	}
}

func TestCurrentStreakBrokenByGap(t *testing.T) {
	report := BuildReport(sampleRecords(), model.HistoryFilter{}, at(9, 12), 7)
	if report.CurrentStreak != 0 {
		t.Fatalf("expected streak to reset, got %d", report.CurrentStreak)
	}
}

func TestRenderReport(t *testing.T) {
	report := BuildReport(sampleRecords(), model.HistoryFilter{}, at(7, 12), 7)
	var buf bytes.Buffer
	if err := RenderSummary(&buf, report); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if err := RenderExerciseTable(&buf, report, catalog.Lookup); err != nil {
		t.Fatalf("table: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Completed exercises: 6", "Longest streak: 3", "Per-Exercise", "Beginner", "gone  ?"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderEmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	report := BuildReport(nil, model.HistoryFilter{}, at(7, 12), 7)
	if err := RenderSummary(&buf, report); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if err := RenderDaily(&buf, report, 80, false); err != nil {
		t.Fatalf("daily: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No completed exercises yet." {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 9}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{2, 2, 2}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
	if Sparkline(nil) != "" {
		t.Fatalf("expected empty sparkline")
	}
}
