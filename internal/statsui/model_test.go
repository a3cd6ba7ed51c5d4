package statsui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/diktor/internal/catalog"
	"github.com/verte-zerg/diktor/internal/model"
)

func fixedSource(records []model.SessionRecord, err error) Source {
	return func(context.Context) ([]model.SessionRecord, error) {
		return records, err
	}
}

func sampleRecords() []model.SessionRecord {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	return []model.SessionRecord{
		{ExerciseID: "b1", Date: base.AddDate(0, 0, -2)},
		{ExerciseID: "b1", Date: base.AddDate(0, 0, -1)},
		{ExerciseID: "i1", Date: base},
	}
}

func newSizedModel(t *testing.T, src Source) *Model {
	t.Helper()
	m := NewModel(src, catalog.Lookup, model.HistoryFilter{}, 14)
	m.now = func() time.Time { return time.Date(2026, 3, 10, 18, 0, 0, 0, time.Local) }
	m.refreshReport()
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestOverviewShowsTotals(t *testing.T) {
	m := newSizedModel(t, fixedSource(sampleRecords(), nil))
	if got := len(m.report.Records); got != 3 {
		t.Fatalf("expected 3 records, got %d", got)
	}
	if m.report.CurrentStreak != 3 {
		t.Fatalf("expected streak 3, got %d", m.report.CurrentStreak)
	}
	view := m.View()
	if !strings.Contains(view, "Completed") || !strings.Contains(view, "Daily") {
		t.Fatalf("overview missing content:\n%s", view)
	}
}

func TestExercisesTabListsCounts(t *testing.T) {
	m := newSizedModel(t, fixedSource(sampleRecords(), nil))
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabExercises {
		t.Fatalf("expected exercises tab, got %d", m.activeTab)
	}
	rows := m.table.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "b1" || rows[0][3] != "2" {
		t.Fatalf("unexpected first row %v", rows[0])
	}
}

func TestUnknownExerciseShowsPlaceholder(t *testing.T) {
	rows := buildRows([]model.ExerciseCount{{ExerciseID: "gone", Count: 1}}, catalog.Lookup)
	if rows[0][1] != "?" || rows[0][5] != "" {
		t.Fatalf("unexpected row %v", rows[0])
	}
}

func TestFilterAppliesLast(t *testing.T) {
	m := newSizedModel(t, fixedSource(sampleRecords(), nil))
	m.Update(keyMsg("/"))
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m.filterInputs[1].SetValue("1")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMode {
		t.Fatalf("expected filter mode to close, error %q", m.filterError)
	}
	if m.filter.Last != 1 || len(m.report.Records) != 1 {
		t.Fatalf("expected one record after filter, got %d", len(m.report.Records))
	}
}

func TestFilterRejectsBadInput(t *testing.T) {
	m := newSizedModel(t, fixedSource(sampleRecords(), nil))
	m.Update(keyMsg("/"))
	m.filterInputs[0].SetValue("yesterday")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.filterMode || m.filterError == "" {
		t.Fatalf("expected filter error to keep the form open")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.filterMode {
		t.Fatalf("expected esc to close the form")
	}
}

func TestDayWindowSteps(t *testing.T) {
	if got := nextDays(14); got != 21 {
		t.Fatalf("nextDays(14) = %d", got)
	}
	if got := nextDays(10); got != 14 {
		t.Fatalf("nextDays(10) = %d", got)
	}
	if got := nextDays(maxDaysWindow); got != maxDaysWindow {
		t.Fatalf("nextDays(max) = %d", got)
	}
	if got := prevDays(10); got != 7 {
		t.Fatalf("prevDays(10) = %d", got)
	}
	if got := prevDays(7); got != 7 {
		t.Fatalf("prevDays(7) = %d", got)
	}
}

func TestLoadErrorIsShown(t *testing.T) {
	m := newSizedModel(t, fixedSource(nil, errors.New("disk gone")))
	if !strings.Contains(m.View(), "failed to load history") {
		t.Fatalf("expected load error in view")
	}
}

func TestQuitKey(t *testing.T) {
	m := newSizedModel(t, fixedSource(nil, nil))
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
