package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/diktor/internal/model"
	"github.com/verte-zerg/diktor/internal/recognition"
	"github.com/verte-zerg/diktor/internal/session"
)

type stubPicker struct{}

func (stubPicker) PickRandom(d model.Difficulty) model.Exercise {
	return model.Exercise{ID: "x1", Text: "Шла Саша по шоссе", Difficulty: d, Category: model.TongueTwister}
}

type stubHistory struct {
	count int
}

func (h *stubHistory) Load(context.Context) []model.SessionRecord {
	return make([]model.SessionRecord, h.count)
}

func (h *stubHistory) Append(context.Context, model.SessionRecord) (int, error) {
	h.count++
	return h.count, nil
}

type stubCapture struct{}

func (stubCapture) RequestAccess(context.Context) (session.Stream, error) {
	return &stubStream{}, nil
}

type stubStream struct{}

func (*stubStream) Record() error { return nil }
func (*stubStream) Stop() (session.AudioHandle, error) {
	return stubHandle{}, nil
}
func (*stubStream) Release() error { return nil }

type stubHandle struct{}

func (stubHandle) Path() string   { return "take.wav" }
func (stubHandle) Release() error { return nil }

func newTestModel(t *testing.T, rec recognition.Recognizer, count int) *Model {
	t.Helper()
	ctrl := session.New(context.Background(), session.Config{
		Picker:     stubPicker{},
		Capture:    stubCapture{},
		Recognizer: rec,
		History:    &stubHistory{count: count},
		Logger:     zerolog.Nop(),
	})
	t.Cleanup(ctrl.Close)
	return NewModel(ctrl, zerolog.Nop())
}

func press(m *Model, key string) {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	if key == " " {
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	m.Update(msg)
}

func TestRenderFooterShowsCompletedCount(t *testing.T) {
	m := newTestModel(t, nil, 7)
	out := m.renderFooter(m.ctrl.Snapshot())
	if !containsAll(out, []string{"Completed exercises: 7", "recognition off"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestDifficultyKeysSwitchLevel(t *testing.T) {
	m := newTestModel(t, nil, 0)
	press(m, "3")
	if got := m.ctrl.Snapshot().Difficulty; got != model.Advanced {
		t.Fatalf("expected advanced, got %s", got)
	}
	if !strings.Contains(m.View(), "3 Advanced") {
		t.Fatalf("expected advanced tab in view")
	}
}

func TestRecordKeyToggles(t *testing.T) {
	m := newTestModel(t, &recognition.Scripted{}, 0)
	press(m, "r")
	if !m.ctrl.Snapshot().Recording {
		t.Fatalf("expected recording after r")
	}
	press(m, " ")
	if m.status != busyMessage {
		t.Fatalf("expected busy status, got %q", m.status)
	}
	press(m, "r")
	st := m.ctrl.Snapshot()
	if st.Recording || !st.HasRecording {
		t.Fatalf("expected stopped recording with a take, got %+v", st)
	}
	press(m, "x")
	if m.ctrl.Snapshot().HasRecording {
		t.Fatalf("expected take to be discarded")
	}
}

func TestRecognitionFlowThroughEvents(t *testing.T) {
	rec := &recognition.Scripted{Partials: []string{"шла саша по шоссе"}, EndAfterPartials: true}
	m := newTestModel(t, rec, 0)
	press(m, " ")
	if !m.ctrl.Snapshot().Listening {
		t.Fatalf("expected listening")
	}
	cmd := waitForEvent(m.ctrl.Events())
	for i := 0; i < 2; i++ {
		m.Update(cmd())
	}
	st := m.ctrl.Snapshot()
	if st.Listening || st.Feedback != model.FeedbackMatch || st.HistoryCount != 1 {
		t.Fatalf("unexpected state after recognition: %+v", st)
	}
	view := m.View()
	if !containsAll(view, []string{"Matches the text", "Completed exercises: 1", "Heard:"}) {
		t.Fatalf("view missing recognition result: %s", view)
	}
}

func TestUnsupportedRecognitionShowsNotice(t *testing.T) {
	m := newTestModel(t, nil, 0)
	press(m, " ")
	if !strings.Contains(m.View(), "not available") {
		t.Fatalf("expected unsupported notice in view")
	}
}

func TestPlayWithoutRecording(t *testing.T) {
	m := newTestModel(t, nil, 0)
	press(m, "p")
	if m.playing || m.status != "Nothing recorded yet." {
		t.Fatalf("unexpected playback state %v %q", m.playing, m.status)
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t, nil, 0)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
