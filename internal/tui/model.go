// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/diktor/internal/model"
	"github.com/verte-zerg/diktor/internal/recognition"
	"github.com/verte-zerg/diktor/internal/session"
)

var (
	heardStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	matchStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	mismatchStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14"))
	activeTabStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true).Underline(true)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	recordingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

type recognitionMsg recognition.Event

type playbackDoneMsg struct {
	err error
}

// Model implements the Bubble Tea practice UI on top of a session controller.
type Model struct {
	ctrl *session.Controller
	log  zerolog.Logger

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width  int
	height int

	status     string
	playing    bool
	stopPlayer context.CancelFunc
}

// NewModel constructs the practice UI.
func NewModel(ctrl *session.Controller, log zerolog.Logger) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = recordingStyle
	return &Model{
		ctrl:    ctrl,
		log:     log,
		keys:    newKeyMap(),
		help:    help.New(),
		spinner: sp,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.ctrl.Events()), m.spinner.Tick)
}

func waitForEvent(events <-chan recognition.Event) tea.Cmd {
	return func() tea.Msg {
		return recognitionMsg(<-events)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case recognitionMsg:
		m.ctrl.HandleEvent(context.Background(), recognition.Event(msg))
		return m, waitForEvent(m.ctrl.Events())
	case playbackDoneMsg:
		m.playing = false
		m.stopPlayer = nil
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.log.Warn().Err(msg.err).Msg("playback failed")
			m.status = "Playback failed."
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		if m.stopPlayer != nil {
			m.stopPlayer()
		}
		return m, tea.Quit
	}
	if m.playing {
		if key.Matches(msg, m.keys.Play) && m.stopPlayer != nil {
			m.stopPlayer()
		}
		return m, nil
	}
	m.status = ""
	ctx := context.Background()
	st := m.ctrl.Snapshot()
	switch {
	case key.Matches(msg, m.keys.Beginner):
		m.report(m.ctrl.SelectDifficulty(model.Beginner))
	case key.Matches(msg, m.keys.Intermediate):
		m.report(m.ctrl.SelectDifficulty(model.Intermediate))
	case key.Matches(msg, m.keys.Advanced):
		m.report(m.ctrl.SelectDifficulty(model.Advanced))
	case key.Matches(msg, m.keys.Next):
		m.ctrl.NextExercise()
	case key.Matches(msg, m.keys.Record):
		if st.Recording {
			m.report(m.ctrl.StopRecording())
		} else {
			m.report(m.ctrl.StartRecording(ctx))
		}
	case key.Matches(msg, m.keys.Recognize):
		if st.Listening {
			m.report(m.ctrl.StopListening())
		} else {
			m.report(m.ctrl.StartListening(ctx))
		}
	case key.Matches(msg, m.keys.Play):
		return m, m.startPlayback(st)
	case key.Matches(msg, m.keys.Discard):
		m.ctrl.DiscardRecording()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// startPlayback plays the last take in a command. Other keys are ignored until
// it finishes, so the controller is not touched from two goroutines.
func (m *Model) startPlayback(st session.State) tea.Cmd {
	if !st.HasRecording {
		m.status = "Nothing recorded yet."
		return nil
	}
	if st.Recording || st.Listening {
		m.status = busyMessage
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.playing = true
	m.stopPlayer = cancel
	ctrl := m.ctrl
	return func() tea.Msg {
		defer cancel()
		return playbackDoneMsg{err: ctrl.PlayRecording(ctx)}
	}
}

const busyMessage = "Finish the current recording or recognition first."

// report turns controller errors into a status line. Errors that already set a
// controller notice are shown through the notice.
func (m *Model) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, session.ErrBusy):
		m.status = busyMessage
	case errors.Is(err, session.ErrPermissionDenied), errors.Is(err, session.ErrUnsupportedCapability):
	default:
		m.log.Warn().Err(err).Msg("action failed")
		if m.ctrl.Snapshot().Notice == "" {
			m.status = err.Error()
		}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	st := m.ctrl.Snapshot()
	if st.Exercise == nil {
		return ""
	}
	contentWidth := m.width * 70 / 100
	if m.width == 0 {
		contentWidth = 0
	} else if contentWidth < 1 {
		contentWidth = 1
	}

	targetRunes := []rune(st.Exercise.Text)
	styled := buildStyledRunes(targetRunes, heardWords(st.Transcript), st.Listening)
	text := wrapStyledRunes(styled, contentWidth)

	sections := []string{
		m.renderTabs(st),
		footerStyle.Render(st.Exercise.Category.Label()),
		"",
		text,
		"",
	}
	if line := m.renderActivity(st); line != "" {
		sections = append(sections, line)
	}
	if st.Transcript != "" {
		sections = append(sections, footerStyle.Render("Heard: ")+st.Transcript)
	}
	if line := renderFeedback(st.Feedback); line != "" {
		sections = append(sections, line)
	}
	if st.Notice != "" {
		sections = append(sections, noticeStyle.Render(st.Notice))
	}
	if m.status != "" {
		sections = append(sections, noticeStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")
	if contentWidth > 0 {
		content = lipgloss.NewStyle().Width(contentWidth).Render(content)
	}

	footer := m.renderFooter(st)
	if m.width == 0 || m.height < 3 {
		return content + "\n\n" + footer
	}
	footerHeight := lipgloss.Height(footer)
	bodyHeight := m.height - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerBlock := lipgloss.Place(m.width, footerHeight, lipgloss.Center, lipgloss.Bottom, footer)
	return body + "\n" + footerBlock
}

func (m *Model) renderTabs(st session.State) string {
	parts := make([]string, 0, len(model.Difficulties()))
	for i, d := range model.Difficulties() {
		label := fmt.Sprintf("%d %s", i+1, d)
		if d == st.Difficulty {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, inactiveTabStyle.Render(label))
		}
	}
	return strings.Join(parts, "   ")
}

func (m *Model) renderActivity(st session.State) string {
	switch {
	case st.Recording:
		return m.spinner.View() + recordingStyle.Render(" Recording... press r to stop")
	case st.Listening:
		return m.spinner.View() + currentWordStyle.Render(" Listening... press space to stop")
	case m.playing:
		return footerStyle.Render("Playing recording... press p to stop")
	case st.HasRecording:
		return footerStyle.Render("Recording ready: p to play, x to discard")
	default:
		return ""
	}
}

func renderFeedback(f model.Feedback) string {
	switch f {
	case model.FeedbackMatch:
		return matchStyle.Render("Matches the text. Well done!")
	case model.FeedbackMismatch:
		return mismatchStyle.Render("Does not match the text. Try again.")
	default:
		return ""
	}
}

func (m *Model) renderFooter(st session.State) string {
	segments := []string{fmt.Sprintf("Completed exercises: %d", st.HistoryCount)}
	if !m.ctrl.RecognitionAvailable() {
		segments = append(segments, "recognition off")
	}
	line := footerStyle.Render(strings.Join(segments, "  "))
	return line + "\n" + m.help.View(m.keys)
}
