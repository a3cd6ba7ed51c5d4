// Package session implements the practice session controller: exercise
// selection, the recording and recognition state machines, and match evaluation.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/diktor/internal/match"
	"github.com/verte-zerg/diktor/internal/model"
	"github.com/verte-zerg/diktor/internal/recognition"
)

// Errors surfaced to the presentation layer. None of them is fatal.
var (
	ErrPermissionDenied      = errors.New("microphone access denied")
	ErrUnsupportedCapability = errors.New("capability not supported")
	ErrBusy                  = errors.New("another activity is in progress")
)

const eventBuffer = 64

// DefaultLanguage is the recognition language of the built-in catalog.
const DefaultLanguage = "ru-RU"

// Picker chooses the exercise for a difficulty.
type Picker interface {
	PickRandom(d model.Difficulty) model.Exercise
}

// Capture grants access to the microphone.
type Capture interface {
	// RequestAccess returns ErrPermissionDenied (possibly wrapped) when access is refused.
	RequestAccess(ctx context.Context) (Stream, error)
}

// Stream is a live microphone stream owned by the controller.
type Stream interface {
	Record() error
	Stop() (AudioHandle, error)
	Release() error
}

// AudioHandle is a playable recording.
type AudioHandle interface {
	Path() string
	Release() error
}

// Player plays recordings.
type Player interface {
	Play(ctx context.Context, h AudioHandle) error
}

// HistoryStore persists completed attempts.
type HistoryStore interface {
	Load(ctx context.Context) []model.SessionRecord
	Append(ctx context.Context, rec model.SessionRecord) (int, error)
}

// Config wires the controller's collaborators. Capture, Recognizer and Player
// may be nil when the capability is not available.
type Config struct {
	Picker     Picker
	Capture    Capture
	Recognizer recognition.Recognizer
	Player     Player
	History    HistoryStore
	Difficulty model.Difficulty
	Lang       string
	Now        func() time.Time
	Logger     zerolog.Logger
}

// State is a read-only snapshot of the controller.
type State struct {
	Difficulty   model.Difficulty
	Exercise     *model.Exercise
	Recording    bool
	Listening    bool
	Transcript   string
	Feedback     model.Feedback
	HasRecording bool
	HistoryCount int
	Notice       string
}

// Controller owns the practice session state. It is not safe for concurrent
// use: call it from a single goroutine and feed it the values received from
// Events through HandleEvent.
type Controller struct {
	picker     Picker
	capture    Capture
	recognizer recognition.Recognizer
	player     Player
	history    HistoryStore
	lang       string
	now        func() time.Time
	log        zerolog.Logger

	difficulty   model.Difficulty
	exercise     *model.Exercise
	transcript   string
	feedback     model.Feedback
	audio        AudioHandle
	historyCount int
	notice       string

	stream    Stream
	listening bool
	stopping  bool
	listenSeq uint64

	unsupportedNoticed bool

	events chan recognition.Event
	done   chan struct{}
	closed bool
}

// New creates a controller, loads the history count and picks the first exercise.
func New(ctx context.Context, cfg Config) *Controller {
	d := cfg.Difficulty
	if !d.Valid() {
		d = model.Beginner
	}
	lang := cfg.Lang
	if lang == "" {
		lang = DefaultLanguage
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		picker:     cfg.Picker,
		capture:    cfg.Capture,
		recognizer: cfg.Recognizer,
		player:     cfg.Player,
		history:    cfg.History,
		lang:       lang,
		now:        now,
		log:        cfg.Logger,
		difficulty: d,
		events:     make(chan recognition.Event, eventBuffer),
		done:       make(chan struct{}),
	}
	if c.history != nil {
		c.historyCount = len(c.history.Load(ctx))
	}
	c.pick()
	return c
}

// Events delivers recognition callbacks. Pass each value to HandleEvent.
func (c *Controller) Events() <-chan recognition.Event {
	return c.events
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	st := State{
		Difficulty:   c.difficulty,
		Recording:    c.stream != nil,
		Listening:    c.listening,
		Transcript:   c.transcript,
		Feedback:     c.feedback,
		HasRecording: c.audio != nil,
		HistoryCount: c.historyCount,
		Notice:       c.notice,
	}
	if c.exercise != nil {
		ex := *c.exercise
		st.Exercise = &ex
	}
	return st
}

// RecognitionAvailable reports whether a recognizer was injected.
func (c *Controller) RecognitionAvailable() bool {
	return c.recognizer != nil
}

// SelectDifficulty switches level and picks a new exercise.
func (c *Controller) SelectDifficulty(d model.Difficulty) error {
	if !d.Valid() {
		return fmt.Errorf("unknown difficulty %q", d)
	}
	c.difficulty = d
	c.pick()
	return nil
}

// NextExercise picks a new exercise at the current level.
func (c *Controller) NextExercise() {
	c.pick()
}

func (c *Controller) pick() {
	c.abortActivity()
	ex := c.picker.PickRandom(c.difficulty)
	c.exercise = &ex
	c.transcript = ""
	c.feedback = model.FeedbackNeutral
	c.notice = ""
	c.releaseAudio()
}

// StartRecording opens the microphone and starts capturing.
func (c *Controller) StartRecording(ctx context.Context) error {
	if c.stream != nil || c.listening {
		return ErrBusy
	}
	if c.capture == nil {
		c.notice = "No microphone is available."
		return ErrPermissionDenied
	}
	stream, err := c.capture.RequestAccess(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("microphone access failed")
		c.notice = "Could not access the microphone. Check permissions."
		if errors.Is(err, ErrPermissionDenied) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if err := stream.Record(); err != nil {
		if rerr := stream.Release(); rerr != nil {
			c.log.Warn().Err(rerr).Msg("release stream after failed start")
		}
		c.notice = "Could not start recording."
		return fmt.Errorf("start recording: %w", err)
	}
	c.releaseAudio()
	c.stream = stream
	c.notice = ""
	return nil
}

// StopRecording finalises the capture. It is a no-op when not recording.
func (c *Controller) StopRecording() error {
	if c.stream == nil {
		return nil
	}
	stream := c.stream
	c.stream = nil
	handle, err := stream.Stop()
	if rerr := stream.Release(); rerr != nil {
		c.log.Warn().Err(rerr).Msg("release stream")
	}
	if err != nil {
		c.notice = "Recording failed."
		return fmt.Errorf("stop recording: %w", err)
	}
	c.audio = handle
	return nil
}

// StartListening starts a recognition session for the current exercise.
func (c *Controller) StartListening(ctx context.Context) error {
	if c.recognizer == nil {
		if !c.unsupportedNoticed {
			c.unsupportedNoticed = true
			c.notice = "Speech recognition is not available. Configure a recognizer backend."
		}
		return ErrUnsupportedCapability
	}
	if c.stream != nil || c.listening {
		return ErrBusy
	}
	c.transcript = ""
	c.feedback = model.FeedbackNeutral
	c.listenSeq++
	sink := recognition.ChannelSink{Session: c.listenSeq, Out: c.events, Done: c.done}
	if err := c.recognizer.Start(ctx, c.lang, sink); err != nil {
		c.log.Warn().Err(err).Str("recognizer", c.recognizer.Name()).Msg("start recognition")
		c.notice = "Could not start speech recognition."
		return fmt.Errorf("start recognition: %w", err)
	}
	c.listening = true
	c.stopping = false
	c.notice = ""
	return nil
}

// StopListening asks the recognizer to finish. The controller leaves the
// listening state only when the recognizer reports the end of the session.
func (c *Controller) StopListening() error {
	if !c.listening || c.stopping {
		return nil
	}
	c.stopping = true
	if err := c.recognizer.Stop(); err != nil {
		c.stopping = false
		return fmt.Errorf("stop recognition: %w", err)
	}
	return nil
}

// HandleEvent applies a value received from Events.
func (c *Controller) HandleEvent(ctx context.Context, ev recognition.Event) {
	if !c.listening || ev.Session != c.listenSeq {
		return
	}
	switch ev.Kind {
	case recognition.EventPartial:
		c.transcript = ev.Text
	case recognition.EventEnded:
		c.listening = false
		c.stopping = false
		if ev.Err != nil {
			c.log.Warn().Err(ev.Err).Msg("recognition ended with error")
			c.notice = "Speech recognition failed."
		}
		c.evaluate(ctx)
	}
}

func (c *Controller) evaluate(ctx context.Context) {
	if c.transcript == "" || c.exercise == nil {
		return
	}
	c.feedback = match.Evaluate(c.transcript, c.exercise.Text)
	c.log.Info().
		Str("exercise", c.exercise.ID).
		Str("feedback", c.feedback.String()).
		Msg("attempt evaluated")
	if c.feedback != model.FeedbackMatch || c.history == nil {
		return
	}
	count, err := c.history.Append(ctx, model.SessionRecord{ExerciseID: c.exercise.ID, Date: c.now().UTC()})
	if err != nil {
		c.log.Warn().Err(err).Msg("history entry dropped")
		return
	}
	c.historyCount = count
}

// PlayRecording plays the last recording. It blocks until playback ends.
func (c *Controller) PlayRecording(ctx context.Context) error {
	if c.audio == nil {
		return nil
	}
	if c.player == nil {
		return ErrUnsupportedCapability
	}
	return c.player.Play(ctx, c.audio)
}

// Recording returns the last recording handle, or nil.
func (c *Controller) Recording() AudioHandle {
	return c.audio
}

// DiscardRecording drops the last recording.
func (c *Controller) DiscardRecording() {
	c.releaseAudio()
}

// Close stops any activity and releases held resources. It is idempotent.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.abortActivity()
	c.releaseAudio()
	close(c.done)
}

func (c *Controller) abortActivity() {
	if c.stream != nil {
		stream := c.stream
		c.stream = nil
		if handle, err := stream.Stop(); err == nil && handle != nil {
			if rerr := handle.Release(); rerr != nil {
				c.log.Warn().Err(rerr).Msg("release aborted recording")
			}
		}
		if err := stream.Release(); err != nil {
			c.log.Warn().Err(err).Msg("release stream")
		}
	}
	if c.listening {
		c.listening = false
		if !c.stopping {
			if err := c.recognizer.Stop(); err != nil {
				c.log.Warn().Err(err).Msg("stop recognition")
			}
		}
		c.stopping = false
	}
}

func (c *Controller) releaseAudio() {
	if c.audio == nil {
		return
	}
	if err := c.audio.Release(); err != nil {
		c.log.Warn().Err(err).Msg("release recording")
	}
	c.audio = nil
}
