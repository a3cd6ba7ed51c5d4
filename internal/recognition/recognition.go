// Package recognition defines the speech-to-text capability and its backends.
package recognition

import (
	"context"
	"errors"
	"strings"
)

// ErrUnsupported reports that no recognition backend is usable in this environment.
var ErrUnsupported = errors.New("speech recognition is not supported")

// Sink receives the results of one recognition session.
// Partial may be called zero or more times; Ended is called exactly once.
type Sink interface {
	Partial(text string)
	Ended(err error)
}

// Recognizer starts and stops recognition sessions.
// Stop returns before the session has ended; completion is reported through the Sink.
type Recognizer interface {
	Name() string
	Start(ctx context.Context, lang string, sink Sink) error
	Stop() error
}

// Microphone provides raw 16-bit little-endian mono PCM to recognisers.
type Microphone interface {
	Listen(ctx context.Context, onData func(pcm []byte)) (stop func(), err error)
	SampleRate() int
}

// EventKind distinguishes recognition events.
type EventKind int

// Event kinds.
const (
	EventPartial EventKind = iota
	EventEnded
)

// Event is a recognition callback turned into a value so it can cross goroutines.
type Event struct {
	Session uint64
	Kind    EventKind
	Text    string
	Err     error
}

// ChannelSink forwards sink callbacks to a channel, tagged with a session number.
// Sends are dropped once done is closed.
type ChannelSink struct {
	Session uint64
	Out     chan<- Event
	Done    <-chan struct{}
}

// Partial implements Sink.
func (s ChannelSink) Partial(text string) {
	s.send(Event{Session: s.Session, Kind: EventPartial, Text: text})
}

// Ended implements Sink.
func (s ChannelSink) Ended(err error) {
	s.send(Event{Session: s.Session, Kind: EventEnded, Err: err})
}

func (s ChannelSink) send(ev Event) {
	select {
	case s.Out <- ev:
	case <-s.Done:
	}
}

// PrimaryLanguage returns the primary subtag of a BCP 47 tag ("ru-RU" -> "ru").
func PrimaryLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
