package recognition

import (
	"context"
	"sync"
)

// Scripted replays fixed partial results. It ends when stopped, or right after
// the last partial when EndAfterPartials is set.
type Scripted struct {
	Partials         []string
	EndAfterPartials bool
	Err              error

	mu      sync.Mutex
	stop    chan struct{}
	starts  int
	stops   int
	lastTag string
}

// Name implements Recognizer.
func (s *Scripted) Name() string { return "scripted" }

// Start implements Recognizer.
func (s *Scripted) Start(_ context.Context, lang string, sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return errSessionActive
	}
	s.starts++
	s.lastTag = lang
	stop := make(chan struct{})
	s.stop = stop
	partials := append([]string(nil), s.Partials...)
	go func() {
		for _, p := range partials {
			sink.Partial(p)
		}
		if !s.EndAfterPartials {
			<-stop
		}
		s.mu.Lock()
		if s.stop == stop {
			s.stop = nil
		}
		s.mu.Unlock()
		sink.Ended(s.Err)
	}()
	return nil
}

// Stop implements Recognizer.
func (s *Scripted) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	return nil
}

// Starts returns how many sessions were started.
func (s *Scripted) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Stops returns how many times Stop was called.
func (s *Scripted) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// LastLanguage returns the language tag of the latest session.
func (s *Scripted) LastLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTag
}
