package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/verte-zerg/diktor/internal/capture"
	"github.com/verte-zerg/diktor/internal/session"
)

// captureAdapter exposes the microphone through the controller's interfaces.
type captureAdapter struct {
	mic *capture.Microphone
}

func (a captureAdapter) RequestAccess(ctx context.Context) (session.Stream, error) {
	stream, err := a.mic.RequestAccess(ctx)
	if err != nil {
		if errors.Is(err, capture.ErrPermissionDenied) {
			return nil, fmt.Errorf("%w: %v", session.ErrPermissionDenied, err)
		}
		return nil, err
	}
	return streamAdapter{stream: stream}, nil
}

type streamAdapter struct {
	stream *capture.Stream
}

func (s streamAdapter) Record() error {
	return s.stream.Record()
}

func (s streamAdapter) Stop() (session.AudioHandle, error) {
	rec, err := s.stream.Stop()
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s streamAdapter) Release() error {
	return s.stream.Release()
}

type playerAdapter struct {
	player *capture.Player
}

func (p playerAdapter) Play(ctx context.Context, h session.AudioHandle) error {
	return p.player.PlayFile(ctx, h.Path())
}
