package recognition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
)

// Google streams audio to Cloud Speech-to-Text and reports interim results.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS.
type Google struct {
	client *speech.Client
	open   func(ctx context.Context) (speechpb.Speech_StreamingRecognizeClient, error)
	mic    Microphone
	log    zerolog.Logger

	mu     sync.Mutex
	active *googleSession
}

type googleSession struct {
	stream speechpb.Speech_StreamingRecognizeClient
	cancel context.CancelFunc
	sink   Sink
	log    zerolog.Logger

	mu      sync.Mutex
	stopMic func()
	closed  bool
}

// NewGoogle creates a streaming backend reading audio from mic.
func NewGoogle(ctx context.Context, mic Microphone, log zerolog.Logger) (*Google, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	open := func(ctx context.Context) (speechpb.Speech_StreamingRecognizeClient, error) {
		return c.StreamingRecognize(ctx)
	}
	return &Google{client: c, open: open, mic: mic, log: log}, nil
}

// Name implements Recognizer.
func (g *Google) Name() string { return "google" }

// Start implements Recognizer.
func (g *Google) Start(ctx context.Context, lang string, sink Sink) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil {
		return errSessionActive
	}

	// The stream outlives ctx: it ends on Stop or when the service closes it.
	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := g.open(streamCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("open stream: %w", err)
	}
	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: int32(g.mic.SampleRate()),
					LanguageCode:    lang,
				},
				InterimResults:  true,
				SingleUtterance: true,
			},
		},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("send config: %w", err)
	}

	sess := &googleSession{stream: stream, cancel: cancel, sink: sink, log: g.log}
	stop, err := g.mic.Listen(ctx, sess.sendAudio)
	if err != nil {
		cancel()
		return fmt.Errorf("open microphone: %w", err)
	}
	sess.mu.Lock()
	sess.stopMic = stop
	sess.mu.Unlock()

	g.active = sess
	go g.receive(sess)
	return nil
}

// Stop implements Recognizer. Final results and the end of the session follow
// asynchronously. A new session may start as soon as Stop returns.
func (g *Google) Stop() error {
	g.mu.Lock()
	sess := g.active
	g.active = nil
	g.mu.Unlock()
	if sess == nil {
		return nil
	}
	if err := sess.closeSend(); err != nil {
		sess.cancel()
		return err
	}
	return nil
}

// Close releases the client connection.
func (g *Google) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *Google) receive(sess *googleSession) {
	var endErr error
	for {
		resp, err := sess.stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			endErr = fmt.Errorf("receive: %w", err)
			break
		}
		if text := responseText(resp); text != "" {
			sess.sink.Partial(text)
		}
		if resp.SpeechEventType == speechpb.StreamingRecognizeResponse_END_OF_SINGLE_UTTERANCE {
			if err := sess.closeSend(); err != nil {
				sess.log.Warn().Err(err).Msg("close stream after utterance")
			}
		}
	}
	_ = sess.closeSend()
	sess.cancel()

	g.mu.Lock()
	if g.active == sess {
		g.active = nil
	}
	g.mu.Unlock()
	sess.sink.Ended(endErr)
}

func responseText(resp *speechpb.StreamingRecognizeResponse) string {
	parts := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(r.Alternatives[0].Transcript))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (s *googleSession) sendAudio(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	err := s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: pcm},
	})
	if err != nil {
		s.log.Debug().Err(err).Msg("send audio")
	}
}

func (s *googleSession) closeSend() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stop := s.stopMic
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	return s.stream.CloseSend()
}
