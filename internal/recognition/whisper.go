package recognition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/verte-zerg/diktor/internal/encoder"
)

const defaultWhisperTimeout = 60 * time.Second

var errSessionActive = errors.New("recognition session already active")

// WhisperConfig configures the OpenAI-compatible transcription backend.
type WhisperConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Whisper records while listening and transcribes the whole utterance on stop.
type Whisper struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	mic     Microphone
	log     zerolog.Logger

	mu     sync.Mutex
	active *whisperSession
}

type whisperSession struct {
	lang    string
	sink    Sink
	stopMic func()

	mu  sync.Mutex
	pcm []byte
}

// NewWhisper creates a Whisper backend reading audio from mic.
func NewWhisper(cfg WhisperConfig, mic Microphone, log zerolog.Logger) (*Whisper, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("whisper API key is required")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWhisperTimeout
	}
	return &Whisper{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		timeout: timeout,
		mic:     mic,
		log:     log,
	}, nil
}

// Name implements Recognizer.
func (w *Whisper) Name() string { return "whisper" }

// Start implements Recognizer.
func (w *Whisper) Start(ctx context.Context, lang string, sink Sink) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active != nil {
		return errSessionActive
	}
	sess := &whisperSession{lang: lang, sink: sink}
	stop, err := w.mic.Listen(ctx, func(pcm []byte) {
		sess.mu.Lock()
		sess.pcm = append(sess.pcm, pcm...)
		sess.mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	sess.stopMic = stop
	w.active = sess
	return nil
}

// Stop implements Recognizer. The transcript is delivered asynchronously.
func (w *Whisper) Stop() error {
	w.mu.Lock()
	sess := w.active
	w.active = nil
	w.mu.Unlock()
	if sess == nil {
		return nil
	}
	sess.stopMic()
	go w.transcribe(sess)
	return nil
}

func (w *Whisper) transcribe(sess *whisperSession) {
	sess.mu.Lock()
	samples := encoder.Samples(sess.pcm)
	sess.pcm = nil
	sess.mu.Unlock()

	if len(samples) == 0 {
		sess.sink.Ended(nil)
		return
	}
	audio, err := encoder.EncodeFLAC(samples, w.mic.SampleRate())
	if err != nil {
		sess.sink.Ended(fmt.Errorf("encode audio: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	started := time.Now()
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "speech.flac",
		Reader:   bytes.NewReader(audio),
		Language: PrimaryLanguage(sess.lang),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		sess.sink.Ended(fmt.Errorf("transcribe: %w", err))
		return
	}
	w.log.Debug().
		Int("samples", len(samples)).
		Int("flac_bytes", len(audio)).
		Dur("elapsed", time.Since(started)).
		Msg("transcription done")
	if text := strings.TrimSpace(resp.Text); text != "" {
		sess.sink.Partial(text)
	}
	sess.sink.Ended(nil)
}
