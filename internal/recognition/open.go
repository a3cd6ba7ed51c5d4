package recognition

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	groqWhisperModel = "whisper-large-v3-turbo"
)

// Backend names accepted by Open.
const (
	BackendNone    = "none"
	BackendAuto    = "auto"
	BackendWhisper = "whisper"
	BackendGoogle  = "google"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Model   string
	BaseURL string
}

// Env looks up environment variables; tests replace it.
type Env func(string) string

// Open resolves the configured backend. It returns ErrUnsupported when the
// backend is disabled or nothing usable is configured for "auto".
func Open(ctx context.Context, cfg Config, mic Microphone, env Env, log zerolog.Logger) (Recognizer, error) {
	if env == nil {
		env = os.Getenv
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch backend {
	case "", BackendAuto:
		if wc, ok := whisperConfig(cfg, env); ok {
			return NewWhisper(wc, mic, log)
		}
		if env("GOOGLE_APPLICATION_CREDENTIALS") != "" {
			return NewGoogle(ctx, mic, log)
		}
		return nil, ErrUnsupported
	case BackendNone:
		return nil, ErrUnsupported
	case BackendWhisper:
		wc, ok := whisperConfig(cfg, env)
		if !ok {
			return nil, fmt.Errorf("whisper backend needs OPENAI_API_KEY or GROQ_API_KEY")
		}
		return NewWhisper(wc, mic, log)
	case BackendGoogle:
		return NewGoogle(ctx, mic, log)
	default:
		return nil, fmt.Errorf("unknown recognizer %q (expected auto, none, whisper or google)", cfg.Backend)
	}
}

func whisperConfig(cfg Config, env Env) (WhisperConfig, bool) {
	if key := env("OPENAI_API_KEY"); key != "" {
		return WhisperConfig{APIKey: key, BaseURL: cfg.BaseURL, Model: cfg.Model}, true
	}
	if key := env("GROQ_API_KEY"); key != "" {
		wc := WhisperConfig{APIKey: key, BaseURL: cfg.BaseURL, Model: cfg.Model}
		if wc.BaseURL == "" {
			wc.BaseURL = groqBaseURL
		}
		if wc.Model == "" {
			wc.Model = groqWhisperModel
		}
		return wc, true
	}
	return WhisperConfig{}, false
}
