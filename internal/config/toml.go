// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice    PracticeConfig    `toml:"practice"`
	Recognition RecognitionConfig `toml:"recognition"`
	Audio       AudioConfig       `toml:"audio"`
	Log         LogConfig         `toml:"log"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Level *string `toml:"level"`
	Lang  *string `toml:"lang"`
}

// RecognitionConfig selects the speech-to-text backend.
type RecognitionConfig struct {
	Backend *string `toml:"backend"`
	Model   *string `toml:"model"`
	BaseURL *string `toml:"base-url"`
}

// AudioConfig selects the capture device.
type AudioConfig struct {
	Device *string `toml:"device"`
}

// LogConfig maps diagnostics settings.
type LogConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Template returns the commented config file written by "diktor config".
func Template(level, lang, backend string) string {
	return fmt.Sprintf(`# diktor configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# level = %q     # beginner, intermediate or advanced
# lang = %q            # Recognition language tag

[recognition]
# backend = %q          # auto, whisper, google or none
# model = "whisper-1"      # Whisper model name
# base-url = ""            # OpenAI-compatible API base URL

[audio]
# device = ""              # Capture device name or ID (see: diktor devices)

[log]
# level = "info"           # debug, info, warn, error
# format = "console"       # console or json
`, level, lang, backend)
}
