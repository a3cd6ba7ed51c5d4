package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Practice.Level != nil || cfg.Recognition.Backend != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[practice]
level = "advanced"
lang = "ru-RU"

[recognition]
backend = "whisper"
base-url = "http://localhost:8080/v1"

[audio]
device = "USB"

[log]
format = "json"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Practice.Level == nil || *cfg.Practice.Level != "advanced" {
		t.Fatalf("unexpected level %v", cfg.Practice.Level)
	}
	if cfg.Recognition.Backend == nil || *cfg.Recognition.Backend != "whisper" {
		t.Fatalf("unexpected backend %v", cfg.Recognition.Backend)
	}
	if cfg.Recognition.BaseURL == nil || *cfg.Recognition.BaseURL != "http://localhost:8080/v1" {
		t.Fatalf("unexpected base url %v", cfg.Recognition.BaseURL)
	}
	if cfg.Recognition.Model != nil {
		t.Fatalf("expected model to be unset")
	}
	if cfg.Audio.Device == nil || *cfg.Audio.Device != "USB" {
		t.Fatalf("unexpected device %v", cfg.Audio.Device)
	}
	if cfg.Log.Format == nil || *cfg.Log.Format != "json" || cfg.Log.Level != nil {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
}

func TestLoadConfigRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[practice]\nwords = 25\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "practice.words") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestTemplateIsValidTOML(t *testing.T) {
	var cfg FileConfig
	md, err := toml.Decode(Template("Beginner", "ru-RU", "auto"), &cfg)
	if err != nil {
		t.Fatalf("decode template: %v", err)
	}
	if len(md.Keys()) != 4 {
		t.Fatalf("expected only section headers to be active, got %v", md.Keys())
	}
}

func TestPathsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "diktor", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "diktor", "diktor.db") {
		t.Fatalf("unexpected db path %q", got)
	}
	if got := DefaultLogPath(); got != filepath.Join("/state", "diktor", "diktor.log") {
		t.Fatalf("unexpected log path %q", got)
	}
}
