package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maastricht-university/mediagram/config"
)

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CONFIG_ENV", "nonexistent-env")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, resolved, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != "" {
		t.Fatalf("expected no config file, got %q", resolved)
	}
	if cfg.Eventogram.SampleRate != 32000 || cfg.Eventogram.HopSize != 320 {
		t.Fatalf("unexpected eventogram defaults: %+v", cfg.Eventogram)
	}
	if cfg.Emotions.MinSegmentMs != 500 {
		t.Fatalf("expected 500ms minimum segment, got %d", cfg.Emotions.MinSegmentMs)
	}
	if !strings.HasSuffix(cfg.Paths.Downloads, "Downloads") || !filepath.IsAbs(cfg.Paths.Downloads) {
		t.Fatalf("expected expanded downloads dir, got %q", cfg.Paths.Downloads)
	}
}

func TestLoadCustomPathAndEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
pipeline:
  log_level: debug
eventogram:
  crf: 30
  top_k: 5
services:
  emotion:
    url: http://from-file:1
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MEDIAGRAM_SERVICES_EMOTION_URL", "http://from-env:2")
	t.Setenv("HF_TOKEN", "hf_secret")

	cfg, resolved, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved %q, got %q", path, resolved)
	}
	if cfg.Pipeline.LogLvl != "debug" {
		t.Fatalf("expected debug log level, got %q", cfg.Pipeline.LogLvl)
	}
	if cfg.Eventogram.CRF != 30 || cfg.Eventogram.TopK != 5 {
		t.Fatalf("file values not applied: %+v", cfg.Eventogram)
	}
	if cfg.Eventogram.HopSize != 320 {
		t.Fatalf("defaults lost when merging file: hop=%d", cfg.Eventogram.HopSize)
	}
	if cfg.Services.Emotion.URL != "http://from-env:2" {
		t.Fatalf("expected env override, got %q", cfg.Services.Emotion.URL)
	}
	if cfg.WhisperX.HFToken != "hf_secret" {
		t.Fatalf("expected HF_TOKEN fallback, got %q", cfg.WhisperX.HFToken)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	if _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Root)
	}{
		{"translucency", func(c *config.Root) { c.Eventogram.Translucency = 1.5 }},
		{"overlay size", func(c *config.Root) { c.Eventogram.OverlaySize = 0 }},
		{"crf", func(c *config.Root) { c.Eventogram.CRF = 52 }},
		{"threshold", func(c *config.Root) { c.Eventogram.Threshold = -0.1 }},
		{"hop", func(c *config.Root) { c.Eventogram.HopSize = 0 }},
		{"device", func(c *config.Root) { c.WhisperX.Device = "tpu" }},
		{"speakers", func(c *config.Root) { c.WhisperX.MinSpeakers = 4; c.WhisperX.MaxSpeakers = 2 }},
		{"window", func(c *config.Root) { c.Emotions.OverlapSeconds = c.Emotions.WindowSeconds }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestServiceTimeoutFallsBackToDefault(t *testing.T) {
	cfg := config.Default()
	cfg.Services.TimeoutSeconds = 0
	if got := cfg.ServiceTimeout(); got != config.DurSeconds(600) {
		t.Fatalf("unexpected timeout %v", got)
	}
}
