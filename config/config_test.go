package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Video.Width != 1920 || cfg.Video.Height != 1080 {
		t.Errorf("resolution = %dx%d, want 1920x1080", cfg.Video.Width, cfg.Video.Height)
	}
	if cfg.Video.FPS != 30 {
		t.Errorf("FPS = %d, want 30", cfg.Video.FPS)
	}
	if cfg.RenderTimeout() != 300*time.Second {
		t.Errorf("RenderTimeout = %v, want 300s", cfg.RenderTimeout())
	}
	if cfg.Render.MaxConcurrent != 1 {
		t.Errorf("MaxConcurrent = %d, want 1", cfg.Render.MaxConcurrent)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
video:
  width: 1280
  height: 720
render:
  timeout_sec: 120
audio:
  reconcile: narration
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Video.Width != 1280 || cfg.Video.Height != 720 {
		t.Errorf("resolution = %dx%d, want 1280x720", cfg.Video.Width, cfg.Video.Height)
	}
	if cfg.Video.FPS != 30 {
		t.Errorf("FPS = %d, want default 30", cfg.Video.FPS)
	}
	if cfg.RenderTimeout() != 120*time.Second {
		t.Errorf("RenderTimeout = %v, want 120s", cfg.RenderTimeout())
	}
	if cfg.Audio.Reconcile != "narration" {
		t.Errorf("Reconcile = %q, want narration", cfg.Audio.Reconcile)
	}
	if cfg.Tools.Rasterizer != "magick" {
		t.Errorf("Rasterizer = %q, want default magick", cfg.Tools.Rasterizer)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero fps", "video:\n  fps: 0\n"},
		{"negative width", "video:\n  width: -1\n"},
		{"unknown policy", "audio:\n  reconcile: longest\n"},
		{"zero render timeout", "render:\n  timeout_sec: 0\n"},
		{"negative slot", "render:\n  uniform_slot_sec: -2\n"},
		{"empty palette", "thumbnail:\n  palette: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Errorf("Load(%q) succeeded, want error", tt.body)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "video: [unterminated")); err == nil {
		t.Fatal("expected parse error")
	}
}
