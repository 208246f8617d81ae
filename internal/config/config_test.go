package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvElevenLabsKey, "secret")
	t.Setenv(EnvFFmpeg, "/opt/ffmpeg")

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte("output:\n  width: 640\n  height: 360\nspeech:\n  provider: elevenlabs\n  voice_id: v1\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Width != 640 || cfg.Output.Height != 360 {
		t.Errorf("size = %dx%d", cfg.Output.Width, cfg.Output.Height)
	}
	if cfg.Output.FPS != 24 {
		t.Errorf("unset fps lost its default: %v", cfg.Output.FPS)
	}
	if cfg.Speech.APIKey != "secret" || cfg.FFmpeg.BinaryPath != "/opt/ffmpeg" {
		t.Errorf("env not applied: %+v %+v", cfg.Speech, cfg.FFmpeg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Width != 1280 {
		t.Errorf("width = %d", cfg.Output.Width)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("output: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"odd width", func(c *Config) { c.Output.Width = 641 }},
		{"zero fps", func(c *Config) { c.Output.FPS = 0 }},
		{"fps not multiple", func(c *Config) { c.Animation.TargetFPS = 25 }},
		{"unknown provider", func(c *Config) { c.Speech.Provider = "say" }},
		{"elevenlabs without key", func(c *Config) { c.Speech.Provider = "elevenlabs"; c.Speech.VoiceID = "v" }},
		{"unknown cache", func(c *Config) { c.Speech.Cache = "redis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}

	cfg := Default()
	cfg.Output.Alpha = true
	cfg.Output.Width = 641
	if err := cfg.Validate(); err != nil {
		t.Errorf("odd width with alpha: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Output.Quality = 18
	cfg.Subtitles.Enabled = false
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Output.Quality != 18 || got.Subtitles.Enabled {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()).Output.Width != 1280 {
		t.Error("missing config should fall back to defaults")
	}
	cfg := Default()
	cfg.Output.Width = 320
	if FromContext(WithConfig(context.Background(), cfg)) != cfg {
		t.Error("config not stored in context")
	}
}
