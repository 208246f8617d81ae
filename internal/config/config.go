package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Environment variables that override the file.
const (
	EnvElevenLabsKey = "ELEVENLABS_API_KEY"
	EnvFFmpeg        = "STICKMOTION_FFMPEG"
	EnvFFprobe       = "STICKMOTION_FFPROBE"
)

// Config holds all application configuration
type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Animation AnimationConfig `yaml:"animation"`
	Speech    SpeechConfig    `yaml:"speech"`
	Subtitles SubtitleConfig  `yaml:"subtitles"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Preview   PreviewConfig   `yaml:"preview"`

	// Set by the build, not read from files.
	BuildVersion string `yaml:"-"`
}

type OutputConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	FPS        float64 `yaml:"fps"`
	Background string  `yaml:"background"`
	Alpha      bool    `yaml:"alpha"`
	// Quality is CRF for software encoders; hardware encoders scale it.
	Quality   int    `yaml:"quality"`
	ShowStats bool   `yaml:"show_stats"`
	TempDir   string `yaml:"temp_dir"`
}

type AnimationConfig struct {
	KeyframeFPS int `yaml:"keyframe_fps"`
	TargetFPS   int `yaml:"target_fps"`
	// Canvas size figure coordinates are authored in.
	CanvasWidth  float64 `yaml:"canvas_width"`
	CanvasHeight float64 `yaml:"canvas_height"`
	StrokeColor  string  `yaml:"stroke_color"`
	StrokeWidth  float64 `yaml:"stroke_width"`
}

type SpeechConfig struct {
	// Provider is "noop" or "elevenlabs".
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	VoiceID  string `yaml:"voice_id"`
	ModelID  string `yaml:"model_id"`
	// Cache is "none", "file" or "sqlite".
	Cache    string `yaml:"cache"`
	CacheDir string `yaml:"cache_dir"`
	// NoopCharMillis paces placeholder speech.
	NoopCharMillis int `yaml:"noop_char_ms"`
}

type SubtitleConfig struct {
	Enabled     bool    `yaml:"enabled"`
	FontSize    float64 `yaml:"font_size"`
	MaxChars    int     `yaml:"max_chars"`
	MaxSeconds  float64 `yaml:"max_seconds"`
	PauseMillis int     `yaml:"pause_ms"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	// Encoder forces an H.264 encoder; empty detects one.
	Encoder string `yaml:"encoder"`
}

type PreviewConfig struct {
	// Width of sixel frames in pixels; height keeps the aspect ratio.
	Width int     `yaml:"width"`
	FPS   float64 `yaml:"fps"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Width:      1280,
			Height:     720,
			FPS:        24,
			Background: "#ffffff",
			Quality:    23,
		},
		Animation: AnimationConfig{
			KeyframeFPS:  3,
			TargetFPS:    24,
			CanvasWidth:  1280,
			CanvasHeight: 720,
			StrokeColor:  "#000000",
			StrokeWidth:  6,
		},
		Speech: SpeechConfig{
			Provider:       "noop",
			ModelID:        "eleven_multilingual_v2",
			Cache:          "file",
			CacheDir:       filepath.Join(".stickmotion", "tts-cache"),
			NoopCharMillis: 60,
		},
		Subtitles: SubtitleConfig{
			Enabled:     true,
			MaxChars:    42,
			MaxSeconds:  3,
			PauseMillis: 400,
		},
		Preview: PreviewConfig{
			Width: 480,
			FPS:   12,
		},
	}
}

// Load reads configuration: defaults, then the YAML file (path, or the
// first config file found), then .env, then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}

	// A missing .env is normal.
	_ = godotenv.Load()
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvElevenLabsKey); v != "" {
		c.Speech.APIKey = v
	}
	if v := os.Getenv(EnvFFmpeg); v != "" {
		c.FFmpeg.BinaryPath = v
	}
	if v := os.Getenv(EnvFFprobe); v != "" {
		c.FFmpeg.ProbePath = v
	}
}

func findConfigFile() string {
	candidates := []string{
		"./stickmotion.yaml",
		"./stickmotion.yml",
		filepath.Join(os.Getenv("HOME"), ".stickmotion", "config.yaml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate rejects settings the pipeline cannot work with.
func (c *Config) Validate() error {
	o := c.Output
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("output size must be positive, got %dx%d", o.Width, o.Height)
	}
	if !o.Alpha && (o.Width%2 != 0 || o.Height%2 != 0) {
		return fmt.Errorf("output size must be even for yuv420p, got %dx%d", o.Width, o.Height)
	}
	if o.FPS <= 0 {
		return fmt.Errorf("output fps must be positive, got %v", o.FPS)
	}
	a := c.Animation
	if a.KeyframeFPS <= 0 || a.TargetFPS <= 0 {
		return fmt.Errorf("animation fps must be positive, got %d/%d", a.KeyframeFPS, a.TargetFPS)
	}
	if a.TargetFPS%a.KeyframeFPS != 0 {
		return fmt.Errorf("target fps %d is not a multiple of keyframe fps %d", a.TargetFPS, a.KeyframeFPS)
	}
	switch c.Speech.Provider {
	case "noop":
	case "elevenlabs":
		if c.Speech.APIKey == "" {
			return fmt.Errorf("elevenlabs speech needs an API key (%s)", EnvElevenLabsKey)
		}
		if c.Speech.VoiceID == "" {
			return errors.New("elevenlabs speech needs a voice_id")
		}
	default:
		return fmt.Errorf("unknown speech provider %q", c.Speech.Provider)
	}
	switch c.Speech.Cache {
	case "none", "file", "sqlite":
	default:
		return fmt.Errorf("unknown speech cache %q", c.Speech.Cache)
	}
	return nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
