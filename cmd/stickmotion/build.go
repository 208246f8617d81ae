package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/stickmotion/internal/config"
	"github.com/ivlev/stickmotion/internal/director"
	"github.com/ivlev/stickmotion/internal/media"
	"github.com/ivlev/stickmotion/internal/renderer"
	"github.com/ivlev/stickmotion/internal/script"
	"github.com/ivlev/stickmotion/internal/speech"
	"github.com/ivlev/stickmotion/internal/system"
)

// session holds everything assembled from one script. Close releases media,
// slide sources and the speech cache.
type session struct {
	cfg     *config.Config
	ffmpeg  string
	video   *director.VideoDefinition
	closers []io.Closer
}

func (s *session) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// resolveScript returns the script argument or the newest script in the
// working directory.
func resolveScript(args []string, logger zerolog.Logger) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	path, err := system.FindLatestScript(".")
	if err != nil {
		return "", fmt.Errorf("no script given: %w", err)
	}
	logger.Info().Str("script", path).Msg("using newest script")
	return path, nil
}

// newSynthesizer builds the configured provider, wrapped in a cache unless
// caching is off.
func newSynthesizer(cfg *config.Config, logger zerolog.Logger) (speech.Synthesizer, io.Closer, error) {
	var (
		synth     speech.Synthesizer
		namespace string
	)
	switch cfg.Speech.Provider {
	case "elevenlabs":
		synth = speech.NewElevenLabsSynthesizer(cfg.Speech.APIKey, cfg.Speech.VoiceID, cfg.Speech.ModelID)
		namespace = "elevenlabs/" + cfg.Speech.VoiceID + "/" + cfg.Speech.ModelID
	default:
		perChar := time.Duration(cfg.Speech.NoopCharMillis) * time.Millisecond
		synth = speech.NewNoopSynthesizer(perChar)
		namespace = fmt.Sprintf("noop/%d", cfg.Speech.NoopCharMillis)
	}

	switch cfg.Speech.Cache {
	case "file":
		return speech.NewCachedSynthesizer(synth, &speech.FileStore{Dir: cfg.Speech.CacheDir}, namespace, logger), nil, nil
	case "sqlite":
		store, err := speech.OpenSQLiteStore(filepath.Join(cfg.Speech.CacheDir, "tts.db"))
		if err != nil {
			return nil, nil, err
		}
		return speech.NewCachedSynthesizer(synth, store, namespace, logger), store, nil
	}
	return synth, nil, nil
}

// assemble reads the script and builds its video definition.
func assemble(ctx context.Context, cfg *config.Config, path string, logger zerolog.Logger) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	sc, err := script.ReadScript(path)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	s.ffmpeg, err = system.FindTool(cfg.FFmpeg.BinaryPath, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobe, err := system.FindTool(cfg.FFmpeg.ProbePath, "ffprobe")
	if err != nil {
		return nil, err
	}
	loader, err := media.NewLoader(logger, s.ffmpeg, ffprobe, cfg.Output.FPS)
	if err != nil {
		return nil, err
	}

	synth, cache, err := newSynthesizer(cfg, logger)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		s.closers = append(s.closers, cache)
	}

	compiler := script.NewCompiler(cfg, logger)
	s.closers = append(s.closers, compiler)

	d := director.NewDirector(synth, loader, logger)
	s.video, err = d.Assemble(ctx, compiler.Program(sc))
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, s.video)

	logger.Info().
		Str("script", path).
		Str("title", sc.Title).
		Int("components", len(s.video.Components)).
		Dur("duration", s.video.Duration()).
		Msg("assembled video")

	ok = true
	return s, nil
}

// compositor renders the session at width x height.
func (s *session) compositor(width, height int, logger zerolog.Logger) (*renderer.Compositor, error) {
	bg, err := renderer.ParseColor(s.cfg.Output.Background)
	if err != nil {
		return nil, err
	}
	opts := renderer.Options{
		Width:      width,
		Height:     height,
		Background: bg,
	}
	if sub := s.cfg.Subtitles; sub.Enabled {
		opts.Subtitles = &speech.SubtitleOptions{
			MaxDuration: time.Duration(sub.MaxSeconds * float64(time.Second)),
			MaxChars:    sub.MaxChars,
			PauseGap:    time.Duration(sub.PauseMillis) * time.Millisecond,
		}
		opts.FontSize = sub.FontSize * float64(height) / float64(s.cfg.Output.Height)
	}
	return renderer.NewCompositor(s.video, opts, logger)
}
