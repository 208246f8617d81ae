// Package engine exports an assembled video definition: it renders every
// frame in order and streams it to the encoder together with the audio.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/ivlev/stickmotion/internal/director"
	"github.com/ivlev/stickmotion/internal/scene"
	"github.com/ivlev/stickmotion/internal/system"
	"github.com/ivlev/stickmotion/internal/video"
)

// ErrCanceled marks an export stopped through its context. The context error
// is wrapped alongside it.
var ErrCanceled = errors.New("export canceled")

// Renderer produces composed BGRA frames.
type Renderer interface {
	Size() (width, height int)
	RenderFrame(ctx context.Context, fc scene.FrameContext) (*scene.Bitmap, error)
}

// Encoder starts the external encoder for one export.
type Encoder interface {
	Start(ctx context.Context, p video.Params) (video.Stream, error)
}

type Options struct {
	Output  string
	FPS     float64
	Alpha   bool
	Quality int
	Encoder system.Encoder
	// TempDir is where speech audio is written; empty uses the OS default.
	TempDir string
	// Progress receives a progress bar when set.
	Progress io.Writer
	// Stats collects a performance report.
	Stats bool
}

type Result struct {
	Output  string
	Frames  int
	Length  time.Duration
	Elapsed time.Duration
	Stats   *Stats
}

type Exporter struct {
	renderer Renderer
	encoder  Encoder
	logger   zerolog.Logger
}

func NewExporter(r Renderer, enc Encoder, logger zerolog.Logger) *Exporter {
	return &Exporter{
		renderer: r,
		encoder:  enc,
		logger:   logger.With().Str("component", "export").Logger(),
	}
}

// Run renders frames 0..N-1 of v at opts.FPS and encodes them to
// opts.Output. Audio is written to temporary files first; they are removed
// whatever the outcome.
func (e *Exporter) Run(ctx context.Context, v *director.VideoDefinition, opts Options) (*Result, error) {
	start := time.Now()
	w, h := e.renderer.Size()
	params := video.Params{
		Width:    w,
		Height:   h,
		FPS:      opts.FPS,
		Alpha:    opts.Alpha,
		Output:   opts.Output,
		Encoder:  opts.Encoder,
		Quality:  opts.Quality,
		Duration: v.Duration(),
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	total := v.FrameCount(opts.FPS)
	if total == 0 {
		return nil, errors.New("video has no frames")
	}

	tmpDir, err := os.MkdirTemp(opts.TempDir, "stickmotion_")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn().Err(err).Str("dir", tmpDir).Msg("remove temp audio")
		}
	}()

	// A bounded subsequence can clamp audio to nothing; ffmpeg rejects a
	// zero duration trim, so such audio is not heard and not encoded.
	var audible []*director.AudioDefinition
	for _, a := range v.AudioDefinitions() {
		if a.To <= a.From {
			e.logger.Debug().Dur("at", a.From).Str("text", a.Text).Str("path", a.Path).Msg("skipping empty audio")
			continue
		}
		audible = append(audible, a)
	}

	params.Audio, err = materializeAudio(ctx, audible, tmpDir)
	if err != nil {
		if ctx.Err() != nil {
			return nil, canceled(ctx)
		}
		return nil, err
	}

	var perf *sampler
	if opts.Stats {
		perf = newSampler()
	}

	e.logger.Info().
		Str("output", opts.Output).
		Int("frames", total).
		Int("audio", len(params.Audio)).
		Str("size", fmt.Sprintf("%dx%d", w, h)).
		Msg("export started")

	stream, err := e.encoder.Start(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("start encoder: %w", err)
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("Encoding"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	if err := e.writeFrames(ctx, stream, params, total, bar); err != nil {
		var we *writeError
		if !errors.As(err, &we) {
			stream.Abort()
			return nil, err
		}
		// A failed write usually means the encoder already exited; its exit
		// status explains why.
		var exitErr *video.ExitError
		if ferr := stream.Finish(); errors.As(ferr, &exitErr) {
			return nil, fmt.Errorf("encode %s: %w (%v)", opts.Output, exitErr, we)
		}
		return nil, err
	}
	if err := stream.Finish(); err != nil {
		if ctx.Err() != nil {
			return nil, canceled(ctx)
		}
		return nil, fmt.Errorf("encode %s: %w", opts.Output, err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	res := &Result{
		Output:  opts.Output,
		Frames:  total,
		Length:  v.Duration(),
		Elapsed: time.Since(start),
	}
	if perf != nil {
		res.Stats = perf.finish(total, res.Elapsed)
	}
	e.logger.Info().Dur("elapsed", res.Elapsed).Str("output", opts.Output).Msg("export finished")
	return res, nil
}

// writeFrames streams frames in index order. Cancellation is checked before
// each frame is rendered.
func (e *Exporter) writeFrames(ctx context.Context, w io.Writer, p video.Params, total int, bar *progressbar.ProgressBar) error {
	var rgb []byte
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			return canceled(ctx)
		}
		bmp, err := e.renderer.RenderFrame(ctx, scene.At(i, p.FPS))
		if err != nil {
			if ctx.Err() != nil {
				return canceled(ctx)
			}
			return fmt.Errorf("render frame %d: %w", i, err)
		}
		if bmp.Width != p.Width || bmp.Height != p.Height {
			return fmt.Errorf("frame %d is %dx%d, want %dx%d", i, bmp.Width, bmp.Height, p.Width, p.Height)
		}

		data := bmp.Pix
		if !p.Alpha {
			rgb = bmp.RGB(rgb)
			data = rgb
		}
		if _, err := w.Write(data); err != nil {
			if ctx.Err() != nil {
				return canceled(ctx)
			}
			return &writeError{frame: i, err: err}
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return nil
}

// writeError is a failed write of a frame to the encoder.
type writeError struct {
	frame int
	err   error
}

func (e *writeError) Error() string { return fmt.Sprintf("write frame %d: %v", e.frame, e.err) }

func (e *writeError) Unwrap() error { return e.err }

func canceled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
}
