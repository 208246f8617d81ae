package script

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/stickmotion/internal/animation"
	"github.com/ivlev/stickmotion/internal/config"
	"github.com/ivlev/stickmotion/internal/director"
	"github.com/ivlev/stickmotion/internal/effects"
	"github.com/ivlev/stickmotion/internal/media"
	"github.com/ivlev/stickmotion/internal/project"
	"github.com/ivlev/stickmotion/internal/renderer"
	"github.com/ivlev/stickmotion/internal/scene"
	"github.com/ivlev/stickmotion/internal/source"
	"github.com/ivlev/stickmotion/internal/speech"
	"github.com/ivlev/stickmotion/internal/timeline"
)

// Compiler turns scripts into director programs. Slide sources opened while
// building content stay open until Close.
type Compiler struct {
	cfg    *config.Config
	logger zerolog.Logger

	mu      sync.Mutex
	sources map[string]source.Source
}

func NewCompiler(cfg *config.Config, logger zerolog.Logger) *Compiler {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Compiler{
		cfg:     cfg,
		logger:  logger.With().Str("component", "script").Logger(),
		sources: make(map[string]source.Source),
	}
}

// Close releases slide sources.
func (c *Compiler) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for path, src := range c.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
	}
	c.sources = make(map[string]source.Source)
	return errors.Join(errs...)
}

// Program compiles s. Content files are loaded when the program runs.
func (c *Compiler) Program(s *Script) director.Program {
	return func(scope *director.Scope) error {
		return c.run(scope, s.Dir, s.Steps, frame{})
	}
}

// frame is what enclosing steps expose to their children.
type frame struct {
	speech *speech.SpeechWithTimestamps
	clip   media.Resource
}

func (c *Compiler) run(scope *director.Scope, dir string, steps []Step, f frame) error {
	for i, st := range steps {
		if err := c.step(scope, dir, st, f); err != nil {
			label := st.Type
			if st.Tag != "" {
				label += " " + st.Tag
			}
			return fmt.Errorf("step %d (%s): %w", i, label, err)
		}
	}
	return nil
}

func (c *Compiler) step(scope *director.Scope, dir string, st Step, f frame) error {
	start, wordEnd, err := c.placement(st, f)
	if err != nil {
		return err
	}

	switch st.Type {
	case StepSequence:
		end, err := parseEnd(st.End, wordEnd)
		if err != nil {
			return err
		}
		content, err := c.content(dir, st.Content, f)
		if err != nil {
			return err
		}
		opts := []director.SequenceOption{director.WithTag(st.Tag)}
		if st.Enter != nil {
			t, err := transition(st.Enter)
			if err != nil {
				return err
			}
			opts = append(opts, director.WithEnter(t))
		}
		if st.Exit != nil {
			t, err := transition(st.Exit)
			if err != nil {
				return err
			}
			opts = append(opts, director.WithExit(t))
		}
		return scope.Sequence(start, end, content, opts...)

	case StepTTS:
		return scope.TTS(start, st.Text, func(inner *director.Scope, sp *speech.SpeechWithTimestamps) error {
			return c.run(inner, dir, st.Steps, frame{speech: sp, clip: f.clip})
		})

	case StepVideo:
		span := director.Whole
		if st.In > 0 || st.Out > 0 {
			in, out := seconds(st.In), seconds(st.Out)
			span = func(length time.Duration) (time.Duration, time.Duration) {
				if out == 0 || out > length {
					out = length
				}
				return in, out
			}
		}
		return scope.WithVideo(start, c.resolve(dir, st.Path), span, func(inner *director.Scope, res media.Resource) error {
			child := frame{speech: f.speech, clip: res}
			if len(st.Steps) == 0 {
				return inner.Sequence(timeline.AfterPrevious(), timeline.UntilEnd(),
					&renderer.VideoContent{Res: res}, director.WithTag(st.Tag))
			}
			return c.run(inner, dir, st.Steps, child)
		})

	case StepGroup:
		end, err := parseEnd(st.End, wordEnd)
		if err != nil {
			return err
		}
		return scope.Subsequence(start, end, func(inner *director.Scope) error {
			return c.run(inner, dir, st.Steps, f)
		})
	}
	return fmt.Errorf("unknown step type %q", st.Type)
}

// placement resolves the start of a step. Steps placed on words also get a
// default end at the last of those words.
func (c *Compiler) placement(st Step, f frame) (timeline.Start, *timeline.End, error) {
	if st.On == "" {
		start, err := parseStart(st.Start)
		return start, nil, err
	}
	if f.speech == nil {
		return timeline.Start{}, nil, errors.New("'on' used outside of speech")
	}
	from, to, err := f.speech.RangeOf(st.On)
	if err != nil {
		return timeline.Start{}, nil, fmt.Errorf("on %q: %w", st.On, err)
	}
	end := timeline.EndAt(to)
	return timeline.StartAt(from), &end, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c *Compiler) resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}

func transition(t *Transition) (effects.Transition, error) {
	kind, err := effects.ParseKind(t.Type)
	if err != nil {
		return effects.Transition{}, err
	}
	if t.Duration < 0 {
		return effects.Transition{}, fmt.Errorf("negative transition duration %v", t.Duration)
	}
	return effects.Transition{
		Kind:     kind,
		Duration: seconds(t.Duration),
		Easing:   animation.EasingByName(t.Easing),
	}, nil
}

func (c *Compiler) content(dir string, ct *Content, f frame) (scene.Content, error) {
	switch ct.Type {
	case ContentAnimation:
		return c.animation(c.resolve(dir, ct.Path), ct.Loop)

	case ContentImage:
		return renderer.LoadImageContent(c.resolve(dir, ct.Path), ct.Camera...)

	case ContentPDF:
		src, err := c.source(c.resolve(dir, ct.Path))
		if err != nil {
			return nil, err
		}
		if ct.Page < 0 || ct.Page >= src.PageCount() {
			return nil, fmt.Errorf("%w: page %d of %s", source.ErrPageOutOfRange, ct.Page, ct.Path)
		}
		return renderer.NewPageContent(src, ct.Page, ct.DPI, ct.Camera...), nil

	case ContentQR:
		if ct.Text == "" {
			return nil, errors.New("qr content without text")
		}
		return renderer.NewQRContent(ct.Text), nil

	case ContentText:
		var fg color.Color
		if ct.Color != "" {
			col, err := renderer.ParseColor(ct.Color)
			if err != nil {
				return nil, err
			}
			fg = col
		}
		return renderer.NewTextContent(ct.Text, ct.Size, fg), nil

	case ContentFill:
		col, err := renderer.ParseColor(ct.Color)
		if err != nil {
			return nil, err
		}
		return renderer.FillContent{Color: col}, nil

	case ContentClip:
		if f.clip == nil {
			return nil, errors.New("clip content outside of a video step")
		}
		return &renderer.VideoContent{Res: f.clip}, nil
	}
	return nil, fmt.Errorf("unknown content type %q", ct.Type)
}

func (c *Compiler) animation(path string, loop bool) (scene.Content, error) {
	p, err := project.Load(path)
	if err != nil {
		return nil, err
	}
	a := c.cfg.Animation
	kfps := p.KeyframeFPS
	if kfps <= 0 {
		kfps = a.KeyframeFPS
	}
	fc, err := renderer.NewFigureContent(p.Keyframes, kfps, a.TargetFPS)
	if err != nil {
		return nil, fmt.Errorf("animation %s: %w", path, err)
	}
	fc.Loop = loop
	if a.CanvasWidth > 0 && a.CanvasHeight > 0 {
		fc.Width, fc.Height = a.CanvasWidth, a.CanvasHeight
	}
	if a.StrokeWidth > 0 {
		fc.StrokeWidth = a.StrokeWidth
	}
	if a.StrokeColor != "" {
		col, err := renderer.ParseColor(a.StrokeColor)
		if err != nil {
			return nil, err
		}
		fc.Stroke = col
	}
	c.logger.Debug().Str("project", p.Name).Int("frames", len(fc.Frames)).Msg("animation loaded")
	return fc, nil
}

func (c *Compiler) source(path string) (source.Source, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if src, ok := c.sources[path]; ok {
		return src, nil
	}
	src, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	c.sources[path] = src
	return src, nil
}
