// Package director runs a sequence-building program against the timeline
// and packages the result as a VideoDefinition.
package director

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/stickmotion/internal/effects"
	"github.com/ivlev/stickmotion/internal/media"
	"github.com/ivlev/stickmotion/internal/scene"
	"github.com/ivlev/stickmotion/internal/speech"
	"github.com/ivlev/stickmotion/internal/timeline"
)

// MediaLoader gives access to external video and audio files.
type MediaLoader interface {
	Probe(ctx context.Context, path string) (*media.Info, error)
	Load(ctx context.Context, path string, trimStart, trimEnd time.Duration) (media.Resource, error)
}

// Program declares the content of a video against a Scope.
type Program func(s *Scope) error

// Director assembles programs into videos.
type Director struct {
	Synth  speech.Synthesizer
	Media  MediaLoader
	logger zerolog.Logger
}

func NewDirector(synth speech.Synthesizer, loader MediaLoader, logger zerolog.Logger) *Director {
	return &Director{
		Synth:  synth,
		Media:  loader,
		logger: logger.With().Str("component", "director").Logger(),
	}
}

// Assemble runs program on a fresh timeline. Speech is synthesized in
// program order; any failure aborts assembly and releases opened media.
func (d *Director) Assemble(ctx context.Context, program Program) (*VideoDefinition, error) {
	root := &Scope{
		ctx:      ctx,
		director: d,
		builder:  timeline.New(),
	}
	root.closers = &[]io.Closer{}

	fail := func(err error) (*VideoDefinition, error) {
		v := &VideoDefinition{closers: *root.closers}
		if cerr := v.Close(); cerr != nil {
			d.logger.Warn().Err(cerr).Msg("failed to release media")
		}
		return nil, err
	}

	if err := program(root); err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	resolved := root.builder.Build()
	v := &VideoDefinition{
		Components: make([]Component, 0, len(resolved)),
		closers:    *root.closers,
	}
	for _, r := range resolved {
		switch c := r.Component.(type) {
		case *timeline.SequenceDef:
			v.Components = append(v.Components, &SequenceDefinition{
				From:    r.From,
				To:      r.To,
				Content: c.Content,
				Enter:   c.Enter,
				Exit:    c.Exit,
				Tag:     c.Tag,
			})
		case *timeline.TTSDef:
			v.Components = append(v.Components, &AudioDefinition{
				From:   r.From,
				To:     r.To,
				Kind:   AudioSpeech,
				Text:   c.Text,
				Speech: c.Speech,
			})
		case *timeline.ResourceDef:
			v.Components = append(v.Components, &AudioDefinition{
				From:      r.From,
				To:        r.To,
				Kind:      AudioResource,
				Path:      c.Path,
				TrimStart: c.TrimStart,
			})
		default:
			return fail(fmt.Errorf("unknown timeline component %T", r.Component))
		}
	}

	d.logger.Debug().
		Int("components", len(v.Components)).
		Dur("duration", v.Duration()).
		Msg("video assembled")
	return v, nil
}

// Scope is the view of the timeline a program writes into. Nested scopes
// created by TTS, WithVideo and Subsequence have their own zero-based time.
type Scope struct {
	ctx      context.Context
	director *Director
	builder  *timeline.Builder
	closers  *[]io.Closer
}

func (s *Scope) Context() context.Context { return s.ctx }

// Cursor is the scope-local position AfterPrevious would currently resolve
// from.
func (s *Scope) Cursor() time.Duration { return s.builder.Cursor() }

func (s *Scope) child(b *timeline.Builder) *Scope {
	return &Scope{ctx: s.ctx, director: s.director, builder: b, closers: s.closers}
}

// SequenceOption customises a sequence.
type SequenceOption func(*timeline.SequenceDef)

func WithEnter(t effects.Transition) SequenceOption {
	return func(d *timeline.SequenceDef) { d.Enter = t }
}

func WithExit(t effects.Transition) SequenceOption {
	return func(d *timeline.SequenceDef) { d.Exit = t }
}

func WithTag(tag string) SequenceOption {
	return func(d *timeline.SequenceDef) { d.Tag = tag }
}

// Sequence shows content for the given placement.
func (s *Scope) Sequence(start timeline.Start, end timeline.End, content scene.Content, opts ...SequenceOption) error {
	if content == nil {
		return errors.New("sequence without content")
	}
	def := &timeline.SequenceDef{Content: content}
	for _, opt := range opts {
		opt(def)
	}
	_, err := s.builder.Add(start, end, def)
	return err
}

// TTS synthesizes text, places the audio at start and runs body in a scope
// spanning exactly the speech.
func (s *Scope) TTS(start timeline.Start, text string, body func(*Scope, *speech.SpeechWithTimestamps) error) error {
	if s.director.Synth == nil {
		return errors.New("no speech synthesizer configured")
	}
	if err := s.ctx.Err(); err != nil {
		return err
	}
	sp, err := s.director.Synth.Synthesize(s.ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize %q: %w", abbreviate(text), err)
	}
	if err := sp.Validate(); err != nil {
		return fmt.Errorf("synthesize %q: %w", abbreviate(text), err)
	}
	length := sp.Duration()
	if length <= 0 {
		return fmt.Errorf("synthesize %q: empty speech", abbreviate(text))
	}
	s.director.logger.Debug().Str("text", abbreviate(text)).Dur("length", length).Msg("speech ready")

	from, err := s.builder.AddDetached(start, timeline.For(length), &timeline.TTSDef{Text: text, Speech: sp})
	if err != nil {
		return err
	}
	return s.builder.Subsequence(timeline.StartAt(from), timeline.For(length), func(b *timeline.Builder) error {
		if body == nil {
			return nil
		}
		return body(s.child(b), sp)
	})
}

// SpanFunc picks the in and out points of a media file given its length.
type SpanFunc func(length time.Duration) (in, out time.Duration)

// Whole uses the full media file.
func Whole(length time.Duration) (time.Duration, time.Duration) { return 0, length }

// WithVideo loads the media at path, places its audio track and runs body
// in a scope spanning the chosen range. The resource passed to body is
// trimmed to that range.
func (s *Scope) WithVideo(start timeline.Start, path string, span SpanFunc, body func(*Scope, media.Resource) error) error {
	if s.director.Media == nil {
		return errors.New("no media loader configured")
	}
	info, err := s.director.Media.Probe(s.ctx, path)
	if err != nil {
		return err
	}
	if span == nil {
		span = Whole
	}
	in, out := span(info.Duration)
	if in < 0 || out > info.Duration || out <= in {
		return fmt.Errorf("%w: [%v, %v] of %s (%v)", timeline.ErrInvalidRange, in, out, path, info.Duration)
	}

	res, err := s.director.Media.Load(s.ctx, path, in, out)
	if err != nil {
		return err
	}
	*s.closers = append(*s.closers, res)

	length := out - in
	if info.HasAudio {
		from, err := s.builder.AddDetached(start, timeline.For(length),
			&timeline.ResourceDef{Path: path, TrimStart: in, TrimEnd: out})
		if err != nil {
			return err
		}
		start = timeline.StartAt(from)
	}
	return s.builder.Subsequence(start, timeline.For(length), func(b *timeline.Builder) error {
		if body == nil {
			return nil
		}
		return body(s.child(b), res)
	})
}

// Subsequence runs body in a nested scope placed at start. A fixed end
// bounds everything declared inside.
func (s *Scope) Subsequence(start timeline.Start, end timeline.End, body func(*Scope) error) error {
	return s.builder.Subsequence(start, end, func(b *timeline.Builder) error {
		return body(s.child(b))
	})
}

func abbreviate(text string) string {
	r := []rune(text)
	if len(r) <= 40 {
		return text
	}
	return string(r[:37]) + "..."
}
