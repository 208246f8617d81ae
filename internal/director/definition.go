package director

import (
	"errors"
	"io"
	"time"

	"github.com/ivlev/stickmotion/internal/effects"
	"github.com/ivlev/stickmotion/internal/scene"
	"github.com/ivlev/stickmotion/internal/speech"
)

// Component is one entry of a finished video: a *SequenceDefinition or an
// *AudioDefinition.
type Component interface {
	Range() (from, to time.Duration)
}

// SequenceDefinition is visual content with its absolute range.
type SequenceDefinition struct {
	From    time.Duration
	To      time.Duration
	Content scene.Content
	Enter   effects.Transition
	Exit    effects.Transition
	Tag     string
}

func (s *SequenceDefinition) Range() (time.Duration, time.Duration) { return s.From, s.To }

// Span is the resolved length of the sequence.
func (s *SequenceDefinition) Span() time.Duration { return s.To - s.From }

// ActiveAt reports whether the sequence is visible at t. The end is
// exclusive.
func (s *SequenceDefinition) ActiveAt(t time.Duration) bool {
	return t >= s.From && t < s.To
}

type AudioKind int

const (
	// AudioSpeech is synthesized speech held in memory.
	AudioSpeech AudioKind = iota
	// AudioResource is the audio track of an external file.
	AudioResource
)

// AudioDefinition is an audio track with its absolute range.
type AudioDefinition struct {
	From time.Duration
	To   time.Duration
	Kind AudioKind

	// Speech fields.
	Text   string
	Speech *speech.SpeechWithTimestamps

	// Resource fields.
	Path      string
	TrimStart time.Duration
}

func (a *AudioDefinition) Range() (time.Duration, time.Duration) { return a.From, a.To }

// VideoDefinition is the assembled, fully timed video. It must not be
// modified after assembly.
type VideoDefinition struct {
	Components []Component
	closers    []io.Closer
}

func (v *VideoDefinition) SequenceDefinitions() []*SequenceDefinition {
	var out []*SequenceDefinition
	for _, c := range v.Components {
		if s, ok := c.(*SequenceDefinition); ok {
			out = append(out, s)
		}
	}
	return out
}

func (v *VideoDefinition) AudioDefinitions() []*AudioDefinition {
	var out []*AudioDefinition
	for _, c := range v.Components {
		if a, ok := c.(*AudioDefinition); ok {
			out = append(out, a)
		}
	}
	return out
}

// Duration is the latest end over all sequences.
func (v *VideoDefinition) Duration() time.Duration {
	var d time.Duration
	for _, s := range v.SequenceDefinitions() {
		if s.To > d {
			d = s.To
		}
	}
	return d
}

// FrameCount is the number of frames needed to cover Duration at fps.
func (v *VideoDefinition) FrameCount(fps float64) int {
	if fps <= 0 {
		return 0
	}
	n := v.Duration().Seconds() * fps
	count := int(n)
	if float64(count) < n-1e-9 {
		count++
	}
	return count
}

// Close releases media opened during assembly.
func (v *VideoDefinition) Close() error {
	var errs []error
	for _, c := range v.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	v.closers = nil
	return errors.Join(errs...)
}
