package timeline

import (
	"fmt"
	"time"

	"github.com/ivlev/stickmotion/internal/effects"
	"github.com/ivlev/stickmotion/internal/scene"
	"github.com/ivlev/stickmotion/internal/speech"
)

// Component is anything placed on the timeline: a *SequenceDef, a *TTSDef or
// a *ResourceDef.
type Component interface {
	component()
}

// SequenceDef is visual content shown for its resolved range.
type SequenceDef struct {
	Content scene.Content
	Enter   effects.Transition
	Exit    effects.Transition
	Tag     string
}

// TTSDef is synthesized speech played from its resolved start.
type TTSDef struct {
	Text   string
	Speech *speech.SpeechWithTimestamps
}

// ResourceDef is the audio track of an external media file between the
// TrimStart and TrimEnd points.
type ResourceDef struct {
	Path      string
	TrimStart time.Duration
	TrimEnd   time.Duration
}

func (*SequenceDef) component() {}
func (*TTSDef) component()      {}
func (*ResourceDef) component() {}

// Resolved is a component with its final absolute range.
type Resolved struct {
	Component Component
	From      time.Duration
	To        time.Duration
}

func (r Resolved) Duration() time.Duration {
	return r.To - r.From
}

func (r Resolved) String() string {
	return fmt.Sprintf("%T[%v, %v]", r.Component, r.From, r.To)
}
