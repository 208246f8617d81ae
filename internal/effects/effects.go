package effects

import (
	"fmt"
	"strings"
	"time"

	"github.com/ivlev/stickmotion/internal/animation"
)

// Kind is the visual treatment of a sequence entering or leaving the frame.
type Kind int

const (
	None Kind = iota
	Fade
	SlideLeft
	SlideUp
	Zoom
)

var kindNames = map[Kind]string{
	None:      "none",
	Fade:      "fade",
	SlideLeft: "slide-left",
	SlideUp:   "slide-up",
	Zoom:      "zoom",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return None, nil
	}
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return None, fmt.Errorf("unknown transition %q", s)
}

// Transition describes how a sequence enters or exits.
type Transition struct {
	Kind     Kind
	Duration time.Duration
	Easing   animation.Easing
}

func (t Transition) active() bool {
	return t.Kind != None && t.Duration > 0
}

func (t Transition) ease(p float64) float64 {
	if t.Easing == nil {
		return animation.EaseInOutCubic(p)
	}
	return t.Easing(p)
}

// State is the transform applied to a sequence layer. Offsets are fractions
// of the frame size.
type State struct {
	Opacity float64
	OffsetX float64
	OffsetY float64
	Scale   float64
}

func Identity() State {
	return State{Opacity: 1, Scale: 1}
}

// Apply computes the layer state at local time within a sequence of the
// given span.
func Apply(enter, exit Transition, local, span time.Duration) State {
	s := Identity()
	if enter.active() && local < enter.Duration {
		p := enter.ease(float64(local) / float64(enter.Duration))
		s = s.with(enter.Kind, p, 1)
	}
	if remaining := span - local; exit.active() && remaining < exit.Duration {
		if remaining < 0 {
			remaining = 0
		}
		p := exit.ease(float64(remaining) / float64(exit.Duration))
		s = s.with(exit.Kind, p, -1)
	}
	return s
}

// with applies a transition at progress p (0 = hidden, 1 = fully in place).
// dir is +1 while entering and -1 while leaving so slides keep moving in the
// same direction.
func (s State) with(k Kind, p float64, dir float64) State {
	switch k {
	case Fade:
		s.Opacity *= p
	case SlideLeft:
		s.OffsetX += dir * (1 - p)
	case SlideUp:
		s.OffsetY += dir * (1 - p)
	case Zoom:
		s.Scale *= 0.5 + 0.5*p
		s.Opacity *= p
	}
	return s
}
