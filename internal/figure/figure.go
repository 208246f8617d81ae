package figure

import (
	"errors"
	"fmt"
)

var ErrNameMismatch = errors.New("figure names do not match")

// Figure is a named skeleton placed at (X, Y) in world space. The name is the
// identity used to match figures across keyframes.
type Figure struct {
	Name string  `json:"name" yaml:"name"`
	Root Joint   `json:"root" yaml:"root"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
}

func (f Figure) Clone() Figure {
	c := f
	c.Root = f.Root.Clone()
	return c
}

func (f Figure) Validate() error {
	if f.Name == "" {
		return errors.New("figure name is empty")
	}
	if err := f.Root.Validate(); err != nil {
		return fmt.Errorf("figure %q: %w", f.Name, err)
	}
	return nil
}

// Viewport is the camera applied to a whole frame.
type Viewport struct {
	OffsetX  float64 `json:"offsetX" yaml:"offsetX"`
	OffsetY  float64 `json:"offsetY" yaml:"offsetY"`
	Scale    float64 `json:"scale" yaml:"scale"`
	Rotation float64 `json:"rotation" yaml:"rotation"`
}

func DefaultViewport() Viewport {
	return Viewport{Scale: 1}
}

// Lerp interpolates every component linearly.
func (v Viewport) Lerp(to Viewport, t float64) Viewport {
	return Viewport{
		OffsetX:  v.OffsetX + (to.OffsetX-v.OffsetX)*t,
		OffsetY:  v.OffsetY + (to.OffsetY-v.OffsetY)*t,
		Scale:    v.Scale + (to.Scale-v.Scale)*t,
		Rotation: v.Rotation + (to.Rotation-v.Rotation)*t,
	}
}

// ViewportTransition controls whether the viewport moves toward the next
// keyframe or holds until the keyframe boundary.
type ViewportTransition int

const (
	TransitionNone ViewportTransition = iota
	TransitionLerp
)

func (t ViewportTransition) String() string {
	if t == TransitionLerp {
		return "lerp"
	}
	return "none"
}

func (t ViewportTransition) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ViewportTransition) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "none":
		*t = TransitionNone
	case "lerp":
		*t = TransitionLerp
	default:
		return fmt.Errorf("unknown viewport transition %q", string(b))
	}
	return nil
}

// FigureFrame is a keyframe: every figure on screen plus the camera.
type FigureFrame struct {
	Figures            []Figure           `json:"figures" yaml:"figures"`
	Viewport           Viewport           `json:"viewport" yaml:"viewport"`
	ViewportTransition ViewportTransition `json:"viewportTransition" yaml:"viewportTransition"`
}

func NewFrame(figures ...Figure) FigureFrame {
	return FigureFrame{Figures: figures, Viewport: DefaultViewport()}
}

// Clone deep-copies every figure so edits to the copy never reach the source.
func (f FigureFrame) Clone() FigureFrame {
	c := f
	if f.Figures != nil {
		c.Figures = make([]Figure, len(f.Figures))
		for i, fig := range f.Figures {
			c.Figures[i] = fig.Clone()
		}
	}
	return c
}

// FigureByName returns the index of the named figure or -1.
func (f FigureFrame) FigureByName(name string) int {
	for i, fig := range f.Figures {
		if fig.Name == name {
			return i
		}
	}
	return -1
}

func (f FigureFrame) Validate() error {
	seen := make(map[string]struct{}, len(f.Figures))
	for _, fig := range f.Figures {
		if err := fig.Validate(); err != nil {
			return err
		}
		if _, dup := seen[fig.Name]; dup {
			return fmt.Errorf("duplicate figure name %q", fig.Name)
		}
		seen[fig.Name] = struct{}{}
	}
	return nil
}
