package animation

import (
	"fmt"
	"math"

	"github.com/ivlev/stickmotion/internal/figure"
)

// LerpAngle interpolates along the shortest arc: the delta is normalised into
// [-π, π] before scaling, so 350° -> 10° moves forward by 20° instead of
// spinning back through 340°.
func LerpAngle(from, to, t float64) float64 {
	return from + shortestDelta(from, to)*t
}

func shortestDelta(from, to float64) float64 {
	d := math.Mod(to-from, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// LerpJoint blends angles of joints matched by id. Length and shape are
// structural and taken from `from`; a child without a counterpart in `to` is
// copied unchanged.
func LerpJoint(from, to figure.Joint, t float64) figure.Joint {
	out := from
	out.Angle = LerpAngle(from.Angle, to.Angle, t)
	if len(from.Children) == 0 {
		out.Children = nil
		return out
	}
	out.Children = make([]figure.Joint, len(from.Children))
	for i, child := range from.Children {
		if j := to.ChildByID(child.ID); j >= 0 {
			out.Children[i] = LerpJoint(child, to.Children[j], t)
		} else {
			out.Children[i] = child.Clone()
		}
	}
	return out
}

// LerpFigure requires both figures to carry the same name.
func LerpFigure(from, to figure.Figure, t float64) (figure.Figure, error) {
	if from.Name != to.Name {
		return figure.Figure{}, fmt.Errorf("%w: %q vs %q", figure.ErrNameMismatch, from.Name, to.Name)
	}
	return figure.Figure{
		Name: from.Name,
		Root: LerpJoint(from.Root, to.Root, t),
		X:    lerp(from.X, to.X, t),
		Y:    lerp(from.Y, to.Y, t),
	}, nil
}

// LerpFrame blends two keyframes. Figures are matched by name; a figure that
// exists on one side only is shown unchanged while t < 0.5 (source-only) or
// from t >= 0.5 (target-only), a hard cut at the midpoint.
func LerpFrame(from, to figure.FigureFrame, t float64) (figure.FigureFrame, error) {
	out := figure.FigureFrame{
		Viewport:           from.Viewport,
		ViewportTransition: from.ViewportTransition,
	}
	if from.ViewportTransition == figure.TransitionLerp {
		out.Viewport = from.Viewport.Lerp(to.Viewport, t)
	}

	for _, f := range from.Figures {
		if i := to.FigureByName(f.Name); i >= 0 {
			blended, err := LerpFigure(f, to.Figures[i], t)
			if err != nil {
				return figure.FigureFrame{}, err
			}
			out.Figures = append(out.Figures, blended)
		} else if t < 0.5 {
			out.Figures = append(out.Figures, f.Clone())
		}
	}
	if t >= 0.5 {
		for _, f := range to.Figures {
			if from.FigureByName(f.Name) < 0 {
				out.Figures = append(out.Figures, f.Clone())
			}
		}
	}
	return out, nil
}

// ExpandFrames produces (N-1)*(targetFps/keyframeFps) interpolated frames
// followed by the last keyframe. Every returned frame is an independent copy.
func ExpandFrames(keyframes []figure.FigureFrame, keyframeFps, targetFps int) ([]figure.FigureFrame, error) {
	if keyframeFps <= 0 || targetFps <= 0 {
		return nil, fmt.Errorf("fps must be positive: keyframe=%d target=%d", keyframeFps, targetFps)
	}
	steps := targetFps / keyframeFps
	if steps < 1 {
		return nil, fmt.Errorf("target fps %d is lower than keyframe fps %d", targetFps, keyframeFps)
	}

	switch len(keyframes) {
	case 0:
		return []figure.FigureFrame{}, nil
	case 1:
		return []figure.FigureFrame{keyframes[0].Clone()}, nil
	}

	out := make([]figure.FigureFrame, 0, (len(keyframes)-1)*steps+1)
	for i := 0; i < len(keyframes)-1; i++ {
		for s := 0; s < steps; s++ {
			t := float64(s) / float64(steps)
			f, err := LerpFrame(keyframes[i], keyframes[i+1], t)
			if err != nil {
				return nil, fmt.Errorf("keyframe %d: %w", i, err)
			}
			out = append(out, f)
		}
	}
	out = append(out, keyframes[len(keyframes)-1].Clone())
	return out, nil
}

// FrameIndex maps a time offset to an index into a dense frame sequence of
// length n played at fps. Out-of-range times clamp, or wrap when loop is set.
func FrameIndex(n int, fps float64, seconds float64, loop bool) int {
	if n <= 0 {
		return -1
	}
	idx := int(math.Floor(seconds*fps + 1e-6))
	if loop {
		idx %= n
		if idx < 0 {
			idx += n
		}
		return idx
	}
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
