package figure

import "math"

// Segment is a joint resolved to world space.
type Segment struct {
	Figure  string
	JointID string
	Length  float64
	Angle   float64 // absolute, radians
	StartX  float64
	StartY  float64
	Shape   Shape
}

// End returns start + length*(cos, sin).
func (s Segment) End() (float64, float64) {
	return s.StartX + s.Length*math.Cos(s.Angle), s.StartY + s.Length*math.Sin(s.Angle)
}

// Mid returns the midpoint of the segment.
func (s Segment) Mid() (float64, float64) {
	ex, ey := s.End()
	return (s.StartX + ex) / 2, (s.StartY + ey) / 2
}

// SegmentFrame is the compiled, render-ready form of a FigureFrame.
type SegmentFrame struct {
	Segments []Segment
	Viewport Viewport
}

// Segments flattens the figure depth-first, accumulating world angle and
// position from the root outward.
func (f Figure) Segments() []Segment {
	out := make([]Segment, 0, f.Root.Count())
	var visit func(j *Joint, x, y, parentAngle float64)
	visit = func(j *Joint, x, y, parentAngle float64) {
		s := Segment{
			Figure:  f.Name,
			JointID: j.ID,
			Length:  j.Length,
			Angle:   parentAngle + j.Angle,
			StartX:  x,
			StartY:  y,
			Shape:   j.Shape,
		}
		out = append(out, s)
		ex, ey := s.End()
		for i := range j.Children {
			visit(&j.Children[i], ex, ey, s.Angle)
		}
	}
	visit(&f.Root, f.X, f.Y, 0)
	return out
}

// Compile flattens every figure of the frame.
func (f FigureFrame) Compile() SegmentFrame {
	sf := SegmentFrame{Viewport: f.Viewport}
	for _, fig := range f.Figures {
		sf.Segments = append(sf.Segments, fig.Segments()...)
	}
	return sf
}

// CompileAll compiles a dense frame sequence.
func CompileAll(frames []FigureFrame) []SegmentFrame {
	out := make([]SegmentFrame, len(frames))
	for i, f := range frames {
		out[i] = f.Compile()
	}
	return out
}
