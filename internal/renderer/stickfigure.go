package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/ivlev/stickmotion/internal/animation"
	"github.com/ivlev/stickmotion/internal/figure"
	"github.com/ivlev/stickmotion/internal/scene"
)

// FigureContent plays a dense frame sequence of stick figures. Figure
// coordinates are pixels of a Width x Height canvas, scaled to the layer.
type FigureContent struct {
	Frames []figure.FigureFrame
	FPS    float64
	Loop   bool

	Width       float64
	Height      float64
	Stroke      color.Color
	StrokeWidth float64
}

// NewFigureContent expands keyframes authored at keyframeFps into frames at
// fps.
func NewFigureContent(keyframes []figure.FigureFrame, keyframeFps, fps int) (*FigureContent, error) {
	frames, err := animation.ExpandFrames(keyframes, keyframeFps, fps)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("animation has no keyframes")
	}
	return &FigureContent{
		Frames:      frames,
		FPS:         float64(fps),
		Width:       1280,
		Height:      720,
		Stroke:      color.Black,
		StrokeWidth: 6,
	}, nil
}

func (c *FigureContent) Draw(dst draw.Image, dc scene.DrawContext) error {
	idx := animation.FrameIndex(len(c.Frames), c.FPS, dc.Local.Seconds(), c.Loop)
	if idx < 0 {
		return nil
	}
	frame := c.Frames[idx].Compile()
	DrawSegments(dst, dc.Bounds, frame, c.Width, c.Height, c.Stroke, c.StrokeWidth)
	return nil
}

// DrawSegments rasterises a compiled frame into bounds. The viewport pans by
// its offset, then rotates and scales about the canvas center.
func DrawSegments(dst draw.Image, bounds image.Rectangle, frame figure.SegmentFrame, canvasW, canvasH float64, stroke color.Color, width float64) {
	if canvasW <= 0 || canvasH <= 0 || bounds.Empty() {
		return
	}
	t := newTransform(frame.Viewport, canvasW, canvasH, bounds)
	r := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	w := width * t.unit

	for _, s := range frame.Segments {
		x0, y0 := t.apply(s.StartX, s.StartY)
		ex, ey := s.End()
		x1, y1 := t.apply(ex, ey)
		length := s.Length * t.unit
		angle := s.Angle + t.rotation
		mx, my := (x0+x1)/2, (y0+y1)/2

		switch s.Shape.Kind {
		case figure.ShapeLine:
			strokeLine(r, x0, y0, x1, y1, w)
		case figure.ShapeCircle:
			ring(r, mx, my, length/2, length/2, angle, w)
		case figure.ShapeFilledCircle:
			fill(r, ellipse(mx, my, length/2, length/2, angle))
		case figure.ShapeRectangle:
			half := length / 4
			nx, ny := -math.Sin(angle)*half, math.Cos(angle)*half
			outline(r, []pt{{x0 + nx, y0 + ny}, {x1 + nx, y1 + ny}, {x1 - nx, y1 - ny}, {x0 - nx, y0 - ny}}, w)
		case figure.ShapeEllipse:
			ratio := s.Shape.WidthRatio
			if ratio <= 0 {
				ratio = 0.5
			}
			ring(r, mx, my, length/2, length/2*ratio, angle, w)
		case figure.ShapeArc:
			strokeArc(r, mx, my, length/2, angle+math.Pi, s.Shape.SweepAngle, w)
		}
	}
	r.Draw(dst, bounds, image.NewUniform(stroke), image.Point{})
}

type transform struct {
	v        figure.Viewport
	cx, cy   float64
	unit     float64 // canvas pixel to layer pixel, including viewport scale
	sx, sy   float64
	sin, cos float64
	rotation float64
	layerCX  float64
	layerCY  float64
}

func newTransform(v figure.Viewport, canvasW, canvasH float64, bounds image.Rectangle) transform {
	scale := v.Scale
	if scale == 0 {
		scale = 1
	}
	sx := float64(bounds.Dx()) / canvasW
	sy := float64(bounds.Dy()) / canvasH
	return transform{
		v:        v,
		cx:       canvasW / 2,
		cy:       canvasH / 2,
		unit:     math.Min(sx, sy) * scale,
		sx:       sx * scale,
		sy:       sy * scale,
		sin:      math.Sin(v.Rotation),
		cos:      math.Cos(v.Rotation),
		rotation: v.Rotation,
		layerCX:  float64(bounds.Dx()) / 2,
		layerCY:  float64(bounds.Dy()) / 2,
	}
}

// apply maps canvas coordinates to rasterizer coordinates.
func (t transform) apply(x, y float64) (float64, float64) {
	x = x - t.v.OffsetX - t.cx
	y = y - t.v.OffsetY - t.cy
	rx := x*t.cos - y*t.sin
	ry := x*t.sin + y*t.cos
	return t.layerCX + rx*t.sx, t.layerCY + ry*t.sy
}

type pt struct{ x, y float64 }

func signedArea(p []pt) float64 {
	a := 0.0
	for i := range p {
		j := (i + 1) % len(p)
		a += p[i].x*p[j].y - p[j].x*p[i].y
	}
	return a / 2
}

// path adds a closed polygon with the requested orientation. Coverage of
// overlapping polygons adds up, so holes use the opposite orientation.
func path(r *vector.Rasterizer, p []pt, positive bool) {
	if len(p) < 3 {
		return
	}
	if (signedArea(p) >= 0) != positive {
		for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
			p[i], p[j] = p[j], p[i]
		}
	}
	r.MoveTo(float32(p[0].x), float32(p[0].y))
	for _, q := range p[1:] {
		r.LineTo(float32(q.x), float32(q.y))
	}
	r.ClosePath()
}

func fill(r *vector.Rasterizer, p []pt) { path(r, p, true) }

func ellipse(cx, cy, rx, ry, angle float64) []pt {
	n := 12 + int(math.Max(rx, ry)/2)
	if n > 96 {
		n = 96
	}
	sin, cos := math.Sin(angle), math.Cos(angle)
	out := make([]pt, n)
	for i := range out {
		a := 2 * math.Pi * float64(i) / float64(n)
		x, y := rx*math.Cos(a), ry*math.Sin(a)
		out[i] = pt{cx + x*cos - y*sin, cy + x*sin + y*cos}
	}
	return out
}

func ring(r *vector.Rasterizer, cx, cy, rx, ry, angle, width float64) {
	h := width / 2
	path(r, ellipse(cx, cy, rx+h, ry+h, angle), true)
	if rx > h && ry > h {
		path(r, ellipse(cx, cy, rx-h, ry-h, angle), false)
	}
}

// strokeLine draws a segment with round caps.
func strokeLine(r *vector.Rasterizer, x0, y0, x1, y1, width float64) {
	h := width / 2
	dx, dy := x1-x0, y1-y0
	l := math.Hypot(dx, dy)
	if l > 0 {
		nx, ny := -dy/l*h, dx/l*h
		fill(r, []pt{{x0 + nx, y0 + ny}, {x1 + nx, y1 + ny}, {x1 - nx, y1 - ny}, {x0 - nx, y0 - ny}})
	}
	fill(r, ellipse(x0, y0, h, h, 0))
	fill(r, ellipse(x1, y1, h, h, 0))
}

func outline(r *vector.Rasterizer, p []pt, width float64) {
	for i := range p {
		q := p[(i+1)%len(p)]
		strokeLine(r, p[i].x, p[i].y, q.x, q.y, width)
	}
}

func strokeArc(r *vector.Rasterizer, cx, cy, radius, start, sweep, width float64) {
	if sweep == 0 {
		return
	}
	n := 4 + int(math.Abs(sweep)*radius/8)
	if n > 64 {
		n = 64
	}
	px, py := cx+radius*math.Cos(start), cy+radius*math.Sin(start)
	for i := 1; i <= n; i++ {
		a := start + sweep*float64(i)/float64(n)
		x, y := cx+radius*math.Cos(a), cy+radius*math.Sin(a)
		strokeLine(r, px, py, x, y, width)
		px, py = x, y
	}
}
