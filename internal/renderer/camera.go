package renderer

import (
	"image"

	"github.com/ivlev/stickmotion/internal/animation"
)

// CameraKey is a pan/zoom position over a still image at a point of the
// sequence progress. Centers are fractions of the image size.
type CameraKey struct {
	At      float64 `yaml:"at"`
	CenterX float64 `yaml:"x"`
	CenterY float64 `yaml:"y"`
	Zoom    float64 `yaml:"zoom"`
}

// CameraState is the interpolated camera.
type CameraState struct {
	CenterX float64
	CenterY float64
	Zoom    float64
}

func (k CameraKey) state() CameraState {
	z := k.Zoom
	if z < 1 {
		z = 1
	}
	return CameraState{CenterX: k.CenterX, CenterY: k.CenterY, Zoom: z}
}

// CameraAt eases between the keys surrounding progress. Keys must be sorted
// by At.
func CameraAt(keys []CameraKey, progress float64) CameraState {
	if len(keys) == 0 {
		return CameraState{CenterX: 0.5, CenterY: 0.5, Zoom: 1}
	}
	if progress <= keys[0].At {
		return keys[0].state()
	}
	last := keys[len(keys)-1]
	if progress >= last.At {
		return last.state()
	}

	prev, next := keys[0], last
	for i := 0; i < len(keys)-1; i++ {
		if progress >= keys[i].At && progress < keys[i+1].At {
			prev, next = keys[i], keys[i+1]
			break
		}
	}
	span := next.At - prev.At
	if span <= 0 {
		return next.state()
	}
	t := animation.EaseInOutCubic((progress - prev.At) / span)
	a, b := prev.state(), next.state()
	return CameraState{
		CenterX: a.CenterX + (b.CenterX-a.CenterX)*t,
		CenterY: a.CenterY + (b.CenterY-a.CenterY)*t,
		Zoom:    a.Zoom + (b.Zoom-a.Zoom)*t,
	}
}

// Crop returns the source rectangle the camera sees in an image of the
// given bounds, kept inside the image.
func (c CameraState) Crop(b image.Rectangle) image.Rectangle {
	zoom := c.Zoom
	if zoom < 1 {
		zoom = 1
	}
	w := int(float64(b.Dx()) / zoom)
	h := int(float64(b.Dy()) / zoom)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	x := b.Min.X + int(c.CenterX*float64(b.Dx())) - w/2
	y := b.Min.Y + int(c.CenterY*float64(b.Dy())) - h/2
	if x < b.Min.X {
		x = b.Min.X
	}
	if y < b.Min.Y {
		y = b.Min.Y
	}
	if x+w > b.Max.X {
		x = b.Max.X - w
	}
	if y+h > b.Max.Y {
		y = b.Max.Y - h
	}
	return image.Rect(x, y, x+w, y+h)
}
