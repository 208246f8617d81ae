// Package scene holds the types shared between the timeline, which places
// visual content in time, and the renderer, which draws it.
package scene

import (
	"image"
	"image/draw"
	"math"
	"time"
)

// FrameContext identifies the frame being produced. It is passed explicitly
// down every render call instead of living in a shared mutable slot.
type FrameContext struct {
	Index int
	FPS   float64
	Time  time.Duration
}

// At returns the context for frame index at fps.
func At(index int, fps float64) FrameContext {
	return FrameContext{
		Index: index,
		FPS:   fps,
		Time:  time.Duration(math.Round(float64(index) / fps * float64(time.Second))),
	}
}

// DrawContext is what a Content sees while drawing one frame.
type DrawContext struct {
	Frame FrameContext
	// Local is the time elapsed since the sequence started.
	Local time.Duration
	// Span is the full resolved length of the sequence.
	Span   time.Duration
	Bounds image.Rectangle
}

// Progress returns Local/Span clamped to [0, 1].
func (c DrawContext) Progress() float64 {
	if c.Span <= 0 {
		return 1
	}
	p := float64(c.Local) / float64(c.Span)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Content is the visual payload of a sequence.
type Content interface {
	Draw(dst draw.Image, c DrawContext) error
}

// Bitmap is a tightly packed BGRA pixel buffer.
type Bitmap struct {
	Width  int
	Height int
	Pix    []byte
}

// FromRGBA converts an RGBA image into a BGRA bitmap, reusing buf when it is
// large enough.
func FromRGBA(img *image.RGBA, buf []byte) *Bitmap {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	n := w * h * 4
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+w*4]
		dst := buf[y*w*4 : (y+1)*w*4]
		for x := 0; x < w*4; x += 4 {
			dst[x+0] = src[x+2]
			dst[x+1] = src[x+1]
			dst[x+2] = src[x+0]
			dst[x+3] = src[x+3]
		}
	}
	return &Bitmap{Width: w, Height: h, Pix: buf}
}

// RGB drops alpha and reorders BGRA into packed RGB.
func (b *Bitmap) RGB(buf []byte) []byte {
	n := b.Width * b.Height * 3
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	for i, j := 0, 0; i < len(b.Pix); i, j = i+4, j+3 {
		buf[j+0] = b.Pix[i+2]
		buf[j+1] = b.Pix[i+1]
		buf[j+2] = b.Pix[i+0]
	}
	return buf
}

// RGBA converts the bitmap back to an image for previews.
func (b *Bitmap) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for i := 0; i < len(b.Pix); i += 4 {
		img.Pix[i+0] = b.Pix[i+2]
		img.Pix[i+1] = b.Pix[i+1]
		img.Pix[i+2] = b.Pix[i+0]
		img.Pix[i+3] = b.Pix[i+3]
	}
	return img
}
