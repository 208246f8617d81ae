package scene

import (
	"image"
	"image/color"
	"testing"
	"time"
)

func TestPixelConversions(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.Set(1, 0, color.RGBA{R: 40, G: 50, B: 60, A: 128})

	bm := FromRGBA(img, nil)
	wantBGRA := []byte{30, 20, 10, 255, 60, 50, 40, 128}
	for i, b := range wantBGRA {
		if bm.Pix[i] != b {
			t.Fatalf("BGRA[%d] = %d, want %d", i, bm.Pix[i], b)
		}
	}

	rgb := bm.RGB(nil)
	wantRGB := []byte{10, 20, 30, 40, 50, 60}
	for i, b := range wantRGB {
		if rgb[i] != b {
			t.Fatalf("RGB[%d] = %d, want %d", i, rgb[i], b)
		}
	}

	back := bm.RGBA()
	if back.RGBAAt(1, 0) != img.RGBAAt(1, 0) {
		t.Errorf("RGBA round trip mismatch: %v", back.RGBAAt(1, 0))
	}
}

func TestFromRGBAHandlesSubImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(2, 2, color.RGBA{R: 1, G: 2, B: 3, A: 4})
	sub := img.SubImage(image.Rect(2, 2, 4, 4)).(*image.RGBA)

	bm := FromRGBA(sub, nil)
	if bm.Width != 2 || bm.Height != 2 {
		t.Fatalf("unexpected size %dx%d", bm.Width, bm.Height)
	}
	if bm.Pix[0] != 3 || bm.Pix[2] != 1 {
		t.Errorf("sub-image origin not honoured: %v", bm.Pix[:4])
	}
}

func TestFrameContextAndProgress(t *testing.T) {
	fc := At(12, 24)
	if fc.Time != 500*time.Millisecond {
		t.Errorf("frame 12 @ 24fps = %v", fc.Time)
	}
	// Rounded, not truncated, so Time*fps never lands just below the index.
	if got := At(1, 24).Time; got != 41666667*time.Nanosecond {
		t.Errorf("frame 1 @ 24fps = %v", got)
	}

	c := DrawContext{Local: time.Second, Span: 4 * time.Second}
	if c.Progress() != 0.25 {
		t.Errorf("progress = %f", c.Progress())
	}
	c.Span = 0
	if c.Progress() != 1 {
		t.Errorf("zero span progress = %f", c.Progress())
	}
}
