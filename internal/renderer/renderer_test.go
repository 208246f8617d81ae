package renderer

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/stickmotion/internal/animation"
	"github.com/ivlev/stickmotion/internal/director"
	"github.com/ivlev/stickmotion/internal/effects"
	"github.com/ivlev/stickmotion/internal/figure"
	"github.com/ivlev/stickmotion/internal/scene"
	"github.com/ivlev/stickmotion/internal/speech"
)

var red = color.NRGBA{R: 255, A: 255}

// pixel returns r, g, b, a of the BGRA bitmap at x, y.
func pixel(b *scene.Bitmap, x, y int) (uint8, uint8, uint8, uint8) {
	i := (y*b.Width + x) * 4
	return b.Pix[i+2], b.Pix[i+1], b.Pix[i], b.Pix[i+3]
}

func newCompositor(t *testing.T, v *director.VideoDefinition, opts Options) *Compositor {
	t.Helper()
	if opts.Width == 0 {
		opts.Width, opts.Height = 64, 36
	}
	c, err := NewCompositor(v, opts, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCompositorActiveSequences(t *testing.T) {
	v := &director.VideoDefinition{Components: []director.Component{
		&director.SequenceDefinition{From: 0, To: time.Second, Content: FillContent{Color: red}},
	}}
	c := newCompositor(t, v, Options{})

	bmp, err := c.RenderFrame(context.Background(), scene.At(0, 10))
	if err != nil {
		t.Fatal(err)
	}
	if r, g, b, _ := pixel(bmp, 10, 10); r != 255 || g != 0 || b != 0 {
		t.Errorf("frame 0 = %d,%d,%d, want red", r, g, b)
	}

	// The end of a sequence is exclusive.
	bmp, err = c.RenderFrame(context.Background(), scene.At(10, 10))
	if err != nil {
		t.Fatal(err)
	}
	if r, g, b, _ := pixel(bmp, 10, 10); r != 255 || g != 255 || b != 255 {
		t.Errorf("frame 10 = %d,%d,%d, want white background", r, g, b)
	}
}

func TestCompositorFade(t *testing.T) {
	fade := effects.Transition{Kind: effects.Fade, Duration: time.Second, Easing: animation.Linear}
	v := &director.VideoDefinition{Components: []director.Component{
		&director.SequenceDefinition{From: 0, To: 4 * time.Second, Content: FillContent{Color: red}, Enter: fade},
	}}
	c := newCompositor(t, v, Options{})

	bmp, err := c.RenderFrame(context.Background(), scene.At(5, 10))
	if err != nil {
		t.Fatal(err)
	}
	r, g, _, _ := pixel(bmp, 5, 5)
	if r != 255 || g < 110 || g > 145 {
		t.Errorf("half faded red over white = r%d g%d, want g near 128", r, g)
	}
}

func TestCompositorCanceled(t *testing.T) {
	c := newCompositor(t, &director.VideoDefinition{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.RenderFrame(ctx, scene.At(0, 10)); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestCompositorSubtitles(t *testing.T) {
	sp, err := speech.NewNoopSynthesizer(100*time.Millisecond).Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatal(err)
	}
	v := &director.VideoDefinition{Components: []director.Component{
		&director.SequenceDefinition{From: 0, To: 2 * time.Second, Content: FillContent{Color: color.White}},
		&director.AudioDefinition{From: 0, To: sp.Duration(), Kind: director.AudioSpeech, Speech: sp},
	}}
	opts := speech.DefaultSubtitleOptions()
	c := newCompositor(t, v, Options{Width: 320, Height: 180, Subtitles: &opts})

	countDark := func(bmp *scene.Bitmap) int {
		n := 0
		for y := bmp.Height * 3 / 4; y < bmp.Height; y++ {
			for x := 0; x < bmp.Width; x++ {
				if r, _, _, _ := pixel(bmp, x, y); r < 200 {
					n++
				}
			}
		}
		return n
	}

	bmp, err := c.RenderFrame(context.Background(), scene.At(5, 10))
	if err != nil {
		t.Fatal(err)
	}
	if countDark(bmp) == 0 {
		t.Error("expected a caption box while speaking")
	}

	bmp, err = c.RenderFrame(context.Background(), scene.At(15, 10))
	if err != nil {
		t.Fatal(err)
	}
	if n := countDark(bmp); n != 0 {
		t.Errorf("caption still visible after speech: %d dark pixels", n)
	}
}

func TestDrawSegments(t *testing.T) {
	fig := figure.Figure{
		Name: "bar",
		X:    540, Y: 360,
		Root: figure.Joint{ID: "root", Length: 200, Shape: figure.Line()},
	}
	frame := figure.NewFrame(fig).Compile()

	dst := image.NewRGBA(image.Rect(0, 0, 128, 72))
	DrawSegments(dst, dst.Bounds(), frame, 1280, 720, color.Black, 40)

	// The bar runs from x=54 to x=74 at y=36 in layer pixels.
	if a := dst.RGBAAt(64, 36).A; a == 0 {
		t.Error("expected the bar to cover its midpoint")
	}
	if a := dst.RGBAAt(10, 10).A; a != 0 {
		t.Error("expected empty corner")
	}

	// Panning the viewport right by 400 canvas pixels moves the bar left
	// by 40 layer pixels.
	frame.Viewport = figure.Viewport{OffsetX: 400, Scale: 1}
	dst = image.NewRGBA(image.Rect(0, 0, 128, 72))
	DrawSegments(dst, dst.Bounds(), frame, 1280, 720, color.Black, 40)
	if a := dst.RGBAAt(24, 36).A; a == 0 {
		t.Error("expected the panned bar at x=24")
	}
	if a := dst.RGBAAt(64, 36).A; a != 0 {
		t.Error("expected the old position to be empty after panning")
	}
}

func TestDrawEveryShape(t *testing.T) {
	shapes := []figure.Shape{
		figure.Line(), figure.Circle(), figure.FilledCircle(),
		figure.Rectangle(), figure.Ellipse(0.5), figure.Arc(math.Pi),
	}
	for _, shape := range shapes {
		t.Run(shape.Kind.String(), func(t *testing.T) {
			fig := figure.Figure{
				Name: "s", X: 440, Y: 360,
				Root: figure.Joint{ID: "root", Length: 400, Shape: shape},
			}
			dst := image.NewRGBA(image.Rect(0, 0, 128, 72))
			DrawSegments(dst, dst.Bounds(), figure.NewFrame(fig).Compile(), 1280, 720, color.Black, 30)

			covered := 0
			for i := 3; i < len(dst.Pix); i += 4 {
				if dst.Pix[i] > 0 {
					covered++
				}
			}
			if covered == 0 {
				t.Error("shape drew nothing")
			}
		})
	}
}

func TestFigureContentPlaysFrames(t *testing.T) {
	k1 := figure.NewFrame(figure.DefaultStickman("bob"))
	k2 := k1.Clone()
	k2.Figures[0] = figure.MoveFigure(k2.Figures[0], 900, 360)

	c, err := NewFigureContent([]figure.FigureFrame{k1, k2}, 3, 24)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Frames) != 9 {
		t.Fatalf("expanded to %d frames, want 9", len(c.Frames))
	}

	dst := image.NewRGBA(image.Rect(0, 0, 128, 72))
	dc := scene.DrawContext{Local: 200 * time.Millisecond, Span: time.Second, Bounds: dst.Bounds()}
	if err := c.Draw(dst, dc); err != nil {
		t.Fatal(err)
	}
}

func TestCameraAt(t *testing.T) {
	keys := []CameraKey{
		{At: 0, CenterX: 0.5, CenterY: 0.5, Zoom: 1},
		{At: 1, CenterX: 0.25, CenterY: 0.5, Zoom: 2},
	}
	tests := []struct {
		progress float64
		zoom     float64
	}{
		{-1, 1},
		{0, 1},
		{0.5, 1.5},
		{1, 2},
		{2, 2},
	}
	for _, tt := range tests {
		got := CameraAt(keys, tt.progress)
		if math.Abs(got.Zoom-tt.zoom) > 1e-9 {
			t.Errorf("CameraAt(%v).Zoom = %v, want %v", tt.progress, got.Zoom, tt.zoom)
		}
	}
	if got := CameraAt(nil, 0.3); got.Zoom != 1 || got.CenterX != 0.5 {
		t.Errorf("empty camera = %+v", got)
	}
}

func TestCameraCrop(t *testing.T) {
	b := image.Rect(0, 0, 100, 100)
	if got := (CameraState{CenterX: 0.5, CenterY: 0.5, Zoom: 2}).Crop(b); got != image.Rect(25, 25, 75, 75) {
		t.Errorf("centered crop = %v", got)
	}
	if got := (CameraState{CenterX: 0, CenterY: 1, Zoom: 2}).Crop(b); got != image.Rect(0, 50, 50, 100) {
		t.Errorf("corner crop = %v", got)
	}
}

func TestImageContentFits(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+3] = 255, 255
	}
	c := NewImageContent(src)
	dst := image.NewRGBA(image.Rect(0, 0, 40, 40))
	if err := c.Draw(dst, scene.DrawContext{Bounds: dst.Bounds()}); err != nil {
		t.Fatal(err)
	}
	// 20x10 fitted into 40x40 is 40x20, centered vertically.
	if dst.RGBAAt(20, 20).A == 0 {
		t.Error("expected image at the center")
	}
	if dst.RGBAAt(20, 2).A != 0 {
		t.Error("expected letterbox above the image")
	}
}

func TestQRContent(t *testing.T) {
	c := NewQRContent("https://example.com")
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	if err := c.Draw(dst, scene.DrawContext{Bounds: dst.Bounds()}); err != nil {
		t.Fatal(err)
	}
	dark := 0
	for i := 0; i < len(dst.Pix); i += 4 {
		if dst.Pix[i+3] == 255 && dst.Pix[i] == 0 {
			dark++
		}
	}
	if dark == 0 {
		t.Error("qr code drew no dark modules")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
		err  bool
	}{
		{"#ff0000", color.NRGBA{255, 0, 0, 255}, false},
		{"#0f0", color.NRGBA{0, 255, 0, 255}, false},
		{"#00000080", color.NRGBA{0, 0, 0, 128}, false},
		{"white", color.NRGBA{255, 255, 255, 255}, false},
		{"transparent", color.NRGBA{}, false},
		{"#12", color.NRGBA{}, true},
		{"#zzzzzz", color.NRGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseColor(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
