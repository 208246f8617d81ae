package renderer

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/stickmotion/internal/scene"
)

var (
	fontOnce sync.Once
	goFont   *opentype.Font
	fontErr  error
)

// NewFace returns a Go Regular face of the given pixel size.
func NewFace(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		goFont, fontErr = opentype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}
	return opentype.NewFace(goFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// wrap splits text into lines no wider than maxWidth.
func wrap(face font.Face, text string, maxWidth int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if font.MeasureString(face, candidate).Ceil() > maxWidth {
				lines = append(lines, line)
				line = w
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}

// drawLines renders lines centered horizontally, with the block's top at y.
// It returns the block height.
func drawLines(dst draw.Image, face font.Face, lines []string, bounds image.Rectangle, y int, fg color.Color) int {
	m := face.Metrics()
	lineHeight := (m.Ascent + m.Descent).Ceil()
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(fg), Face: face}
	for i, line := range lines {
		w := d.MeasureString(line).Ceil()
		x := bounds.Min.X + (bounds.Dx()-w)/2
		d.Dot = fixed.P(x, y+i*lineHeight+m.Ascent.Ceil())
		d.DrawString(line)
	}
	return lineHeight * len(lines)
}

func blockHeight(face font.Face, lines int) int {
	m := face.Metrics()
	return (m.Ascent + m.Descent).Ceil() * lines
}

// TextContent is a centered title card.
type TextContent struct {
	Text  string
	Size  float64
	Color color.Color

	mu   sync.Mutex
	face font.Face
}

func NewTextContent(text string, size float64, fg color.Color) *TextContent {
	if size <= 0 {
		size = 48
	}
	if fg == nil {
		fg = color.Black
	}
	return &TextContent{Text: text, Size: size, Color: fg}
}

func (c *TextContent) Draw(dst draw.Image, dc scene.DrawContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.face == nil {
		face, err := NewFace(c.Size)
		if err != nil {
			return err
		}
		c.face = face
	}
	lines := wrap(c.face, c.Text, dc.Bounds.Dx()*9/10)
	top := dc.Bounds.Min.Y + (dc.Bounds.Dy()-blockHeight(c.face, len(lines)))/2
	drawLines(dst, c.face, lines, dc.Bounds, top, c.Color)
	return nil
}

// captionStyle draws subtitles near the bottom edge on a translucent box.
type captionStyle struct {
	face       font.Face
	fg         color.Color
	box        color.Color
	marginFrac float64
}

func (s captionStyle) draw(dst draw.Image, bounds image.Rectangle, text string) {
	lines := wrap(s.face, text, bounds.Dx()*8/10)
	h := blockHeight(s.face, len(lines))
	pad := h / (2 * len(lines))
	bottom := bounds.Max.Y - int(float64(bounds.Dy())*s.marginFrac)
	top := bottom - h

	widest := 0
	for _, l := range lines {
		if w := font.MeasureString(s.face, l).Ceil(); w > widest {
			widest = w
		}
	}
	cx := bounds.Min.X + bounds.Dx()/2
	box := image.Rect(cx-widest/2-pad, top-pad, cx+widest/2+pad, bottom+pad).Intersect(bounds)
	draw.Draw(dst, box, image.NewUniform(s.box), image.Point{}, draw.Over)
	drawLines(dst, s.face, lines, bounds, top, s.fg)
}
