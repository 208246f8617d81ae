package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/stickmotion/internal/media"
	"github.com/ivlev/stickmotion/internal/scene"
	"github.com/ivlev/stickmotion/internal/source"
)

// ImageContent shows a still image fitted into the layer, optionally with a
// pan/zoom camera path.
type ImageContent struct {
	Img    image.Image
	Camera []CameraKey

	mu     sync.Mutex
	fitted *image.NRGBA
	fitFor image.Point
}

func NewImageContent(img image.Image, camera ...CameraKey) *ImageContent {
	return &ImageContent{Img: img, Camera: camera}
}

// LoadImageContent opens an image file.
func LoadImageContent(path string, camera ...CameraKey) (*ImageContent, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "load image %s", path)
	}
	return NewImageContent(img, camera...), nil
}

func (c *ImageContent) Draw(dst draw.Image, dc scene.DrawContext) error {
	if c.Img == nil {
		return errors.New("image content without image")
	}
	if len(c.Camera) == 0 {
		c.drawFitted(dst, dc.Bounds)
		return nil
	}
	cam := CameraAt(c.Camera, dc.Progress())
	crop := cam.Crop(c.Img.Bounds())
	target := fitRect(crop.Dx(), crop.Dy(), dc.Bounds)
	xdraw.ApproxBiLinear.Scale(dst, target, c.Img, crop, draw.Over, nil)
	return nil
}

// drawFitted caches the resized image since slides are drawn on every frame
// at the same size.
func (c *ImageContent) drawFitted(dst draw.Image, bounds image.Rectangle) {
	b := c.Img.Bounds()
	target := fitRect(b.Dx(), b.Dy(), bounds)
	if target.Empty() {
		return
	}

	c.mu.Lock()
	if c.fitted == nil || c.fitFor != target.Size() {
		c.fitted = imaging.Resize(c.Img, target.Dx(), target.Dy(), imaging.Lanczos)
		c.fitFor = target.Size()
	}
	fitted := c.fitted
	c.mu.Unlock()

	draw.Draw(dst, target, fitted, fitted.Bounds().Min, draw.Over)
}

// fitRect centers a w x h box scaled to fit inside bounds.
func fitRect(w, h int, bounds image.Rectangle) image.Rectangle {
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	bw, bh := bounds.Dx(), bounds.Dy()
	scale := float64(bw) / float64(w)
	if s := float64(bh) / float64(h); s < scale {
		scale = s
	}
	tw, th := int(float64(w)*scale+0.5), int(float64(h)*scale+0.5)
	x := bounds.Min.X + (bw-tw)/2
	y := bounds.Min.Y + (bh-th)/2
	return image.Rect(x, y, x+tw, y+th)
}

// PageContent rasterises one page of a slide source on first use.
type PageContent struct {
	Source source.Source
	Page   int
	DPI    int
	Camera []CameraKey

	once  sync.Once
	image *ImageContent
	err   error
}

func NewPageContent(src source.Source, page, dpi int, camera ...CameraKey) *PageContent {
	if dpi <= 0 {
		dpi = 150
	}
	return &PageContent{Source: src, Page: page, DPI: dpi, Camera: camera}
}

func (c *PageContent) Draw(dst draw.Image, dc scene.DrawContext) error {
	c.once.Do(func() {
		img, err := c.Source.RenderPage(c.Page, c.DPI)
		if err != nil {
			c.err = err
			return
		}
		c.image = NewImageContent(img, c.Camera...)
	})
	if c.err != nil {
		return c.err
	}
	return c.image.Draw(dst, dc)
}

// QRContent draws a QR code centered in the layer.
type QRContent struct {
	Text       string
	Level      qrcode.RecoveryLevel
	Foreground color.Color
	Background color.Color
	// Fraction of the shorter layer side the code occupies.
	Fraction float64

	mu    sync.Mutex
	code  image.Image
	sized int
}

func NewQRContent(text string) *QRContent {
	return &QRContent{
		Text:       text,
		Level:      qrcode.Medium,
		Foreground: color.Black,
		Background: color.White,
		Fraction:   0.6,
	}
}

func (c *QRContent) Draw(dst draw.Image, dc scene.DrawContext) error {
	side := dc.Bounds.Dx()
	if h := dc.Bounds.Dy(); h < side {
		side = h
	}
	side = int(float64(side) * c.Fraction)
	if side <= 0 {
		return nil
	}

	c.mu.Lock()
	if c.code == nil || c.sized != side {
		q, err := qrcode.New(c.Text, c.Level)
		if err != nil {
			c.mu.Unlock()
			return errors.Wrap(err, "encode qr code")
		}
		q.ForegroundColor = c.Foreground
		q.BackgroundColor = c.Background
		c.code = q.Image(side)
		c.sized = side
	}
	code := c.code
	c.mu.Unlock()

	target := fitRect(code.Bounds().Dx(), code.Bounds().Dy(), dc.Bounds)
	draw.Draw(dst, target, code, code.Bounds().Min, draw.Over)
	return nil
}

// VideoContent draws frames of an external clip at the sequence-local time.
type VideoContent struct {
	Res media.Resource
}

func (c *VideoContent) Draw(dst draw.Image, dc scene.DrawContext) error {
	frame, err := c.Res.FrameAt(dc.Local)
	if err != nil {
		return err
	}
	b := frame.Bounds()
	xdraw.ApproxBiLinear.Scale(dst, fitRect(b.Dx(), b.Dy(), dc.Bounds), frame, b, draw.Over, nil)
	return nil
}

// FillContent paints the layer a single color.
type FillContent struct {
	Color color.Color
}

func (c FillContent) Draw(dst draw.Image, dc scene.DrawContext) error {
	draw.Draw(dst, dc.Bounds, image.NewUniform(c.Color), image.Point{}, draw.Over)
	return nil
}

// ParseColor accepts "#rgb", "#rrggbb" and "#rrggbbaa" as well as a few
// names.
func ParseColor(s string) (color.NRGBA, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "transparent":
		return color.NRGBA{}, nil
	case "black":
		return color.NRGBA{A: 255}, nil
	case "white":
		return color.NRGBA{255, 255, 255, 255}, nil
	}
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
