// Package renderer draws the sequences of a video definition into BGRA
// frames.
package renderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/stickmotion/internal/director"
	"github.com/ivlev/stickmotion/internal/effects"
	"github.com/ivlev/stickmotion/internal/scene"
	"github.com/ivlev/stickmotion/internal/speech"
	"github.com/ivlev/stickmotion/internal/system"
)

type Options struct {
	Width      int
	Height     int
	Background color.Color
	// Subtitles enables captions for speech. Nil disables them.
	Subtitles *speech.SubtitleOptions
	FontSize  float64
}

type captionTrack struct {
	audio  *director.AudioDefinition
	chunks []speech.Chunk
}

// Compositor renders a VideoDefinition frame by frame. It is driven by one
// caller at a time; the returned bitmap is reused by the next call.
type Compositor struct {
	opts      Options
	video     *director.VideoDefinition
	sequences []*director.SequenceDefinition
	captions  []captionTrack
	style     captionStyle
	logger    zerolog.Logger

	canvas *image.RGBA
	out    []byte
}

func NewCompositor(video *director.VideoDefinition, opts Options, logger zerolog.Logger) (*Compositor, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if opts.Background == nil {
		opts.Background = color.White
	}
	c := &Compositor{
		opts:      opts,
		video:     video,
		sequences: video.SequenceDefinitions(),
		logger:    logger.With().Str("component", "compositor").Logger(),
		canvas:    image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)),
	}

	if opts.Subtitles != nil {
		size := opts.FontSize
		if size <= 0 {
			size = float64(opts.Height) / 18
		}
		face, err := NewFace(size)
		if err != nil {
			return nil, fmt.Errorf("load subtitle font: %w", err)
		}
		c.style = captionStyle{
			face:       face,
			fg:         color.White,
			box:        color.NRGBA{A: 160},
			marginFrac: 0.06,
		}
		for _, a := range video.AudioDefinitions() {
			if a.Kind != director.AudioSpeech || a.Speech == nil {
				continue
			}
			c.captions = append(c.captions, captionTrack{audio: a, chunks: a.Speech.Subtitles(*opts.Subtitles)})
		}
	}
	return c, nil
}

func (c *Compositor) Size() (int, int) { return c.opts.Width, c.opts.Height }

// RenderFrame composes every sequence active at the frame time, in program
// order, and returns the frame as BGRA.
func (c *Compositor) RenderFrame(ctx context.Context, fc scene.FrameContext) (*scene.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := c.canvas.Bounds()
	draw.Draw(c.canvas, bounds, image.NewUniform(c.opts.Background), image.Point{}, draw.Src)

	for i, seq := range c.sequences {
		if !seq.ActiveAt(fc.Time) {
			continue
		}
		if err := c.drawSequence(seq, fc); err != nil {
			return nil, fmt.Errorf("frame %d, sequence %d (%s): %w", fc.Index, i, seq.Tag, err)
		}
	}

	for _, track := range c.captions {
		if fc.Time < track.audio.From || fc.Time >= track.audio.To {
			continue
		}
		if chunk, ok := speech.ChunkAt(track.chunks, fc.Time-track.audio.From); ok {
			c.style.draw(c.canvas, bounds, chunk.Text)
		}
	}

	bmp := scene.FromRGBA(c.canvas, c.out)
	c.out = bmp.Pix
	return bmp, nil
}

func (c *Compositor) drawSequence(seq *director.SequenceDefinition, fc scene.FrameContext) error {
	local := fc.Time - seq.From
	state := effects.Apply(seq.Enter, seq.Exit, local, seq.Span())
	if state.Opacity <= 0 {
		return nil
	}

	bounds := c.canvas.Bounds()
	layer := system.Layer(bounds)
	defer system.Release(layer)

	dc := scene.DrawContext{Frame: fc, Local: local, Span: seq.Span(), Bounds: bounds}
	if err := seq.Content.Draw(layer, dc); err != nil {
		return err
	}

	composite(c.canvas, layer, state)
	return nil
}

// composite blends layer onto dst with the transition state applied.
func composite(dst *image.RGBA, layer *image.RGBA, s effects.State) {
	b := dst.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	scale := s.Scale
	if scale <= 0 {
		scale = 1
	}
	tw, th := w*scale, h*scale
	x := float64(b.Min.X) + (w-tw)/2 + s.OffsetX*w
	y := float64(b.Min.Y) + (h-th)/2 + s.OffsetY*h
	target := image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+tw)), int(math.Round(y+th)),
	)

	var mask image.Image
	if s.Opacity < 1 {
		mask = image.NewUniform(color.Alpha{A: uint8(math.Round(s.Opacity * 255))})
	}

	if scale == 1 {
		draw.DrawMask(dst, target, layer, layer.Bounds().Min, mask, image.Point{}, draw.Over)
		return
	}
	var opts *xdraw.Options
	if mask != nil {
		opts = &xdraw.Options{SrcMask: mask}
	}
	xdraw.ApproxBiLinear.Scale(dst, target, layer, layer.Bounds(), draw.Over, opts)
}
