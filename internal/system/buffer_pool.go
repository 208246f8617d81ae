package system

import (
	"image"
	"sync"
)

// ImagePool hands out transparent RGBA layers, reusing buffers of the same
// size across frames.
type ImagePool struct {
	sizes sync.Map // image.Rectangle -> *sync.Pool
}

var layers = NewImagePool()

func NewImagePool() *ImagePool {
	return &ImagePool{}
}

// Layer returns a cleared layer from the shared pool.
func Layer(rect image.Rectangle) *image.RGBA {
	return layers.Get(rect)
}

// Release returns a layer obtained from Layer.
func Release(img *image.RGBA) {
	layers.Put(img)
}

func (p *ImagePool) pool(rect image.Rectangle) *sync.Pool {
	if v, ok := p.sizes.Load(rect); ok {
		return v.(*sync.Pool)
	}
	v, _ := p.sizes.LoadOrStore(rect, &sync.Pool{
		New: func() any { return image.NewRGBA(rect) },
	})
	return v.(*sync.Pool)
}

// Get returns a fully transparent image with bounds rect.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	img := p.pool(rect).Get().(*image.RGBA)
	clear(img.Pix)
	return img
}

// Put ignores images of a size that was never requested.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	if v, ok := p.sizes.Load(img.Rect); ok {
		v.(*sync.Pool).Put(img)
	}
}
