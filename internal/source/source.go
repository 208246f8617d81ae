// Package source opens paged slide material: PDF documents and image
// folders.
package source

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/pkg/errors"
)

var ErrPageOutOfRange = errors.New("page out of range")

// Source is a document whose pages can be rasterised.
type Source interface {
	PageCount() int
	PageSize(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Open picks a source by path: PDF files use go-fitz, anything else is
// treated as an image file or a folder of images.
func Open(path string) (Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "open source")
	}
	if !fi.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewPDFSource(path)
	}
	return NewImageSource(path)
}

func checkPage(index, count int) error {
	if index < 0 || index >= count {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, index, count)
	}
	return nil
}

// PDFSource renders pages with MuPDF. A document handle is not safe for
// concurrent use, so calls are serialised.
type PDFSource struct {
	mu   sync.Mutex
	doc  *fitz.Document
	path string
}

func NewPDFSource(path string) (*PDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open pdf %s", path)
	}
	return &PDFSource{doc: doc, path: path}, nil
}

func (f *PDFSource) PageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc.NumPage()
}

func (f *PDFSource) PageSize(index int) (float64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := checkPage(index, f.doc.NumPage()); err != nil {
		return 0, 0, err
	}
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "bound page %d", index)
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

func (f *PDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := checkPage(index, f.doc.NumPage()); err != nil {
		return nil, err
	}
	img, err := f.doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, errors.Wrapf(err, "render page %d of %s", index, f.path)
	}
	return img, nil
}

func (f *PDFSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc.Close()
}
