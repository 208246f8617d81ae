package source

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ImageSource presents a single image or a folder of images as pages, in
// file name order.
type ImageSource struct {
	paths []string
}

func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image source")
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, errors.Wrap(err, "read image folder")
		}
		for _, entry := range entries {
			if !entry.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no images in %s", path)
	}
	return &ImageSource{paths: paths}, nil
}

func (s *ImageSource) PageCount() int {
	return len(s.paths)
}

func (s *ImageSource) PageSize(index int) (float64, float64, error) {
	if err := checkPage(index, len(s.paths)); err != nil {
		return 0, 0, err
	}
	f, err := os.Open(s.paths[index])
	if err != nil {
		return 0, 0, errors.Wrap(err, "open image")
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "decode %s", s.paths[index])
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

// RenderPage decodes the image, applying its EXIF orientation. The dpi is
// ignored.
func (s *ImageSource) RenderPage(index int, dpi int) (image.Image, error) {
	if err := checkPage(index, len(s.paths)); err != nil {
		return nil, err
	}
	img, err := imaging.Open(s.paths[index], imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", s.paths[index])
	}
	return img, nil
}

func (s *ImageSource) Close() error {
	return nil
}
