//go:build !gocv
// +build !gocv

package vision

import (
	"errors"
	"fmt"
	"os"

	"github.com/disintegration/imaging"

	"cv-pipeline/internal/domain/entity"
)

// ImageLoader читает изображения чистым Go (без OpenCV); пиксели в RGB.
type ImageLoader struct{}

// NewImageLoader создаёт загрузчик без gocv
func NewImageLoader() *ImageLoader {
	return &ImageLoader{}
}

// Load декодирует файл в Raster с порядком каналов RGB.
func (l *ImageLoader) Load(path string) (entity.Raster, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return entity.Raster{}, fmt.Errorf("%w: %s", entity.ErrImageNotFound, path)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return entity.Raster{}, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	nrgba := imaging.Clone(img)
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	pix := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		for x := 0; x < w; x++ {
			pix = append(pix, row[x*4], row[x*4+1], row[x*4+2])
		}
	}

	return entity.Raster{Width: w, Height: h, Order: entity.OrderRGB, Pix: pix}, nil
}
