//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"cv-pipeline/internal/domain/entity"
)

// ImageLoader читает изображения через OpenCV; пиксели остаются в BGR.
type ImageLoader struct{}

// NewImageLoader создаёт загрузчик на gocv
func NewImageLoader() *ImageLoader {
	return &ImageLoader{}
}

// Load декодирует файл в Raster с порядком каналов BGR.
func (l *ImageLoader) Load(path string) (entity.Raster, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return entity.Raster{}, fmt.Errorf("%w: %s", entity.ErrImageNotFound, path)
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		return entity.Raster{}, fmt.Errorf("failed to decode image %s", path)
	}
	defer mat.Close()

	return entity.Raster{
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Order:  entity.OrderBGR,
		Pix:    mat.ToBytes(),
	}, nil
}
