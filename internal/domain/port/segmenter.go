package port

import (
	"context"

	"cv-pipeline/internal/domain/entity"
)

// Segmenter интерфейс сегментатора, управляемого рамками
type Segmenter interface {
	// Segment возвращает по маске на каждую рамку в том же порядке.
	// Масок может быть меньше, чем рамок, но не больше.
	Segment(ctx context.Context, imagePath string, detections []entity.Detection) ([]entity.Mask, error)
}

// ImageLoader декодирует изображение с диска
type ImageLoader interface {
	Load(path string) (entity.Raster, error)
}
