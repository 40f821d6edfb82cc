package port

import (
	"image"

	"cv-pipeline/internal/domain/entity"
)

// Renderer собирает итоговую картинку 2×2
type Renderer interface {
	// Open декодирует исходное изображение
	Open(path string) (image.Image, error)

	// Compose рисует сетку: оригинал, рамки, маски, всё вместе
	Compose(title string, original image.Image, detections []entity.Detection, masks []entity.StoredMask) (image.Image, error)

	// Save записывает PNG
	Save(img image.Image, path string) error
}
