package port

import (
	"context"

	"cv-pipeline/internal/domain/entity"
)

// ModelLoader загружает модель один раз до начала обработки
type ModelLoader interface {
	// Load проверяет наличие весов и загружает модель под именем name
	Load(ctx context.Context, name, path string) error
}

// Detector интерфейс детектора объектов
type Detector interface {
	// Name возвращает имя варианта детектора (yolo11m, best_pt, ...)
	Name() string

	// Detect находит объекты на изображении.
	// Пустой срез без ошибки означает, что объектов нет.
	Detect(ctx context.Context, imagePath string) ([]entity.Detection, error)
}
