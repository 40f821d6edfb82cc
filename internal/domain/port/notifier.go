package port

import (
	"context"

	"cv-pipeline/internal/domain/entity"
)

// Notifier отправляет сводки о прогонах
type Notifier interface {
	// NotifyRun отправляет итог прогона конвейера
	NotifyRun(ctx context.Context, manifest *entity.RunManifest) error

	// NotifyImage отправляет готовую визуализацию
	NotifyImage(ctx context.Context, path, caption string) error
}
