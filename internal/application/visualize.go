package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"cv-pipeline/internal/domain/port"
)

// VisualizeService строит картинки по сохранённым артефактам.
type VisualizeService struct {
	store    port.ArtifactStore
	renderer port.Renderer
	notifier port.Notifier
	variants []string
	log      *zap.Logger
}

// NewVisualizeService создаёт сервис визуализации для указанных вариантов детектора
func NewVisualizeService(store port.ArtifactStore, renderer port.Renderer, notifier port.Notifier, variants []string, log *zap.Logger) *VisualizeService {
	return &VisualizeService{
		store:    store,
		renderer: renderer,
		notifier: notifier,
		variants: variants,
		log:      log,
	}
}

// Run визуализирует все изображения каталога и возвращает пути созданных файлов.
func (s *VisualizeService) Run(ctx context.Context, inputDir, outputDir string) ([]string, error) {
	images, err := ListImages(inputDir, s.log)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	for _, imagePath := range images {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		for _, variant := range s.variants {
			out, err := s.VisualizeImage(ctx, imagePath, variant, outputDir)
			if err != nil {
				s.log.Error("Visualization failed",
					zap.String("image", filepath.Base(imagePath)),
					zap.String("variant", variant),
					zap.Error(err))
				continue
			}
			if out != "" {
				written = append(written, out)
			}
		}
	}

	s.log.Info("Visualizations saved", zap.Int("count", len(written)), zap.String("dir", outputDir))
	return written, nil
}

// VisualizeImage рисует одну пару (изображение, вариант).
// Пустой путь без ошибки означает, что детекций для пары нет.
func (s *VisualizeService) VisualizeImage(ctx context.Context, imagePath, variant, outputDir string) (string, error) {
	imageName := filepath.Base(imagePath)
	log := s.log.With(zap.String("image", imageName), zap.String("variant", variant))

	detections, err := s.store.LoadDetections(s.store.DetectionsPath(imageName, variant))
	if errors.Is(err, os.ErrNotExist) {
		log.Debug("No detections file, skipping")
		return "", nil
	}
	if err != nil {
		return "", err
	}

	masks, err := s.store.LoadMasks(s.store.MasksDir(imageName, variant))
	if err != nil {
		return "", err
	}

	original, err := s.renderer.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}

	grid, err := s.renderer.Compose("YOLO + SAM2 Results: "+imageName, original, detections, masks)
	if err != nil {
		return "", fmt.Errorf("compose: %w", err)
	}

	out := filepath.Join(outputDir, VisualizationName(imageName, variant))
	if err := s.renderer.Save(grid, out); err != nil {
		return "", fmt.Errorf("save visualization: %w", err)
	}
	log.Info("Visualization saved", zap.String("path", out), zap.Int("detections", len(detections)), zap.Int("masks", len(masks)))

	if s.notifier != nil {
		caption := fmt.Sprintf("%s / %s: %d objects, %d masks", imageName, variant, len(detections), len(masks))
		if err := s.notifier.NotifyImage(ctx, out, caption); err != nil {
			log.Warn("Failed to send visualization", zap.Error(err))
		}
	}
	return out, nil
}

// VisualizationName возвращает {base}_{variant}_visualization.png, base без .jpg
func VisualizationName(imageName, variant string) string {
	return strings.TrimSuffix(imageName, imageExt) + "_" + variant + "_visualization.png"
}
