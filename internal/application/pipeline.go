package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"cv-pipeline/internal/domain/entity"
	"cv-pipeline/internal/domain/port"
)

const imageExt = ".jpg"

// ModelSpec модель, которую нужно загрузить до начала обработки
type ModelSpec struct {
	Name   string
	Path   string
	Loader port.ModelLoader
}

// PipelineService прогоняет изображения через детекторы и общий сегментатор.
type PipelineService struct {
	detectors []port.Detector
	segmenter port.Segmenter
	store     port.ArtifactStore
	notifier  port.Notifier
	log       *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewPipelineService создаёт оркестратор. Детекторы выполняются в переданном порядке.
func NewPipelineService(detectors []port.Detector, segmenter port.Segmenter, store port.ArtifactStore, notifier port.Notifier, log *zap.Logger) *PipelineService {
	return &PipelineService{
		detectors: detectors,
		segmenter: segmenter,
		store:     store,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
		newID:     newRunID,
	}
}

// LoadModels загружает все модели; любая ошибка фатальна для всего прогона.
func (s *PipelineService) LoadModels(ctx context.Context, specs []ModelSpec) error {
	s.log.Info("Loading models...")
	for _, m := range specs {
		s.log.Info("Loading model", zap.String("model", m.Name), zap.String("path", m.Path))
		if err := m.Loader.Load(ctx, m.Name, m.Path); err != nil {
			s.log.Error("Failed to load model", zap.String("model", m.Name), zap.Error(err))
			if !errors.Is(err, entity.ErrModelUnavailable) {
				err = fmt.Errorf("%w: %s: %v", entity.ErrModelUnavailable, m.Name, err)
			}
			return err
		}
		s.log.Info("Model loaded", zap.String("model", m.Name))
	}
	return nil
}

// Run обрабатывает все изображения каталога и возвращает манифест прогона.
func (s *PipelineService) Run(ctx context.Context, inputDir string) (*entity.RunManifest, error) {
	images, err := ListImages(inputDir, s.log)
	if err != nil {
		return nil, err
	}
	s.log.Info("Found test images", zap.Int("count", len(images)), zap.String("dir", inputDir))

	variants := make([]string, 0, len(s.detectors))
	for _, d := range s.detectors {
		variants = append(variants, d.Name())
	}

	manifest := entity.NewRunManifest(s.newID(), inputDir, outputRoot(s.store), variants, s.now())
	var runErr error
	for _, imagePath := range images {
		if err := ctx.Err(); err != nil {
			s.log.Warn("Run interrupted", zap.Error(err))
			runErr = err
			break
		}
		manifest.Images = append(manifest.Images, filepath.Base(imagePath))
		for _, u := range s.ProcessImage(ctx, imagePath) {
			manifest.Record(u)
		}
	}
	manifest.FinishedAt = s.now()

	if path, err := s.store.WriteManifest(manifest); err != nil {
		s.log.Error("Failed to write run manifest", zap.Error(err))
	} else {
		s.log.Info("Run manifest saved", zap.String("path", path))
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyRun(ctx, manifest); err != nil {
			s.log.Warn("Failed to send run summary", zap.Error(err))
		}
	}

	return manifest, runErr
}

// ProcessImage прогоняет одно изображение через все детекторы по очереди.
// Между изображениями состояние не сохраняется.
func (s *PipelineService) ProcessImage(ctx context.Context, imagePath string) []entity.UnitResult {
	imageName := filepath.Base(imagePath)
	s.log.Info("Processing image", zap.String("image", imageName))

	results := make([]entity.UnitResult, 0, len(s.detectors))
	for _, d := range s.detectors {
		results = append(results, s.processVariant(ctx, d, imagePath, imageName))
	}
	return results
}

// processVariant детектор → сегментатор → сохранение для одного варианта.
func (s *PipelineService) processVariant(ctx context.Context, d port.Detector, imagePath, imageName string) entity.UnitResult {
	variant := d.Name()
	log := s.log.With(zap.String("image", imageName), zap.String("variant", variant))
	res := entity.UnitResult{Image: imageName, Variant: variant}

	log.Info("Running detection")
	detections, err := d.Detect(ctx, imagePath)
	if err != nil {
		log.Error("Detection failed, skipping segmentation", zap.Error(err))
		res.Status = entity.StatusDetectFailed
		res.Error = err.Error()
		return res
	}
	if len(detections) == 0 {
		log.Warn("No detections, skipping segmentation")
		res.Status = entity.StatusNoDetections
		return res
	}

	res.Detections = len(detections)
	log.Info("Detection finished", zap.Int("objects", len(detections)))
	for i, det := range detections {
		log.Info(fmt.Sprintf("   Object %d: %s (conf: %.3f)", i+1, det.ClassName, det.Confidence))
	}

	res.Status = entity.StatusOK
	log.Info("Running segmentation", zap.Int("boxes", len(detections)))
	masks, err := s.segmenter.Segment(ctx, imagePath, detections)
	if err != nil {
		log.Error("Segmentation failed, saving detections only", zap.Error(err))
		res.Status = entity.StatusSegmentFailed
		res.Error = err.Error()
		masks = nil
	} else {
		log.Info("Segmentation finished", zap.Int("masks", len(masks)))
	}

	saved, err := s.store.Save(imageName, variant, detections, masks)
	if err != nil {
		log.Error("Failed to save results", zap.Error(err))
		res.Status = entity.StatusSaveFailed
		res.Error = err.Error()
		return res
	}

	res.Masks = len(masks)
	res.DetectionsFile = saved.DetectionsFile
	res.MasksDir = saved.MasksDir
	log.Info("Results saved", zap.String("detections", saved.DetectionsFile), zap.Int("masks", len(saved.MaskFiles)))
	return res
}

// ListImages возвращает отсортированные *.jpg каталога, с JPEG-содержимым.
func ListImages(dir string, log *zap.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrNoImages, err)
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), imageExt) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		mime, err := mimetype.DetectFile(path)
		if err != nil {
			log.Warn("Cannot read image, skipping", zap.String("image", e.Name()), zap.Error(err))
			continue
		}
		if !mime.Is("image/jpeg") {
			log.Warn("Not a JPEG image, skipping", zap.String("image", e.Name()), zap.String("mime", mime.String()))
			continue
		}
		images = append(images, path)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("%w in %s", entity.ErrNoImages, dir)
	}
	sort.Strings(images)
	return images, nil
}

func newRunID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return time.Now().UTC().Format("20060102T150405.000000000")
	}
	return id.String()
}

// outputRoot берёт корень хранилища, если реализация его сообщает
func outputRoot(store port.ArtifactStore) string {
	if r, ok := store.(interface{ Root() string }); ok {
		return r.Root()
	}
	return ""
}
