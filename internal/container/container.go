package container

import (
	"go.uber.org/zap"

	"cv-pipeline/config"
	telegram "cv-pipeline/internal/api"
	app "cv-pipeline/internal/application"
	"cv-pipeline/internal/domain/port"
	"cv-pipeline/internal/infrastructure/render"
	"cv-pipeline/internal/infrastructure/storage"
	"cv-pipeline/internal/infrastructure/system"
	"cv-pipeline/internal/infrastructure/vision"
)

type Container struct {
	Models           []app.ModelSpec
	Variants         []string
	Store            port.ArtifactStore
	Notifier         port.Notifier
	PipelineService  *app.PipelineService
	VisualizeService *app.VisualizeService
	ProbeService     *app.ProbeService
}

// New собирает сервисы приложения по конфигурации.
func New(cfg *config.Config, log *zap.Logger) *Container {
	client := vision.NewInferenceClient(cfg.Inference.URL, cfg.Inference.Timeout)
	remote := vision.NewRemoteModelLoader(client)

	detectors, models := buildDetectors(cfg, client, remote)
	models = append(models, app.ModelSpec{Name: cfg.Inference.Segmenter, Path: cfg.Paths.SegmenterModel, Loader: remote})
	segmenter := vision.NewRemoteSegmenter(client, vision.NewImageLoader(), cfg.Inference.Segmenter)

	variants := make([]string, 0, len(detectors))
	for _, d := range detectors {
		variants = append(variants, d.Name())
	}

	store := newStore(cfg, log)
	notifier := newNotifier(cfg.Telegram, log)

	return &Container{
		Models:           models,
		Variants:         variants,
		Store:            store,
		Notifier:         notifier,
		PipelineService:  app.NewPipelineService(detectors, segmenter, store, notifier, log),
		VisualizeService: app.NewVisualizeService(store, render.NewGridRenderer(), notifier, variants, log),
		ProbeService:     app.NewProbeService(system.NewExecRunner(), system.NewGonumBackend(cfg.Probe.Seed), cfg.Probe.Timeout, log),
	}
}

// buildDetectors создаёт оба детектора в порядке A, B.
func buildDetectors(cfg *config.Config, client *vision.InferenceClient, remote *vision.RemoteModelLoader) ([]port.Detector, []app.ModelSpec) {
	names := []string{cfg.Inference.DetectorA, cfg.Inference.DetectorB}
	paths := []string{cfg.Paths.DetectorAModel, cfg.Paths.DetectorBModel}

	detectors := make([]port.Detector, 0, len(names))
	models := make([]app.ModelSpec, 0, len(names)+1)
	for i, name := range names {
		if cfg.Inference.Backend == "onnx" {
			d := vision.NewOnnxDetector(name, vision.YOLOParams{
				InputSize:     cfg.Inference.InputSize,
				ConfThreshold: cfg.Inference.ConfThreshold,
				NMSThreshold:  cfg.Inference.NMSThreshold,
			})
			detectors = append(detectors, d)
			models = append(models, app.ModelSpec{Name: name, Path: paths[i], Loader: d})
			continue
		}
		detectors = append(detectors, vision.NewRemoteDetector(client, remote, name, cfg.Inference.ConfThreshold))
		models = append(models, app.ModelSpec{Name: name, Path: paths[i], Loader: remote})
	}
	return detectors, models
}

// newStore в режиме сухого прогона держит артефакты в памяти
func newStore(cfg *config.Config, log *zap.Logger) port.ArtifactStore {
	if cfg.Run.DryRun {
		log.Warn("Dry run: artifacts are kept in memory and not written to disk")
		return storage.NewMemoryArtifactStore()
	}
	return storage.NewFileArtifactStore(cfg.Paths.ResultsDir)
}

// newNotifier без токена уведомления отключены; авторизация откладывается до первой отправки
func newNotifier(cfg config.TelegramConfig, log *zap.Logger) port.Notifier {
	if cfg.Token == "" {
		return telegram.NopNotifier{}
	}
	return telegram.NewNotifier(cfg.Token, cfg.ChatID, log)
}
