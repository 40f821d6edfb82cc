package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"cv-pipeline/config"
	"cv-pipeline/internal/cli"
	"cv-pipeline/internal/container"
	"cv-pipeline/internal/domain/entity"
	"cv-pipeline/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := cli.Command{
		Name:    "integrate",
		Summary: "run both detectors and the segmenter over the test images",
		Details: []string{
			"  CVPIPE_INFERENCE_URL=...      Inference server address",
			"  CVPIPE_TELEGRAM_TOKEN=...     Send the run summary to Telegram",
		},
	}
	if cli.HandleArgs(cmd, os.Args[1:], os.Stdout) {
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log := logger.New(cfg.Log.Debug)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("🚀 Detection + segmentation integration test")

	// Создаём сервисы приложения
	c := container.New(cfg, log)

	// Проверка окружения перед загрузкой моделей
	c.ProbeService.CheckVirtualEnvironment()
	gpu := c.ProbeService.CheckGPU(ctx)
	log.Info("Compute mode", zap.String("mode", gpu.Mode))

	if err := c.PipelineService.LoadModels(ctx, c.Models); err != nil {
		log.Error("Model loading failed", zap.Error(err))
		return 1
	}

	manifest, err := c.PipelineService.Run(ctx, cfg.Paths.InputDir)
	if err != nil {
		if errors.Is(err, entity.ErrNoImages) {
			log.Error("No test images found", zap.String("dir", cfg.Paths.InputDir), zap.Error(err))
		} else {
			log.Error("Integration run failed", zap.Error(err))
		}
		return 1
	}

	log.Info("🎉 Integration test completed",
		zap.String("run_id", manifest.RunID),
		zap.Int("images", len(manifest.Images)),
		zap.Int("ok", manifest.Count(entity.StatusOK)),
		zap.Int("masks", manifest.TotalMasks()),
		zap.String("results", cfg.Paths.ResultsDir))
	return 0
}
