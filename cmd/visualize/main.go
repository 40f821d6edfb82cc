package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"cv-pipeline/config"
	"cv-pipeline/internal/cli"
	"cv-pipeline/internal/container"
	"cv-pipeline/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := cli.Command{
		Name:    "visualize",
		Summary: "render 2x2 result grids from saved detections and masks",
		Details: []string{
			"  CVPIPE_PATHS_VISUALSDIR=...   Output directory for the grids",
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

	log.Info("🎨 Results visualization")

	c := container.New(cfg, log)
	written, err := c.VisualizeService.Run(ctx, cfg.Paths.InputDir, cfg.Paths.VisualsDir)
	if err != nil {
		log.Error("Visualization failed", zap.Error(err))
		return 1
	}

	log.Info("🎉 Visualization completed", zap.Int("files", len(written)), zap.String("dir", cfg.Paths.VisualsDir))
	return 0
}
