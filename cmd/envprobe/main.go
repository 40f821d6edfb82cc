package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

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
		Name:    "envprobe",
		Summary: "report virtualenv, GPU and tensor readiness",
		Details: []string{
			"  CVPIPE_PROBE_TIMEOUT=10s      nvidia-smi timeout",
			"",
			"Exit code is 0 when the mock tensor and image tests pass.",
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

	probe := container.New(cfg, log).ProbeService
	report := probe.Detect(context.Background())
	probe.PrintSummary(report)

	if cfg.Log.Debug {
		data, err := json.MarshalIndent(report, "", "  ")
		if err == nil {
			fmt.Println(string(data))
		}
	}
	return report.ExitCode()
}
