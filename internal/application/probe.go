package app

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"cv-pipeline/internal/domain/entity"
	"cv-pipeline/internal/domain/port"
)

const nvidiaSMI = "nvidia-smi"

var cudaVersionRe = regexp.MustCompile(`CUDA Version:\s*([0-9.]+)`)

// ProbeService собирает отчёт о среде выполнения.
type ProbeService struct {
	runner  port.CommandRunner
	backend port.TensorBackend
	timeout time.Duration
	log     *zap.Logger

	getenv     func(string) string
	executable func() (string, error)
	getwd      func() (string, error)
}

// NewProbeService создаёт сервис проверки окружения.
func NewProbeService(runner port.CommandRunner, backend port.TensorBackend, timeout time.Duration, log *zap.Logger) *ProbeService {
	return &ProbeService{
		runner:     runner,
		backend:    backend,
		timeout:    timeout,
		log:        log,
		getenv:     os.Getenv,
		executable: os.Executable,
		getwd:      os.Getwd,
	}
}

// Detect выполняет все проверки и возвращает готовый отчёт.
func (s *ProbeService) Detect(ctx context.Context) entity.ProbeReport {
	s.log.Info("🔍 Environment detection")

	venv := s.CheckVirtualEnvironment()
	smi := s.CheckNvidiaSMI(ctx)
	gpu := s.gpuCapabilities(ctx, smi)
	mock := s.TestMockData()

	s.log.Info("🎉 Environment detection completed")
	return entity.ProbeReport{
		VirtualEnvironment: venv,
		GPUCapabilities:    gpu,
		NvidiaSMI:          smi,
		MockDataTest:       mock,
		SystemInfo:         s.systemInfo(),
	}
}

// CheckVirtualEnvironment смотрит на VIRTUAL_ENV
func (s *ProbeService) CheckVirtualEnvironment() entity.VirtualEnvironment {
	exe, _ := s.executable()
	venv := entity.VirtualEnvironment{
		Executable: exe,
		GoVersion:  runtime.Version(),
	}

	if p := s.getenv("VIRTUAL_ENV"); p != "" {
		venv.IsVenv = true
		venv.VenvPath = p
		s.log.Info("✅ Running in virtual environment", zap.String("path", p))
	} else {
		s.log.Warn("⚠️  Not running in virtual environment")
	}
	return venv
}

// CheckGPU определяет режим вычислений по nvidia-smi
func (s *ProbeService) CheckGPU(ctx context.Context) entity.GPUCapabilities {
	return s.gpuCapabilities(ctx, s.CheckNvidiaSMI(ctx))
}

// CheckNvidiaSMI опрашивает nvidia-smi. Любая ошибка означает Available=false.
func (s *ProbeService) CheckNvidiaSMI(ctx context.Context) entity.NvidiaSMIReport {
	stdout, stderr, err := s.runner.Run(ctx, s.timeout, nvidiaSMI,
		"--query-gpu=name,memory.total,memory.used", "--format=csv,noheader,nounits")
	if err != nil {
		reason := strings.TrimSpace(stderr)
		if reason == "" {
			reason = err.Error()
		}
		s.log.Warn("⚠️  nvidia-smi not available", zap.String("reason", reason))
		return entity.NvidiaSMIReport{Error: reason}
	}

	gpus := ParseNvidiaSMI(stdout)
	s.log.Info("✅ NVIDIA GPU detected via nvidia-smi", zap.Int("gpus", len(gpus)))
	for i, g := range gpus {
		s.log.Info(fmt.Sprintf("   GPU %d: %s (%dMB total, %dMB used)", i, g.Name, g.MemoryTotalMB, g.MemoryUsedMB))
	}
	return entity.NvidiaSMIReport{Available: true, GPUs: gpus}
}

func (s *ProbeService) gpuCapabilities(ctx context.Context, smi entity.NvidiaSMIReport) entity.GPUCapabilities {
	if !smi.Available || len(smi.GPUs) == 0 {
		s.log.Warn("💻 CPU MODE: Using CPU for inference", zap.Int("cpu_threads", runtime.NumCPU()))
		return entity.GPUCapabilities{Mode: entity.ModeCPU, Error: smi.Error}
	}

	first := smi.GPUs[0]
	caps := entity.GPUCapabilities{
		CUDAAvailable: true,
		GPUCount:      len(smi.GPUs),
		GPUName:       first.Name,
		GPUMemoryGB:   float64(first.MemoryTotalMB) / 1024,
		Mode:          entity.ModeGPU,
	}

	if banner, _, err := s.runner.Run(ctx, s.timeout, nvidiaSMI); err == nil {
		caps.CUDAVersion = ParseCUDAVersion(banner)
	}

	s.log.Info("✅ CUDA available", zap.String("gpu", caps.GPUName))
	s.log.Info("   CUDA Version: " + caps.CUDAVersion)
	s.log.Info(fmt.Sprintf("   GPU Count: %d", caps.GPUCount))
	s.log.Info(fmt.Sprintf("   GPU Memory: %.1f GB", caps.GPUMemoryGB))
	s.log.Info("🚀 GPU MODE: Ready for GPU acceleration")
	return caps
}

// TestMockData прогоняет тензорные проверки на синтетических данных
func (s *ProbeService) TestMockData() entity.MockDataTest {
	res := entity.MockDataTest{Device: s.backend.Device(), Errors: []string{}}

	s.log.Info("🧪 Testing tensors with mock data...")
	if err := s.backend.TensorTest(); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Mock data test failed: %v", err))
		s.log.Error("❌ Tensor test failed", zap.Error(err))
		return res
	}
	res.TensorTest = true
	s.log.Info("✅ Basic tensor operations successful", zap.String("device", res.Device))

	s.log.Info("🧪 Testing with mock image data...")
	shape, err := s.backend.ImageTest()
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Mock data test failed: %v", err))
		s.log.Error("❌ Image test failed", zap.Error(err))
		return res
	}
	res.ImageTest = true
	res.ImageShape = shape
	s.log.Info("✅ Mock image processing successful", zap.Ints("shape", shape))
	return res
}

func (s *ProbeService) systemInfo() entity.SystemInfo {
	exe, _ := s.executable()
	cwd, _ := s.getwd()
	return entity.SystemInfo{
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		GoVersion:  runtime.Version(),
		Executable: exe,
		NumCPU:     runtime.NumCPU(),
		Cwd:        cwd,
	}
}

// PrintSummary выводит краткую сводку по отчёту
func (s *ProbeService) PrintSummary(r entity.ProbeReport) {
	s.log.Info("📊 Detection Summary:")
	s.log.Info("   Virtual Environment: " + yesNo(r.VirtualEnvironment.IsVenv, "✅ Yes", "❌ No"))
	s.log.Info("   GPU Mode: " + yesNo(r.GPUCapabilities.Mode == entity.ModeGPU, "🚀 GPU", "💻 CPU"))
	s.log.Info("   Mock Data Test: " + yesNo(r.MockDataTest.Passed(), "✅ Passed", "❌ Failed"))
	if r.GPUCapabilities.Mode == entity.ModeGPU {
		s.log.Info("   GPU: " + r.GPUCapabilities.GPUName)
		s.log.Info(fmt.Sprintf("   GPU Memory: %.1f GB", r.GPUCapabilities.GPUMemoryGB))
	} else {
		s.log.Info(fmt.Sprintf("   CPU Threads: %d", r.SystemInfo.NumCPU))
	}
}

// ParseNvidiaSMI разбирает вывод --format=csv,noheader,nounits.
// Строки с неверным числом полей или нечисловой памятью пропускаются.
func ParseNvidiaSMI(out string) []entity.GPUInfo {
	var gpus []entity.GPUInfo
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ", ")
		if len(parts) < 3 {
			continue
		}
		total, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		used, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			continue
		}
		gpus = append(gpus, entity.GPUInfo{Name: parts[0], MemoryTotalMB: total, MemoryUsedMB: used})
	}
	return gpus
}

// ParseCUDAVersion достаёт версию CUDA из шапки nvidia-smi
func ParseCUDAVersion(banner string) string {
	m := cudaVersionRe.FindStringSubmatch(banner)
	if m == nil {
		return ""
	}
	return m[1]
}

func yesNo(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
