package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	envPrefix      = "CVPIPE_"
	envConfigFile  = "CVPIPE_CONFIG"
	defaultCfgFile = "config.yaml"
)

// PathsConfig пути к моделям, входным и выходным данным
type PathsConfig struct {
	DetectorAModel string `koanf:"detectoramodel"`
	DetectorBModel string `koanf:"detectorbmodel"`
	SegmenterModel string `koanf:"segmentermodel"`
	InputDir       string `koanf:"inputdir"`
	ResultsDir     string `koanf:"resultsdir"`
	VisualsDir     string `koanf:"visualsdir"`
}

// InferenceConfig параметры доступа к моделям
type InferenceConfig struct {
	Backend       string        `koanf:"backend"` // remote | onnx
	URL           string        `koanf:"url"`
	Timeout       time.Duration `koanf:"timeout"`
	ConfThreshold float64       `koanf:"confthreshold"`
	NMSThreshold  float64       `koanf:"nmsthreshold"`
	InputSize     int           `koanf:"inputsize"`
	DetectorA     string        `koanf:"detectora"`
	DetectorB     string        `koanf:"detectorb"`
	Segmenter     string        `koanf:"segmenter"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Debug bool `koanf:"debug"`
}

// TelegramConfig настройки уведомлений; пустой токен отключает их
type TelegramConfig struct {
	Token  string `koanf:"token"`
	ChatID int64  `koanf:"chatid"`
}

// ProbeConfig настройки проверки окружения
type ProbeConfig struct {
	Timeout time.Duration `koanf:"timeout"`
	Seed    uint64        `koanf:"seed"` // зерно генератора синтетических тензоров
}

// RunConfig режим прогона
type RunConfig struct {
	DryRun bool `koanf:"dryrun"` // артефакты держатся в памяти, на диск ничего не пишется
}

type Config struct {
	Paths     PathsConfig     `koanf:"paths"`
	Inference InferenceConfig `koanf:"inference"`
	Log       LogConfig       `koanf:"log"`
	Telegram  TelegramConfig  `koanf:"telegram"`
	Probe     ProbeConfig     `koanf:"probe"`
	Run       RunConfig       `koanf:"run"`
}

// Defaults значения по умолчанию, совпадающие с раскладкой каталога data/
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"paths.detectoramodel":    "data/models/yolo/active/yolo11m.pt",
		"paths.detectorbmodel":    "data/models/trained/best.pt",
		"paths.segmentermodel":    "data/models/sam/active/sam2_b.pt",
		"paths.inputdir":          "data/input/test_images",
		"paths.resultsdir":        "data/output/integration_results",
		"paths.visualsdir":        "data/output/visualizations",
		"inference.backend":       "remote",
		"inference.url":           "http://127.0.0.1:8500",
		"inference.timeout":       "0s",
		"inference.confthreshold": 0.25,
		"inference.nmsthreshold":  0.45,
		"inference.inputsize":     640,
		"inference.detectora":     "yolo11m",
		"inference.detectorb":     "best_pt",
		"inference.segmenter":     "sam2_b",
		"log.debug":               false,
		"telegram.token":          "",
		"telegram.chatid":         0,
		"probe.timeout":           "10s",
		"probe.seed":              42,
		"run.dryrun":              false,
	}
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	cfgFile := os.Getenv(envConfigFile)
	if cfgFile == "" {
		cfgFile = defaultCfgFile
	}
	if _, err := os.Stat(cfgFile); err == nil {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", cfgFile, err)
		}
	} else if os.Getenv(envConfigFile) != "" {
		return nil, fmt.Errorf("config file %s: %w", cfgFile, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey превращает CVPIPE_PATHS_INPUTDIR в paths.inputdir
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.Inference.Backend {
	case "remote", "onnx":
	default:
		return fmt.Errorf("unknown inference backend %q", c.Inference.Backend)
	}
	if c.Inference.Backend == "remote" && c.Inference.URL == "" {
		return fmt.Errorf("inference url is required for remote backend")
	}
	if c.Inference.ConfThreshold < 0 || c.Inference.ConfThreshold > 1 {
		return fmt.Errorf("confidence threshold %.2f out of range", c.Inference.ConfThreshold)
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe timeout must be positive")
	}
	return nil
}
