package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New создаёт цветной консольный логгер: info в stdout, warn/error в stderr.
func New(debug bool) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encCfg.EncodeCaller = nil
	encoder := zapcore.NewConsoleEncoder(encCfg)

	lowLevel := zap.LevelEnablerFunc(func(level zapcore.Level) bool {
		if level == zapcore.DebugLevel {
			return debug
		}
		return level == zapcore.InfoLevel
	})
	highLevel := zap.LevelEnablerFunc(func(level zapcore.Level) bool {
		return level >= zapcore.WarnLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), lowLevel),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), highLevel),
	)
	return zap.New(core)
}
