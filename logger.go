package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logger is the process-wide structured logger. It is replaced by initLogger
// at startup; tests run against the no-op default.
var logger = zap.NewNop()

// LogSettings controls log level and the optional rotating log file
type LogSettings struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// initLogger builds the global logger from settings. Output always goes to
// stderr and additionally to a rotating file when settings.File is set.
func initLogger(settings LogSettings, debug bool) error {
	level := zapcore.InfoLevel
	switch strings.ToLower(settings.Level) {
	case "debug":
		level = zapcore.DebugLevel
	case "info", "":
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		return fmt.Errorf("unsupported log level: %s", settings.Level)
	}
	if debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var output io.Writer = os.Stderr
	if settings.File != "" {
		if err := os.MkdirAll(filepath.Dir(settings.File), 0755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		output = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   settings.File,
			MaxSize:    orDefault(settings.MaxSizeMB, 16),
			MaxBackups: orDefault(settings.MaxBackups, 3),
			MaxAge:     orDefault(settings.MaxAgeDays, 14),
			Compress:   true,
		})
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(output),
		level,
	)
	logger = zap.New(core)
	return nil
}

func syncLogger() {
	_ = logger.Sync()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
