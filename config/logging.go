package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelNone disables logger.
const LevelNone = "none"

type (
	LoggerConfig struct {
		Level       string `yaml:"level" validate:"required,oneof=none debug info warn error"`
		Destination string `yaml:"destination,omitempty"`
		Mode        string `yaml:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
	}

	LoggingConfig struct {
		Console LoggerConfig `yaml:"console"`
		File    LoggerConfig `yaml:"file"`
	}
)

// Prepare builds logger out of configured cores. When debug is set console
// logs everything.
func (conf *LoggingConfig) Prepare(debug bool) (*zap.Logger, error) {
	var cores []zapcore.Core

	consoleLevel := conf.Console.Level
	if debug {
		consoleLevel = "debug"
	}
	if consoleLevel != LevelNone {
		level, err := zapcore.ParseLevel(consoleLevel)
		if err != nil {
			return nil, fmt.Errorf("bad console log level: %w", err)
		}
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.Lock(os.Stderr), level))
	}

	if conf.File.Level != LevelNone {
		level, err := zapcore.ParseLevel(conf.File.Level)
		if err != nil {
			return nil, fmt.Errorf("bad file log level: %w", err)
		}
		flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
		if conf.File.Mode == "overwrite" {
			flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		}
		f, err := os.OpenFile(conf.File.Destination, flags, 0644)
		if err != nil {
			return nil, fmt.Errorf("unable to open log file: %w", err)
		}
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(ec), zapcore.Lock(f), level))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
