// Package logging builds the zap loggers used by every binary.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production JSON logger at the given level.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// MustNew is New for process entry points, falling back to a production
// logger at info when level does not parse.
func MustNew(level string) *zap.Logger {
	logger, err := New(level)
	if err == nil {
		return logger
	}
	logger, buildErr := zap.NewProduction()
	if buildErr != nil {
		panic(buildErr)
	}
	logger.Warn("invalid log level, using info", zap.String("level", level), zap.Error(err))
	return logger
}
