package util

import (
	"fmt"

	"checkout-builder/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// NewLogger builds the logger described by the server config: JSON with ISO8601
// timestamps in production, colored console output elsewhere. Every entry carries
// the service name and environment.
func NewLogger(cfg config.ServerConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Env == "production" {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if cfg.LogLevel != "" {
		lvl, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}

	return zc.Build(zap.Fields(
		zap.String("service", serviceName),
		zap.String("env", cfg.Env),
	))
}

// InitLogger installs the global logger
func InitLogger(cfg config.ServerConfig) error {
	l, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	logger = l
	zap.ReplaceGlobals(logger)
	return nil
}

// GetLogger returns the global logger, a development logger before InitLogger
func GetLogger() *zap.Logger {
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}

// SyncLogger flushes any buffered log entries
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
