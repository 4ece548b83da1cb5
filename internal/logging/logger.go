// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger for the given mode. Development mode logs at debug
// level with colored console output; production mode logs JSON at info level
// with stack traces suppressed. The logger is handed to component constructors
// explicitly; there is no process global and no lazy initialization.
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config
	switch {
	case development:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = true
	}
	cfg.EncoderConfig.TimeKey = "ts"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
