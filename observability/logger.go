// Package observability builds the logger and Prometheus metrics shared by
// every dollargraph component.
package observability

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger returns a production logger for the "production" environment and a
// development logger otherwise. An empty level keeps the preset's default.
func NewLogger(environment, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("environment", environment)), nil
}
