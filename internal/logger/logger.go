// Package logger builds the zap logger used by all components.
package logger

import "go.uber.org/zap"

// New creates a production logger, or a development logger with debug level
// when debug is true.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
