// Package observability builds the server's zap loggers.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/luciancaetano/tablerelay/internal/config"
)

// ServiceName is attached to every entry.
const ServiceName = "tablerelay"

// Component names passed to Component.
const (
	ComponentRelay     = "relay"
	ComponentTransport = "transport"
)

// NewLogger builds the root logger for cfg. "json" writes production JSON
// lines, "console" writes colored development output with stack traces on
// warnings. Sampling is off: connect and disconnect lines are what operators
// reconstruct sessions from.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	encoder, err := encoderConfig(cfg.Format)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		DisableStacktrace: cfg.Format == "json",
		Encoding:          cfg.Format,
		EncoderConfig:     encoder,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		InitialFields:     map[string]any{"service": ServiceName},
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

func encoderConfig(format string) (zapcore.EncoderConfig, error) {
	switch format {
	case "json":
		enc := zap.NewProductionEncoderConfig()
		enc.TimeKey = "time"
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		enc.EncodeDuration = zapcore.StringDurationEncoder
		return enc, nil
	case "console":
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return enc, nil
	default:
		return zapcore.EncoderConfig{}, fmt.Errorf("unknown log format %q", format)
	}
}

// Component returns the logger for one part of the server. Entries carry the
// name as the logger name, so "relay" and "transport" lines can be filtered
// apart.
func Component(logger *zap.Logger, name string) *zap.Logger {
	return logger.Named(name)
}
