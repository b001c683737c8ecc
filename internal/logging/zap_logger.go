package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapConfig selects the zap encoder and output for NewZapLogger.
type ZapConfig struct {
	Verbose     bool
	Encoding    string   // json or console
	OutputPaths []string // defaults to stderr
	Fields      map[string]string
}

// ZapLogger adapts a *zap.Logger to the pgdal.Logger interface.
// Verbose maps to debug level.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// NewZapLogger builds a structured logger. Fields are attached to every entry.
func NewZapLogger(cfg ZapConfig) (*ZapLogger, error) {
	encoding := strings.ToLower(cfg.Encoding)
	if encoding == "" {
		encoding = "console"
	}
	if encoding != "json" && encoding != "console" {
		return nil, fmt.Errorf("unsupported log format %q (expected json or console)", cfg.Encoding)
	}

	level := zapcore.InfoLevel
	if cfg.Verbose {
		level = zapcore.DebugLevel
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}

	zapCfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: encoding,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			MessageKey:     "message",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return NewZapLoggerFrom(logger, cfg.Fields), nil
}

// NewZapLoggerFrom wraps an existing zap logger.
func NewZapLoggerFrom(logger *zap.Logger, fields map[string]string) *ZapLogger {
	for k, v := range fields {
		logger = logger.With(zap.String(k, v))
	}
	return &ZapLogger{logger: logger.Sugar()}
}

func (l *ZapLogger) Verbose(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *ZapLogger) Info(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l *ZapLogger) Error(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// Sync flushes buffered entries. Call it before the process exits.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
