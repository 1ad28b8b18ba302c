// ============================================================================
// bankprobe - Bank API integration harness
// ============================================================================
//
// Package:     logging
// Description: Factory functions for zap loggers with optional file rotation
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package logging

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	rootMu sync.RWMutex
	root   = NewLogger(DefaultLoggerConfig("bankprobe"))
)

// LoggerConfig holds configuration for creating loggers
type LoggerConfig struct {
	// Service name
	ServiceName string

	// Log level (debug, info, warn, error)
	Level string

	// Output format
	Format string // "json" or "text" (default: json)

	// Output defaults to stderr so reports on stdout stay clean
	Output io.Writer

	// File enables a rotated log file in addition to Output
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Additional outputs (besides Output and File)
	AdditionalOutputs []io.Writer
}

// DefaultLoggerConfig returns a default configuration
func DefaultLoggerConfig(serviceName string) LoggerConfig {
	return LoggerConfig{
		ServiceName: serviceName,
		Level:       "info",
		Format:      "json",
		MaxSizeMB:   50,
		MaxBackups:  3,
	}
}

// NewLogger creates a zap logger from cfg
func NewLogger(cfg LoggerConfig) *zap.Logger {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "text" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var output io.Writer = os.Stderr
	if cfg.Output != nil {
		output = cfg.Output
	}
	writers := []io.Writer{output}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		})
	}
	writers = append(writers, cfg.AdditionalOutputs...)

	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, w := range writers {
		syncers = append(syncers, zapcore.AddSync(w))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(syncers...), level)
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	if cfg.ServiceName != "" {
		logger = logger.With(zap.String("service", cfg.ServiceName))
	}
	return logger
}

// Configure replaces the process logger used by every Logger created with New
func Configure(cfg LoggerConfig) {
	SetRoot(NewLogger(cfg))
}

// SetRoot installs z as the process logger
func SetRoot(z *zap.Logger) {
	rootMu.Lock()
	defer rootMu.Unlock()
	root = z
}

// Root returns the process logger
func Root() *zap.Logger {
	rootMu.RLock()
	defer rootMu.RUnlock()
	return root
}

// Sync flushes the process logger
func Sync() error {
	return Root().Sync()
}

// parseLevel converts a string level to a zap level
func parseLevel(level string) zapcore.Level {
	switch level {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is a named logger taking key-value pairs
type Logger struct {
	base   *zap.Logger // nil means "follow Root()"
	name   string
	fields []zap.Field
	level  *Level
}

// New creates a named logger that follows the process logger, so it may be
// created at package init before Configure runs
func New(name string) *Logger {
	return &Logger{name: name}
}

// NewFromZap creates a named logger bound to z
func NewFromZap(z *zap.Logger, name string) *Logger {
	return &Logger{base: z, name: name}
}

// WithLevel returns a logger that drops entries below level
func (l *Logger) WithLevel(level Level) *Logger {
	clone := *l
	clone.level = &level
	return &clone
}

// With returns a logger that adds keysAndValues to every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	clone := *l
	clone.fields = append(append([]zap.Field{}, l.fields...), toFields(keysAndValues...)...)
	return &clone
}

// Zap exposes the underlying zap logger
func (l *Logger) Zap() *zap.Logger {
	base := l.base
	if base == nil {
		base = Root()
	}
	z := base.Named(l.name)
	if len(l.fields) > 0 {
		z = z.With(l.fields...)
	}
	if l.level != nil {
		z = z.WithOptions(zap.IncreaseLevel(l.level.zapLevel()))
	}
	return z
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.Zap().Debug(msg, toFields(keysAndValues...)...)
}

// Info logs an info message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.Zap().Info(msg, toFields(keysAndValues...)...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.Zap().Warn(msg, toFields(keysAndValues...)...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.Zap().Error(msg, toFields(keysAndValues...)...)
}

// toFields converts key-value pairs to zap fields. Non-string keys and a
// trailing orphan value are dropped.
func toFields(keysAndValues ...interface{}) []zap.Field {
	if len(keysAndValues) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
