package logger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Logger is a sugared zap logger that mirrors error-level entries to the
// configured error tracker, so a failed scoring run shows up in Sentry
// without every call site touching the tracker.
type Logger struct {
	*zap.SugaredLogger
	tracker errors.Tracker
}

var (
	mu     sync.Mutex
	global *Logger
)

// Init builds the process-wide logger. env selects the encoder: JSON in
// production, colored console everywhere else. An unknown level falls
// back to info rather than failing startup.
func Init(level, env string) error {
	zl, err := build(level, env)
	if err != nil {
		return err
	}

	mu.Lock()
	global = &Logger{SugaredLogger: zl.Sugar()}
	mu.Unlock()
	return nil
}

func build(level, env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

// Get returns the process logger. Before Init it hands out a development
// logger so early code paths and tests can log without setup.
func Get() *Logger {
	mu.Lock()
	defer mu.Unlock()

	if global == nil {
		zl, _ := zap.NewDevelopment()
		global = &Logger{SugaredLogger: zl.Sugar()}
	}
	return global
}

// SetErrorTracker attaches the tracker that receives error-level entries.
func SetErrorTracker(t errors.Tracker) {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		global.tracker = t
	}
}

// Sync flushes buffered entries. Called on shutdown.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		return global.SugaredLogger.Sync()
	}
	return nil
}

// With returns a child logger carrying extra key-value context. The child
// shares the parent's tracker.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(args...),
		tracker:       l.tracker,
	}
}

// Error logs at error level and forwards to the tracker.
func (l *Logger) Error(args ...interface{}) {
	l.SugaredLogger.Error(args...)
	l.capture(errors.Wrapf(errors.ErrInternal, "%v", args))
}

// Errorf logs a formatted error and forwards it to the tracker.
func (l *Logger) Errorf(template string, args ...interface{}) {
	l.SugaredLogger.Errorf(template, args...)
	l.capture(fmt.Errorf(template, args...))
}

func (l *Logger) capture(err error) {
	if l.tracker == nil {
		return
	}
	l.tracker.CaptureError(context.Background(), err, map[string]string{
		"component": "logger",
	})
}
