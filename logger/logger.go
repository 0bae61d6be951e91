package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger *zap.SugaredLogger
	mu     sync.Mutex
)

// Init initializes the global structured logger. Production mode emits JSON,
// anything else uses zap's human readable development encoder.
func Init(env string) {
	mu.Lock()
	defer mu.Unlock()

	var (
		base *zap.Logger
		err  error
	)
	if env == "production" {
		base, err = zap.NewProduction()
	} else {
		base, err = zap.NewDevelopment()
	}
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	logger = base.Sugar()
}

// Set replaces the global logger, used by tests to capture output.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l.Sugar()
}

// L returns the global logger instance
func L() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return logger
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync()
}

// Info is a shorthand for L().Infow
func Info(msg string, args ...any) {
	L().Infow(msg, args...)
}

// Error is a shorthand for L().Errorw
func Error(msg string, args ...any) {
	L().Errorw(msg, args...)
}

// Debug is a shorthand for L().Debugw
func Debug(msg string, args ...any) {
	L().Debugw(msg, args...)
}

// Warn is a shorthand for L().Warnw
func Warn(msg string, args ...any) {
	L().Warnw(msg, args...)
}
