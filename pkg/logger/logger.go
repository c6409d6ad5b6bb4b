// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package logger provides the logging capability for skillhub, both for the
// CLI and for the registry daemon.
//
// It is a thin shim over a zap SugaredLogger singleton so call sites can log
// without threading a logger through every constructor.
package logger

import (
	"strconv"
	"sync/atomic"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/permamind/skillhub/pkg/env"
)

// singleton is the package-level logger created by Initialize.
// Accessed atomically to be safe for concurrent use across goroutines.
var singleton atomic.Pointer[zap.SugaredLogger]

func init() {
	// Set a default logger so callers that skip Initialize() don't panic.
	l, _ := zap.NewProduction()
	singleton.Store(l.Sugar())
}

func get() *zap.SugaredLogger {
	return singleton.Load()
}

// Get returns the underlying SugaredLogger for injection into structs.
func Get() *zap.SugaredLogger {
	return get()
}

// Set replaces the singleton logger. This is intended for tests that need to
// capture log output; production code should use Initialize instead.
func Set(l *zap.SugaredLogger) {
	singleton.Store(l)
}

// Debug logs a message at debug level using the singleton logger.
func Debug(msg string) { get().Debug(msg) }

// Debugf logs a formatted message at debug level using the singleton logger.
func Debugf(msg string, args ...any) { get().Debugf(msg, args...) }

// Debugw logs a message at debug level with additional key-value pairs.
func Debugw(msg string, keysAndValues ...any) { get().Debugw(msg, keysAndValues...) }

// Info logs a message at info level using the singleton logger.
func Info(msg string) { get().Info(msg) }

// Infof logs a formatted message at info level using the singleton logger.
func Infof(msg string, args ...any) { get().Infof(msg, args...) }

// Infow logs a message at info level with additional key-value pairs.
func Infow(msg string, keysAndValues ...any) { get().Infow(msg, keysAndValues...) }

// Warn logs a message at warning level using the singleton logger.
func Warn(msg string) { get().Warn(msg) }

// Warnf logs a formatted message at warning level using the singleton logger.
func Warnf(msg string, args ...any) { get().Warnf(msg, args...) }

// Warnw logs a message at warning level with additional key-value pairs.
func Warnw(msg string, keysAndValues ...any) { get().Warnw(msg, keysAndValues...) }

// Error logs a message at error level using the singleton logger.
func Error(msg string) { get().Error(msg) }

// Errorf logs a formatted message at error level using the singleton logger.
func Errorf(msg string, args ...any) { get().Errorf(msg, args...) }

// Errorw logs a message at error level with additional key-value pairs.
func Errorw(msg string, keysAndValues ...any) { get().Errorw(msg, keysAndValues...) }

// Panicf logs a formatted message at error level and panics the program.
func Panicf(msg string, args ...any) { get().Panicf(msg, args...) }

// Fatalf logs a formatted message at error level and exits the program.
func Fatalf(msg string, args ...any) { get().Fatalf(msg, args...) }

// Initialize creates and configures the appropriate logger.
// If the UNSTRUCTURED_LOGS env var is set to true, it will output plain text.
// Otherwise it will create a standard structured JSON logger.
func Initialize() {
	InitializeWithEnv(&env.OSReader{})
}

// InitializeWithEnv creates and configures the appropriate logger with a custom
// environment reader. This allows for dependency injection of environment
// variable access for testing.
func InitializeWithEnv(envReader env.Reader) {
	level := zapcore.InfoLevel
	if viper.GetBool("debug") {
		level = zapcore.DebugLevel
	}

	var cfg zap.Config
	if unstructuredLogsWithEnv(envReader) {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		// Building from a stock config only fails on an invalid sink; keep
		// the previous singleton rather than losing logging entirely.
		get().Errorf("failed to build logger: %v", err)
		return
	}
	singleton.Store(l.Sugar())
}

func unstructuredLogsWithEnv(envReader env.Reader) bool {
	unstructuredLogs, err := strconv.ParseBool(envReader.Getenv("UNSTRUCTURED_LOGS"))
	if err != nil {
		// at this point if the error is not nil, the env var wasn't set, or is ""
		// which means we just default to outputting unstructured logs.
		return true
	}
	return unstructuredLogs
}
