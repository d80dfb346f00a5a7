// Package log is a thin package-level wrapper around zap so call sites stay
// short: log.Error("push failed", zap.Error(err)).
package log

import "go.uber.org/zap"

var logger = zap.Must(zap.NewProduction())

// Init replaces the package logger. Call once at startup.
func Init(l *zap.Logger) {
	logger = l
}

func Debug(msg string, fields ...zap.Field) {
	logger.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	logger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	logger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	logger.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	logger.Fatal(msg, fields...)
}

func Sync() {
	_ = logger.Sync()
}
