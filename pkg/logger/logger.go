package logger

import (
	"log/slog"
	"os"
	"strings"
)

type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

type slogLogger struct {
	log *slog.Logger
}

// New создает логгер с указанным уровнем (debug, info, warn, error)
func New(level string) Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return &slogLogger{log: slog.New(handler)}
}

func (l *slogLogger) Debug(msg string, args ...interface{}) {
	l.log.Debug(msg, args...)
}

func (l *slogLogger) Info(msg string, args ...interface{}) {
	l.log.Info(msg, args...)
}

func (l *slogLogger) Warn(msg string, args ...interface{}) {
	l.log.Warn(msg, args...)
}

func (l *slogLogger) Error(msg string, args ...interface{}) {
	l.log.Error(msg, args...)
}

// Fatal логирует ошибку и завершает процесс
func (l *slogLogger) Fatal(msg string, args ...interface{}) {
	l.log.Error(msg, args...)
	os.Exit(1)
}
