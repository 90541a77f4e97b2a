// Package logger собирает slog.Logger в зависимости от окружения процесса.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Окружения, которые понимает New.
const (
	EnvDevelopment = "development"
	EnvLocal       = "local"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// New возвращает логгер: текстовый с уровнем debug для разработки,
// JSON с уровнем info для production, а в тестовом окружении логи отбрасываются.
func New(env string) *slog.Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter то же, что New, но пишет в w.
func NewWithWriter(env string, w io.Writer) *slog.Logger {
	switch env {
	case EnvDevelopment, EnvLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case EnvTest:
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// IsDevelopment сообщает, нужно ли отдавать подробности ошибок клиенту.
func IsDevelopment(env string) bool {
	return env == EnvDevelopment || env == EnvLocal
}
