package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/users-api/internal/app/mailer"
	"github.com/magabrotheeeer/users-api/internal/config"
	"github.com/magabrotheeeer/users-api/internal/lib/logger"
)

func main() {
	cfg := config.MustLoadMailer()
	log := logger.New(cfg.Env)

	log.Info("starting mailer", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := mailer.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize mailer", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error("mailer stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("mailer stopped gracefully")
}
