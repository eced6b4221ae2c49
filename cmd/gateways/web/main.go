package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	config "github.com/briefly/backend/config/web"
	"github.com/briefly/backend/gateways/web"
	"github.com/briefly/backend/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{
		Level:      slog.LevelDebug,
		Output:     os.Stderr,
		AddSource:  true,
		JSONFormat: false,
	})
	slog.SetDefault(log)

	// Local runs keep secrets in a .env file; absence is fine.
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", slog.String("error", err.Error()))
	}

	cfg := config.MustLoad()
	log.Info("configuration loaded",
		slog.Int("port", cfg.Port),
		slog.String("redirect_uri", cfg.Zoom.RedirectURI))

	rootCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("failed to run()", slog.String("error", err.Error()))
		return
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	srv, err := web.New(cfg, log)
	if err != nil {
		log.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	return srv.Start(ctx)
}
