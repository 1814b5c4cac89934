// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"note-summary-service/internal/app"
	"note-summary-service/internal/config"
)

func main() {
	logger := app.NewLogger("worker")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	pub, closePub := app.OpenPublisher(cfg, "note-summary-worker", logger)
	defer closePub()

	reg := app.NewRegistry()
	g, gctx := errgroup.WithContext(ctx)

	if err := app.StartWorker(gctx, g, cfg, store, pub, reg, logger); err != nil {
		logger.Error("worker", "error", err)
		os.Exit(1)
	}
	app.Serve(gctx, g, "metrics", cfg.MetricsAddr, app.MetricsHandler(reg), logger)

	logger.Info("worker started", cfg.Redacted()...)
	if err := g.Wait(); err != nil {
		logger.Error("worker exited", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
