// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "note-summary-service/docs"
	"note-summary-service/internal/app"
	"note-summary-service/internal/config"
	"note-summary-service/internal/service"
	httptransport "note-summary-service/internal/transport/http"
)

// @title Note Summary Service API
// @version 1.0
// @description Queues notes for asynchronous summarization and reports their status.
// @BasePath /
func main() {
	logger := app.NewLogger("api")

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

	pub, closePub := app.OpenPublisher(cfg, "note-summary-api", logger)
	defer closePub()

	g, gctx := errgroup.WithContext(ctx)

	svc := service.NewNoteService(store, pub, logger)
	h := httptransport.NewHandler(svc, logger)
	app.Serve(gctx, g, "api", cfg.HTTPAddr, httptransport.Routes(h, logger), logger)

	// The memory store lives in this process, so the worker must too.
	if cfg.Store == config.StoreMemory {
		reg := app.NewRegistry()
		if err := app.StartWorker(gctx, g, cfg, store, pub, reg, logger); err != nil {
			logger.Error("worker", "error", err)
			os.Exit(1)
		}
		app.Serve(gctx, g, "metrics", cfg.MetricsAddr, app.MetricsHandler(reg), logger)
	}

	logger.Info("api started", cfg.Redacted()...)
	if err := g.Wait(); err != nil {
		logger.Error("api exited", "error", err)
		os.Exit(1)
	}
	logger.Info("api stopped")
}
