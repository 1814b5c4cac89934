// Package app wires configuration into running components. Both binaries
// build their process from these helpers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"note-summary-service/internal/config"
	"note-summary-service/internal/events"
	"note-summary-service/internal/repository/memory"
	"note-summary-service/internal/repository/postgresql"
	"note-summary-service/internal/repository/redisrepo"
	"note-summary-service/internal/retry"
	"note-summary-service/internal/service"
	"note-summary-service/internal/summarizer"
	"note-summary-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// Store is what the API and the worker need from a backend.
type Store interface {
	service.NoteRepository
	worker.NoteStore
}

func NewLogger(component string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("service", "note-summary-service", "component", component)
}

// OpenStore connects the backend selected by cfg.Store. The returned func
// releases it.
func OpenStore(ctx context.Context, cfg config.Config) (Store, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := postgresql.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("pg: %w", err)
		}
		if err := postgresql.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pg schema: %w", err)
		}
		return postgresql.NewNoteRepository(pool), pool.Close, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		return redisrepo.NewNoteRepository(rdb, cfg.RedisKeyPrefix), func() { _ = rdb.Close() }, nil

	case config.StoreMemory:
		return memory.NewNoteRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// OpenPublisher connects to NATS when configured. Events are best effort,
// so an unreachable server only disables them.
func OpenPublisher(cfg config.Config, name string, logger *slog.Logger) (events.Publisher, func()) {
	if cfg.NatsURL == "" {
		return events.Nop{}, func() {}
	}
	nc, err := events.Connect(cfg.NatsURL, name)
	if err != nil {
		logger.Warn("nats unavailable, events disabled", "nats_url", cfg.NatsURL, "error", err)
		return events.Nop{}, func() {}
	}
	return events.NewNATSPublisher(nc), func() { _ = nc.Drain() }
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

// StartWorker runs the polling loop and the stale sweeper on g until ctx
// is cancelled.
func StartWorker(ctx context.Context, g *errgroup.Group, cfg config.Config, store worker.NoteStore,
	pub events.Publisher, reg prometheus.Registerer, logger *slog.Logger) error {
	s, err := summarizer.New(cfg.Summarizer, logger)
	if err != nil {
		return err
	}

	opts := worker.Options{
		Policy:    retry.NewPolicy(cfg.MaxAttempts),
		Publisher: pub,
		Metrics:   worker.NewMetrics(reg),
		Logger:    logger,
	}
	w := worker.New(store, worker.NewProcessor(store, s, opts), worker.Config{
		PollInterval:       cfg.PollInterval,
		BatchSize:          cfg.BatchSize,
		StoreRetryInterval: cfg.StoreRetryInterval,
	})
	sw := worker.NewSweeper(store, cfg.StaleAfter, opts)

	g.Go(func() error { return w.Run(ctx) })
	g.Go(func() error { return sw.Run(ctx, cfg.SweepSchedule) })
	return nil
}

// Serve runs an HTTP server on g and shuts it down gracefully when ctx is
// cancelled.
func Serve(ctx context.Context, g *errgroup.Group, name, addr string, h http.Handler, logger *slog.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("server listening", "server", name, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
