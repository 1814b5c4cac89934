package app_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"note-summary-service/internal/app"
	"note-summary-service/internal/config"
	"note-summary-service/internal/entity"
	"note-summary-service/internal/events"
	"note-summary-service/internal/summarizer"
)

func memoryConfig() config.Config {
	return config.Config{
		Store:              config.StoreMemory,
		PollInterval:       10 * time.Millisecond,
		BatchSize:          5,
		MaxAttempts:        3,
		StoreRetryInterval: 10 * time.Millisecond,
		StaleAfter:         time.Minute,
		SweepSchedule:      "@every 1m",
		Summarizer:         summarizer.Config{Limits: summarizer.DefaultLimits()},
	}
}

func TestOpenStore(t *testing.T) {
	store, closeStore, err := app.OpenStore(context.Background(), memoryConfig())
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	closeStore()
	if store == nil {
		t.Fatalf("expected a store")
	}

	cfg := memoryConfig()
	cfg.Store = "mongo"
	if _, _, err := app.OpenStore(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown store")
	}
}

func TestOpenPublisher_DisabledWithoutURL(t *testing.T) {
	pub, closePub := app.OpenPublisher(memoryConfig(), "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer closePub()
	if _, ok := pub.(events.Nop); !ok {
		t.Fatalf("expected Nop publisher, got %T", pub)
	}
}

func TestMetricsHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	app.MetricsHandler(app.NewRegistry()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("expected runtime metrics in output")
	}
}

func TestStartWorker_SummarizesNote(t *testing.T) {
	cfg := memoryConfig()
	store, closeStore, err := app.OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer closeStore()

	n, err := store.Create(context.Background(), "u1", "Hello world.")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	reg := app.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := app.StartWorker(gctx, g, cfg, store, events.Nop{}, reg, logger); err != nil {
		t.Fatalf("start worker: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := store.GetByID(context.Background(), n.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status == entity.StatusDone {
			if got.Summary == nil || *got.Summary != "Hello world." {
				t.Fatalf("unexpected summary %v", got.Summary)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("note not summarized in time, status=%s", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := g.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func TestStartWorker_RejectsBadSummarizerConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Summarizer.Provider = "gpt"

	var g errgroup.Group
	err := app.StartWorker(context.Background(), &g, cfg, nil, events.Nop{}, app.NewRegistry(), slog.Default())
	if err == nil {
		t.Fatalf("expected error")
	}
}
