package worker

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultPollInterval       = 2 * time.Second
	DefaultBatchSize          = 5
	DefaultStoreRetryInterval = 5 * time.Second
)

type Config struct {
	PollInterval       time.Duration
	BatchSize          int
	StoreRetryInterval time.Duration
}

// Worker is one sequential polling loop. Several workers, in one process or
// many, may share a store: the atomic claim keeps them from double-processing.
type Worker struct {
	store     NoteStore
	processor *Processor
	cfg       Config
	metrics   *Metrics
	log       *slog.Logger
	now       func() time.Time
}

func New(store NoteStore, processor *Processor, cfg Config) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.StoreRetryInterval <= 0 {
		cfg.StoreRetryInterval = DefaultStoreRetryInterval
	}
	return &Worker{
		store:     store,
		processor: processor,
		cfg:       cfg,
		metrics:   processor.opts.Metrics,
		log:       processor.opts.Logger.With("component", "worker"),
		now:       processor.opts.Now,
	}
}

// Run polls until ctx is cancelled. Cancellation is observed between
// batches; a batch in flight is always finished first.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started",
		"poll_interval", w.cfg.PollInterval.String(),
		"batch_size", w.cfg.BatchSize,
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return nil
		case <-timer.C:
		}

		wait := w.cfg.PollInterval
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.metrics.LoopErrors.Inc()
			w.log.Error("poll failed", "error", err, "retry_in", w.cfg.StoreRetryInterval.String())
			wait = w.cfg.StoreRetryInterval
		}
		timer.Reset(wait)
	}
}

// RunOnce fetches and processes one batch. It returns the number of notes
// fetched. An error means the store could not be reached, either for the
// fetch or for every claim of the batch; nothing was lost.
//
// A failed claim skips only that note: it is still queued and comes back on
// a later poll.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	notes, err := w.store.FetchEligible(ctx, w.now(), w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(notes) == 0 {
		return 0, nil
	}

	// Writes for claimed notes must land even if shutdown starts mid-batch.
	batchCtx := context.WithoutCancel(ctx)

	var lastErr error
	failed := 0
	for _, n := range notes {
		if _, err := w.processor.Process(batchCtx, n); err != nil {
			failed++
			lastErr = err
			w.metrics.LoopErrors.Inc()
			w.log.Warn("claim failed", "note_id", n.ID, "error", err)
		}
	}
	if failed == len(notes) {
		return len(notes), lastErr
	}
	return len(notes), nil
}
