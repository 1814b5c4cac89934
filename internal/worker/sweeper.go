package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"note-summary-service/internal/entity"
	"note-summary-service/internal/events"
	"note-summary-service/internal/retry"
)

const (
	DefaultStaleAfter    = 5 * time.Minute
	DefaultSweepSchedule = "@every 1m"
	sweepBatch           = 100
)

const staleReason = "processing timed out"

// Sweeper recovers notes left in processing by a worker that died between
// claim and its final write. Recovered notes go through the retry policy
// like any other failed attempt.
type Sweeper struct {
	store      NoteStore
	staleAfter time.Duration
	policy     retry.Policy
	publisher  events.Publisher
	metrics    *Metrics
	log        *slog.Logger
	now        func() time.Time
}

func NewSweeper(store NoteStore, staleAfter time.Duration, opts Options) *Sweeper {
	opts = opts.withDefaults()
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Sweeper{
		store:      store,
		staleAfter: staleAfter,
		policy:     opts.Policy,
		publisher:  opts.Publisher,
		metrics:    opts.Metrics,
		log:        opts.Logger.With("component", "sweeper"),
		now:        opts.Now,
	}
}

// Run sweeps on schedule (standard cron expression or descriptor such as
// "@every 1m") until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() {
		n, err := s.SweepOnce(ctx)
		if err != nil {
			s.log.Error("sweep failed", "error", err)
			return
		}
		if n > 0 {
			s.log.Info("recovered stale notes", "count", n)
		}
	}); err != nil {
		return fmt.Errorf("sweep schedule %q: %w", schedule, err)
	}

	s.log.Info("sweeper started", "schedule", schedule, "stale_after", s.staleAfter.String())
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("sweeper stopped")
	return nil
}

// SweepOnce recovers one page of stale notes and returns how many it moved.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.now()
	stale, err := s.store.ListStale(ctx, now.Add(-s.staleAfter), sweepBatch)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, n := range stale {
		decision := s.policy.Decide(n.Attempts)
		upd, outcome := entity.Fail(staleReason), OutcomeFailed
		if !decision.Fail {
			upd, outcome = entity.Requeue(now.Add(decision.Delay), staleReason), OutcomeRetried
		}

		// Pinned to the listed claim: a note finished or re-claimed since
		// ListStale is left alone.
		err := s.store.Update(ctx, n.ID, upd.WithAttempts(n.Attempts))
		switch {
		case errors.Is(err, entity.ErrConflict), errors.Is(err, entity.ErrNotFound):
			continue
		case err != nil:
			return recovered, err
		}

		recovered++
		s.metrics.Swept.WithLabelValues(string(outcome)).Inc()
		s.log.Warn("stale note recovered", "note_id", n.ID, "attempts", n.Attempts, "status", upd.To)

		evt := events.StatusChanged{NoteID: n.ID, Owner: n.Owner, Status: upd.To, Attempts: n.Attempts, At: now}
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.log.Warn("publish event failed", "note_id", n.ID, "subject", evt.Subject(), "error", err)
		}
	}
	return recovered, nil
}
