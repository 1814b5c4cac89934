package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"note-summary-service/internal/entity"
	"note-summary-service/internal/events"
	"note-summary-service/internal/retry"
	"note-summary-service/internal/summarizer"
)

const tracerName = "note-summary-service/internal/worker"

// Outcome is what happened to one fetched note.
type Outcome string

const (
	OutcomeSkipped Outcome = "skipped" // claimed by someone else
	OutcomeDone    Outcome = "done"
	OutcomeRetried Outcome = "retried"
	OutcomeFailed  Outcome = "failed"
	// OutcomeStuck means the final write failed; the note stays in
	// processing until the sweeper recovers it.
	OutcomeStuck Outcome = "stuck"
)

type Options struct {
	Policy    retry.Policy
	Publisher events.Publisher
	Metrics   *Metrics
	Tracer    trace.Tracer
	Logger    *slog.Logger
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Policy.MaxAttempts <= 0 {
		o.Policy = retry.NewPolicy(retry.DefaultMaxAttempts)
	}
	if o.Publisher == nil {
		o.Publisher = events.Nop{}
	}
	if o.Metrics == nil {
		o.Metrics = NewMetrics(nil)
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracerName)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

type Processor struct {
	store      NoteStore
	summarizer summarizer.Summarizer
	opts       Options
	log        *slog.Logger
}

func NewProcessor(store NoteStore, s summarizer.Summarizer, opts Options) *Processor {
	opts = opts.withDefaults()
	return &Processor{
		store:      store,
		summarizer: s,
		opts:       opts,
		log:        opts.Logger.With("component", "processor"),
	}
}

// Process claims n and drives it to done, queued (with backoff) or failed.
// A returned error means the claim itself could not reach the store; every
// later failure is absorbed into the outcome.
func (p *Processor) Process(ctx context.Context, n *entity.Note) (Outcome, error) {
	start := time.Now()

	attempts, claimed, err := p.store.Claim(ctx, n.ID)
	if err != nil {
		return "", fmt.Errorf("claim %s: %w", n.ID, err)
	}
	if !claimed {
		p.log.Debug("note already claimed", "note_id", n.ID)
		p.opts.Metrics.Outcomes.WithLabelValues(string(OutcomeSkipped)).Inc()
		return OutcomeSkipped, nil
	}
	p.opts.Metrics.Claimed.Inc()
	p.publish(ctx, n, entity.StatusProcessing, attempts)

	ctx, span := p.opts.Tracer.Start(ctx, "worker.process", trace.WithAttributes(
		attribute.String("note.id", n.ID.String()),
		attribute.Int("note.attempts", attempts),
	))
	defer span.End()

	p.log.Info("note processing", "note_id", n.ID, "attempts", attempts)

	summary, err := p.summarize(ctx, n)
	if err == nil {
		err = p.store.Update(ctx, n.ID, entity.Complete(summary).WithAttempts(attempts))
		if err == nil {
			p.finish(ctx, span, n, OutcomeDone, attempts)
			p.log.Info("note done", "note_id", n.ID, "attempts", attempts,
				"duration_ms", time.Since(start).Milliseconds())
			return OutcomeDone, nil
		}
		if !entity.IsTransient(err) {
			// Conflict or invalid transition: someone else owns the note now.
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.log.Error("set done rejected", "note_id", n.ID, "error", err)
			p.opts.Metrics.Outcomes.WithLabelValues(string(OutcomeStuck)).Inc()
			return OutcomeStuck, nil
		}
		p.log.Warn("set done failed", "note_id", n.ID, "error", err)
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return p.applyPolicy(ctx, span, n, attempts, err, start), nil
}

func (p *Processor) applyPolicy(ctx context.Context, span trace.Span, n *entity.Note, attempts int, cause error, start time.Time) Outcome {
	decision := p.opts.Policy.Decide(attempts)

	upd, outcome := entity.Fail(cause.Error()), OutcomeFailed
	if !decision.Fail {
		upd, outcome = entity.Requeue(p.opts.Now().Add(decision.Delay), cause.Error()), OutcomeRetried
	}

	if err := p.store.Update(ctx, n.ID, upd.WithAttempts(attempts)); err != nil {
		p.log.Error("set result failed", "note_id", n.ID, "status", upd.To, "error", err)
		p.opts.Metrics.Outcomes.WithLabelValues(string(OutcomeStuck)).Inc()
		return OutcomeStuck
	}

	p.finish(ctx, span, n, outcome, attempts)
	p.log.Warn("note attempt failed",
		"note_id", n.ID,
		"attempts", attempts,
		"status", upd.To,
		"retry_in", decision.Delay.String(),
		"source", failureSource(cause),
		"duration_ms", time.Since(start).Milliseconds(),
		"error", cause,
	)
	return outcome
}

func (p *Processor) finish(ctx context.Context, span trace.Span, n *entity.Note, outcome Outcome, attempts int) {
	span.SetAttributes(attribute.String("note.outcome", string(outcome)))
	p.opts.Metrics.Outcomes.WithLabelValues(string(outcome)).Inc()

	status := entity.StatusDone
	switch outcome {
	case OutcomeRetried:
		status = entity.StatusQueued
	case OutcomeFailed:
		status = entity.StatusFailed
	}
	p.publish(ctx, n, status, attempts)
}

// summarize turns every summarizer misbehaviour, panics included, into a
// ProcessingError.
func (p *Processor) summarize(ctx context.Context, n *entity.Note) (summary string, err error) {
	start := time.Now()
	defer func() {
		p.opts.Metrics.SummarizeDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			summary = ""
			err = &ProcessingError{NoteID: n.ID, Err: fmt.Errorf("summarizer panic: %v", r)}
		}
	}()

	out, err := p.summarizer.Summarize(ctx, n.Text)
	if err != nil {
		return "", &ProcessingError{NoteID: n.ID, Err: err}
	}
	if strings.TrimSpace(out) == "" {
		return "", &ProcessingError{NoteID: n.ID, Err: errEmptySummary}
	}
	return out, nil
}

func (p *Processor) publish(ctx context.Context, n *entity.Note, status entity.NoteStatus, attempts int) {
	evt := events.StatusChanged{
		NoteID:   n.ID,
		Owner:    n.Owner,
		Status:   status,
		Attempts: attempts,
		At:       p.opts.Now(),
	}
	if err := p.opts.Publisher.Publish(ctx, evt); err != nil {
		p.log.Warn("publish event failed", "note_id", n.ID, "subject", evt.Subject(), "error", err)
	}
}

func failureSource(err error) string {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return "summarizer"
	}
	return "store"
}
