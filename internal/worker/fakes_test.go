package worker_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"note-summary-service/internal/entity"
	"note-summary-service/internal/events"
	"note-summary-service/internal/repository/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type summarizeFunc func(ctx context.Context, text string) (string, error)

func (f summarizeFunc) Summarize(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

var errModelDown = errors.New("model down")

func failing() summarizeFunc {
	return func(context.Context, string) (string, error) { return "", errModelDown }
}

func echo() summarizeFunc {
	return func(_ context.Context, text string) (string, error) { return "sum: " + text, nil }
}

// flakyStore wraps the memory store and injects failures.
type flakyStore struct {
	*memory.NoteRepository

	mu          sync.Mutex
	fetchFails  int
	failDone    int
	conflictAll bool
	claimFails  map[uuid.UUID]bool
}

func (s *flakyStore) Claim(ctx context.Context, id uuid.UUID) (int, bool, error) {
	s.mu.Lock()
	fail := s.claimFails[id]
	s.mu.Unlock()
	if fail {
		return 0, false, entity.NewStoreError("claim", errors.New("i/o timeout"))
	}
	return s.NoteRepository.Claim(ctx, id)
}

func (s *flakyStore) FetchEligible(ctx context.Context, now time.Time, limit int) ([]*entity.Note, error) {
	s.mu.Lock()
	if s.fetchFails > 0 {
		s.fetchFails--
		s.mu.Unlock()
		return nil, entity.NewStoreError("fetch eligible", errors.New("connection refused"))
	}
	s.mu.Unlock()
	return s.NoteRepository.FetchEligible(ctx, now, limit)
}

func (s *flakyStore) Update(ctx context.Context, id uuid.UUID, upd entity.Update) error {
	s.mu.Lock()
	if s.conflictAll {
		s.mu.Unlock()
		return entity.ErrConflict
	}
	if upd.To == entity.StatusDone && s.failDone > 0 {
		s.failDone--
		s.mu.Unlock()
		return entity.NewStoreError("update", errors.New("connection reset"))
	}
	s.mu.Unlock()
	return s.NoteRepository.Update(ctx, id, upd)
}

// reclaimingStore lets another worker fail and re-claim every stale note
// right after ListStale returned it.
type reclaimingStore struct {
	*memory.NoteRepository
	now func() time.Time
}

func (s *reclaimingStore) ListStale(ctx context.Context, before time.Time, limit int) ([]*entity.Note, error) {
	stale, err := s.NoteRepository.ListStale(ctx, before, limit)
	if err != nil {
		return nil, err
	}
	for _, n := range stale {
		if err := s.NoteRepository.Update(ctx, n.ID, entity.Requeue(s.now(), "worker restarted")); err != nil {
			return nil, err
		}
		if _, _, err := s.NoteRepository.Claim(ctx, n.ID); err != nil {
			return nil, err
		}
	}
	return stale, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	evts []events.StatusChanged
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evts = append(p.evts, evt)
	return p.err
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.evts))
	for _, e := range p.evts {
		out = append(out, e.Subject())
	}
	return out
}
