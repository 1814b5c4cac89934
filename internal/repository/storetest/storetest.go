// Package storetest holds the behaviour every note store must share.
// Store packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"note-summary-service/internal/entity"
)

type Store interface {
	Create(ctx context.Context, owner, text string) (*entity.Note, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Note, error)
	List(ctx context.Context, f entity.NoteFilter) ([]*entity.Note, int64, error)
	FetchEligible(ctx context.Context, now time.Time, limit int) ([]*entity.Note, error)
	Claim(ctx context.Context, id uuid.UUID) (int, bool, error)
	Update(ctx context.Context, id uuid.UUID, upd entity.Update) error
	ListStale(ctx context.Context, before time.Time, limit int) ([]*entity.Note, error)
}

// Run executes the contract against stores produced by newStore. Each
// subtest gets a fresh, empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("FetchEligibleFIFO", func(t *testing.T) { testFetchEligibleFIFO(t, newStore(t)) })
	t.Run("ClaimOnce", func(t *testing.T) { testClaimOnce(t, newStore(t)) })
	t.Run("ClaimRace", func(t *testing.T) { testClaimRace(t, newStore(t)) })
	t.Run("CompleteSetsSummary", func(t *testing.T) { testComplete(t, newStore(t)) })
	t.Run("RequeueBackoff", func(t *testing.T) { testRequeueBackoff(t, newStore(t)) })
	t.Run("FailIsTerminal", func(t *testing.T) { testFailIsTerminal(t, newStore(t)) })
	t.Run("RejectsInvalidTransitions", func(t *testing.T) { testRejects(t, newStore(t)) })
	t.Run("ListFilters", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("ListStale", func(t *testing.T) { testListStale(t, newStore(t)) })
	t.Run("UpdatePinnedToClaim", func(t *testing.T) { testUpdatePinnedToClaim(t, newStore(t)) })
}

func mustCreate(t *testing.T, s Store, owner, text string) *entity.Note {
	t.Helper()
	n, err := s.Create(context.Background(), owner, text)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return n
}

func mustGet(t *testing.T, s Store, id uuid.UUID) *entity.Note {
	t.Helper()
	n, err := s.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return n
}

func mustClaim(t *testing.T, s Store, id uuid.UUID) int {
	t.Helper()
	attempts, ok, err := s.Claim(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("claim %s: ok=%v err=%v", id, ok, err)
	}
	return attempts
}

func later() time.Time { return time.Now().Add(time.Second) }

func testCreateAndGet(t *testing.T, s Store) {
	n := mustCreate(t, s, "owner-1", "Some text.")
	if n.ID == uuid.Nil {
		t.Fatal("expected store-assigned id")
	}
	if n.Status != entity.StatusQueued || n.Attempts != 0 || n.Summary != nil {
		t.Fatalf("unexpected new note %+v", n)
	}

	got := mustGet(t, s, n.ID)
	if got.Owner != "owner-1" || got.Text != "Some text." {
		t.Fatalf("unexpected note %+v", got)
	}

	if _, err := s.GetByID(context.Background(), uuid.New()); !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testFetchEligibleFIFO(t *testing.T, s Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "o", "first")
	b := mustCreate(t, s, "o", "second")
	c := mustCreate(t, s, "o", "third")

	got, err := s.FetchEligible(ctx, later(), 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != b.ID {
		t.Fatalf("expected oldest two in order, got %v", ids(got))
	}

	mustClaim(t, s, a.ID)
	got, _ = s.FetchEligible(ctx, later(), 5)
	if len(got) != 2 || got[0].ID != b.ID || got[1].ID != c.ID {
		t.Fatalf("claimed note must not be fetched, got %v", ids(got))
	}
}

func testClaimOnce(t *testing.T, s Store) {
	ctx := context.Background()
	n := mustCreate(t, s, "o", "text")

	if attempts := mustClaim(t, s, n.ID); attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", attempts)
	}
	_, ok, err := s.Claim(ctx, n.ID)
	if err != nil || ok {
		t.Fatalf("second claim must be a silent miss, got ok=%v err=%v", ok, err)
	}
	if got := mustGet(t, s, n.ID); got.Status != entity.StatusProcessing || got.Attempts != 1 {
		t.Fatalf("unexpected note after claim %+v", got)
	}

	if _, ok, err := s.Claim(ctx, uuid.New()); ok || err != nil {
		t.Fatalf("claim of unknown note must miss, got ok=%v err=%v", ok, err)
	}
}

func testClaimRace(t *testing.T, s Store) {
	n := mustCreate(t, s, "o", "text")

	const racers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.Claim(context.Background(), n.ID)
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if got := mustGet(t, s, n.ID); got.Attempts != 1 {
		t.Fatalf("expected attempts=1 after race, got %d", got.Attempts)
	}
}

func testComplete(t *testing.T, s Store) {
	n := mustCreate(t, s, "o", "text")
	mustClaim(t, s, n.ID)

	if err := s.Update(context.Background(), n.ID, entity.Complete("the summary")); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got := mustGet(t, s, n.ID)
	if got.Status != entity.StatusDone || got.Summary == nil || *got.Summary != "the summary" {
		t.Fatalf("unexpected done note %+v", got)
	}
}

func testRequeueBackoff(t *testing.T, s Store) {
	ctx := context.Background()
	n := mustCreate(t, s, "o", "text")
	mustClaim(t, s, n.ID)

	eligible := time.Now().Add(time.Hour)
	if err := s.Update(ctx, n.ID, entity.Requeue(eligible, "boom")); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	got := mustGet(t, s, n.ID)
	if got.Status != entity.StatusQueued || got.Summary != nil {
		t.Fatalf("unexpected requeued note %+v", got)
	}
	if got.LastError == nil || *got.LastError != "boom" {
		t.Fatalf("expected last_error=boom, got %v", got.LastError)
	}

	fetched, _ := s.FetchEligible(ctx, later(), 10)
	if len(fetched) != 0 {
		t.Fatalf("note in backoff must not be fetched, got %v", ids(fetched))
	}
	fetched, _ = s.FetchEligible(ctx, eligible.Add(time.Second), 10)
	if len(fetched) != 1 || fetched[0].ID != n.ID {
		t.Fatalf("note past backoff must be fetched, got %v", ids(fetched))
	}

	if attempts := mustClaim(t, s, n.ID); attempts != 2 {
		t.Fatalf("expected attempts=2, got %d", attempts)
	}
}

func testFailIsTerminal(t *testing.T, s Store) {
	ctx := context.Background()
	n := mustCreate(t, s, "o", "text")
	mustClaim(t, s, n.ID)

	if err := s.Update(ctx, n.ID, entity.Fail("gave up")); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if _, ok, _ := s.Claim(ctx, n.ID); ok {
		t.Fatal("failed note must not be claimable")
	}
	err := s.Update(ctx, n.ID, entity.Update{From: entity.StatusFailed, To: entity.StatusQueued})
	if !errors.Is(err, entity.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if got := mustGet(t, s, n.ID); got.Status != entity.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func testRejects(t *testing.T, s Store) {
	ctx := context.Background()
	n := mustCreate(t, s, "o", "text")

	// processing -> done on a note that is still queued
	if err := s.Update(ctx, n.ID, entity.Complete("x")); !errors.Is(err, entity.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := s.Update(ctx, n.ID, entity.Update{From: entity.StatusQueued, To: entity.StatusDone, Summary: "x"}); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := s.Update(ctx, uuid.New(), entity.Fail("x")); !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := mustGet(t, s, n.ID); got.Status != entity.StatusQueued || got.Summary != nil {
		t.Fatalf("rejected update must not change the note, got %+v", got)
	}
}

func testList(t *testing.T, s Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "alice", "Quarterly report draft")
	b := mustCreate(t, s, "alice", "Grocery list")
	c := mustCreate(t, s, "bob", "Report for bob")
	mustClaim(t, s, b.ID)

	got, total, err := s.List(ctx, entity.NoteFilter{Owner: "alice", Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(got) != 2 || got[0].ID != b.ID || got[1].ID != a.ID {
		t.Fatalf("expected alice's notes newest first, got total=%d %v", total, ids(got))
	}

	got, total, _ = s.List(ctx, entity.NoteFilter{Status: entity.StatusQueued, Limit: 10})
	if total != 2 || len(got) != 2 || got[0].ID != c.ID || got[1].ID != a.ID {
		t.Fatalf("expected queued notes, got total=%d %v", total, ids(got))
	}

	got, total, _ = s.List(ctx, entity.NoteFilter{Query: "report", Limit: 10})
	if total != 2 || len(got) != 2 {
		t.Fatalf("expected case-insensitive text match, got total=%d %v", total, ids(got))
	}

	got, total, _ = s.List(ctx, entity.NoteFilter{Limit: 1, Offset: 1})
	if total != 3 || len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("expected second newest page, got total=%d %v", total, ids(got))
	}
}

func testListStale(t *testing.T, s Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "o", "a")
	mustCreate(t, s, "o", "b")
	mustClaim(t, s, a.ID)

	got, err := s.ListStale(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("fresh processing note must not be stale, got %v", ids(got))
	}

	got, _ = s.ListStale(ctx, time.Now().Add(time.Hour), 10)
	if len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("expected the processing note only, got %v", ids(got))
	}
}

// A write pinned to an earlier claim must not land on a later one.
func testUpdatePinnedToClaim(t *testing.T, s Store) {
	ctx := context.Background()
	n := mustCreate(t, s, "o", "text")
	first := mustClaim(t, s, n.ID)

	if err := s.Update(ctx, n.ID, entity.Requeue(time.Now(), "boom").WithAttempts(first)); err != nil {
		t.Fatalf("requeue pinned to current claim: %v", err)
	}
	second := mustClaim(t, s, n.ID)

	err := s.Update(ctx, n.ID, entity.Requeue(time.Now(), "stale").WithAttempts(first))
	if !errors.Is(err, entity.ErrConflict) {
		t.Fatalf("expected ErrConflict for an older claim, got %v", err)
	}
	got := mustGet(t, s, n.ID)
	if got.Status != entity.StatusProcessing || got.Attempts != second {
		t.Fatalf("rejected write must not change the note, got %+v", got)
	}
	if got.LastError == nil || *got.LastError != "boom" {
		t.Fatalf("rejected write must not touch last_error, got %v", got.LastError)
	}

	if err := s.Update(ctx, n.ID, entity.Complete("done").WithAttempts(second)); err != nil {
		t.Fatalf("complete pinned to current claim: %v", err)
	}
}

func ids(notes []*entity.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID.String()
	}
	return out
}
