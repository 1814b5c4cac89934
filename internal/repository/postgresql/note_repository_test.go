package postgresql_test

import (
	"context"
	"os"
	"testing"
	"time"

	"note-summary-service/internal/repository/postgresql"
	"note-summary-service/internal/repository/storetest"
)

// Runs against a real database only when POSTGRES_TEST_DSN is set.
// The notes table is truncated before every subtest.
func TestNoteRepository_Contract(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	pool, err := postgresql.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("pg: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgresql.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("schema: %v", err)
	}

	storetest.Run(t, func(t *testing.T) storetest.Store {
		if _, err := pool.Exec(ctx, `TRUNCATE notes;`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return postgresql.NewNoteRepository(pool)
	})
}

// Timestamps come from the repository clock, not the database's NOW().
func TestNoteRepository_UsesRepositoryClock(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	pool, err := postgresql.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("pg: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := postgresql.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE notes;`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	at := time.Date(2001, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := postgresql.NewNoteRepository(pool).WithClock(func() time.Time { return at })

	n, err := repo.Create(ctx, "o", "text")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !n.CreatedAt.Equal(at) || !n.EligibleAt.Equal(at) {
		t.Fatalf("expected clock time, got created=%s eligible=%s", n.CreatedAt, n.EligibleAt)
	}

	if got, _ := repo.FetchEligible(ctx, at, 10); len(got) != 1 {
		t.Fatalf("note must be eligible at its own creation time, got %d", len(got))
	}
	if _, ok, err := repo.Claim(ctx, n.ID); err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}

	stale, err := repo.ListStale(ctx, at.Add(time.Second), 10)
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != n.ID {
		t.Fatalf("claim must be stamped with the repository clock, got %d stale", len(stale))
	}
}
