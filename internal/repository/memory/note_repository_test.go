package memory_test

import (
	"context"
	"testing"
	"time"

	"note-summary-service/internal/entity"
	"note-summary-service/internal/repository/memory"
	"note-summary-service/internal/repository/storetest"
)

func TestNoteRepository_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		return memory.NewNoteRepository()
	})
}

func TestNoteRepository_ReturnsCopies(t *testing.T) {
	repo := memory.NewNoteRepository()
	n, _ := repo.Create(context.Background(), "o", "text")
	n.Status = entity.StatusDone

	got, _ := repo.GetByID(context.Background(), n.ID)
	if got.Status != entity.StatusQueued {
		t.Fatalf("caller mutation leaked into the store: %s", got.Status)
	}
}

func TestNoteRepository_WithClock(t *testing.T) {
	at := time.Date(2025, 9, 13, 10, 0, 0, 0, time.UTC)
	repo := memory.NewNoteRepository().WithClock(func() time.Time { return at })

	n, _ := repo.Create(context.Background(), "o", "text")
	if !n.CreatedAt.Equal(at) || !n.EligibleAt.Equal(at) {
		t.Fatalf("expected clock time, got created=%s eligible=%s", n.CreatedAt, n.EligibleAt)
	}
}
