package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"note-summary-service/internal/entity"
)

// NoteStore is the slice of the store the worker depends on.
// Implementations: postgresql, redisrepo and memory NoteRepository.
type NoteStore interface {
	FetchEligible(ctx context.Context, now time.Time, limit int) ([]*entity.Note, error)
	Claim(ctx context.Context, id uuid.UUID) (attempts int, claimed bool, err error)
	Update(ctx context.Context, id uuid.UUID, upd entity.Update) error
	ListStale(ctx context.Context, before time.Time, limit int) ([]*entity.Note, error)
}
