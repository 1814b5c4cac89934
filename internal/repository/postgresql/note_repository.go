package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"note-summary-service/internal/entity"
)

const noteColumns = `id, owner, text, summary, status, attempts, last_error, eligible_at, created_at, updated_at`

// NoteRepository stamps every timestamp from its own clock, never the
// database's NOW(). FetchEligible and ListStale take the caller's time, so
// both sides of each comparison come from the application clock.
type NoteRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewNoteRepository(pool *pgxpool.Pool) *NoteRepository {
	return &NoteRepository{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for eligible_at/created_at/updated_at.
func (r *NoteRepository) WithClock(now func() time.Time) *NoteRepository {
	r.now = now
	return r
}

func scanNote(row pgx.Row) (*entity.Note, error) {
	var (
		n          entity.Note
		statusText string
	)
	if err := row.Scan(
		&n.ID,
		&n.Owner,
		&n.Text,
		&n.Summary, // NULL => nil
		&statusText,
		&n.Attempts,
		&n.LastError, // NULL => nil
		&n.EligibleAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		return nil, err
	}
	n.Status = entity.NoteStatus(statusText)
	return &n, nil
}

func collectNotes(rows pgx.Rows) ([]*entity.Note, error) {
	defer rows.Close()

	var out []*entity.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NoteRepository) Create(ctx context.Context, owner, text string) (*entity.Note, error) {
	q := `
INSERT INTO notes (owner, text, status, eligible_at, created_at, updated_at)
VALUES ($1, $2, 'queued', $3, $3, $3)
RETURNING ` + noteColumns + `;`

	n, err := scanNote(r.pool.QueryRow(ctx, q, owner, text, r.now()))
	if err != nil {
		return nil, entity.NewStoreError("create note", err)
	}
	return n, nil
}

func (r *NoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Note, error) {
	q := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1;`

	n, err := scanNote(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrNotFound
		}
		return nil, entity.NewStoreError("get note", err)
	}
	return n, nil
}

func (r *NoteRepository) List(ctx context.Context, f entity.NoteFilter) ([]*entity.Note, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	argIdx := 1

	if f.Owner != "" {
		where += fmt.Sprintf(" AND owner = $%d", argIdx)
		args = append(args, f.Owner)
		argIdx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(f.Status))
		argIdx++
	}
	if f.Query != "" {
		where += fmt.Sprintf(" AND text ILIKE '%%' || $%d::text || '%%'", argIdx)
		args = append(args, f.Query)
		argIdx++
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notes`+where, args...).Scan(&total); err != nil {
		return nil, 0, entity.NewStoreError("count notes", err)
	}

	q := `SELECT ` + noteColumns + ` FROM notes` + where + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
		argIdx++
	}
	if f.Offset > 0 {
		q += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, f.Offset)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, entity.NewStoreError("list notes", err)
	}
	notes, err := collectNotes(rows)
	if err != nil {
		return nil, 0, entity.NewStoreError("list notes", err)
	}
	return notes, total, nil
}

// FetchEligible returns queued notes whose backoff has elapsed, oldest first.
// It does not lock anything; Claim decides ownership.
func (r *NoteRepository) FetchEligible(ctx context.Context, now time.Time, limit int) ([]*entity.Note, error) {
	q := `
SELECT ` + noteColumns + `
FROM notes
WHERE status = 'queued' AND eligible_at <= $1
ORDER BY created_at ASC
LIMIT $2;`

	rows, err := r.pool.Query(ctx, q, now, limit)
	if err != nil {
		return nil, entity.NewStoreError("fetch eligible", err)
	}
	notes, err := collectNotes(rows)
	if err != nil {
		return nil, entity.NewStoreError("fetch eligible", err)
	}
	return notes, nil
}

// Claim moves a queued note to processing and bumps attempts in one
// conditional statement. A note that is no longer queued is reported as
// not claimed, without error.
func (r *NoteRepository) Claim(ctx context.Context, id uuid.UUID) (int, bool, error) {
	const q = `
UPDATE notes
SET status = 'processing', attempts = attempts + 1, updated_at = $2
WHERE id = $1 AND status = 'queued'
RETURNING attempts;`

	var attempts int
	if err := r.pool.QueryRow(ctx, q, id, r.now()).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, entity.NewStoreError("claim", err)
	}
	return attempts, true, nil
}

func (r *NoteRepository) Update(ctx context.Context, id uuid.UUID, upd entity.Update) error {
	if err := upd.Validate(); err != nil {
		return err
	}

	var (
		summary    *string
		eligibleAt *time.Time
		lastError  *string
	)
	if upd.To == entity.StatusDone {
		summary = &upd.Summary
	}
	if upd.To == entity.StatusQueued {
		eligibleAt = &upd.EligibleAt
	}
	if upd.Error != "" {
		lastError = &upd.Error
	}

	// last_error is cleared on done and otherwise only overwritten when a
	// new reason is given.
	const q = `
UPDATE notes
SET status = $3::text,
    summary = $4,
    eligible_at = COALESCE($5, eligible_at),
    last_error = CASE WHEN $3::text = 'done' THEN NULL ELSE COALESCE($6, last_error) END,
    updated_at = $7
WHERE id = $1 AND status = $2::text AND ($8::int = 0 OR attempts = $8::int);`

	tag, err := r.pool.Exec(ctx, q, id, string(upd.From), string(upd.To), summary, eligibleAt, lastError,
		r.now(), upd.Attempts)
	if err != nil {
		return entity.NewStoreError("update note", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

// missReason tells a missing note from one whose status or claim moved on.
func (r *NoteRepository) missReason(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM notes WHERE id = $1);`, id).Scan(&exists); err != nil {
		return entity.NewStoreError("update note", err)
	}
	if !exists {
		return entity.ErrNotFound
	}
	return entity.ErrConflict
}

func (r *NoteRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]*entity.Note, error) {
	q := `
SELECT ` + noteColumns + `
FROM notes
WHERE status = 'processing' AND updated_at < $1
ORDER BY updated_at ASC
LIMIT $2;`

	rows, err := r.pool.Query(ctx, q, before, limit)
	if err != nil {
		return nil, entity.NewStoreError("list stale", err)
	}
	notes, err := collectNotes(rows)
	if err != nil {
		return nil, entity.NewStoreError("list stale", err)
	}
	return notes, nil
}
