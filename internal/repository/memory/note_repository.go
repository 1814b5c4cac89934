// Package memory is an in-process note store for tests and local runs.
// Safe for concurrent use; every operation holds one mutex, which makes
// claim and update atomic across goroutines of the same process.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"note-summary-service/internal/entity"
)

type NoteRepository struct {
	mu    sync.Mutex
	notes map[uuid.UUID]*record
	seq   int64
	now   func() time.Time
}

type record struct {
	note entity.Note
	seq  int64
}

func NewNoteRepository() *NoteRepository {
	return &NoteRepository{
		notes: make(map[uuid.UUID]*record),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for created_at/updated_at.
func (r *NoteRepository) WithClock(now func() time.Time) *NoteRepository {
	r.now = now
	return r
}

func copyNote(n *entity.Note) *entity.Note {
	cp := *n
	if n.Summary != nil {
		s := *n.Summary
		cp.Summary = &s
	}
	if n.LastError != nil {
		e := *n.LastError
		cp.LastError = &e
	}
	return &cp
}

func (r *NoteRepository) Create(_ context.Context, owner, text string) (*entity.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.seq++
	rec := &record{
		seq: r.seq,
		note: entity.Note{
			ID:         uuid.New(),
			Owner:      owner,
			Text:       text,
			Status:     entity.StatusQueued,
			EligibleAt: now,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
	r.notes[rec.note.ID] = rec
	return copyNote(&rec.note), nil
}

func (r *NoteRepository) GetByID(_ context.Context, id uuid.UUID) (*entity.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.notes[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return copyNote(&rec.note), nil
}

func (r *NoteRepository) sorted(desc bool) []*record {
	out := make([]*record, 0, len(r.notes))
	for _, rec := range r.notes {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, k int) bool {
		if desc {
			return out[i].seq > out[k].seq
		}
		return out[i].seq < out[k].seq
	})
	return out
}

func (r *NoteRepository) List(_ context.Context, f entity.NoteFilter) ([]*entity.Note, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := strings.ToLower(f.Query)
	var matched []*entity.Note
	for _, rec := range r.sorted(true) {
		n := &rec.note
		if f.Owner != "" && n.Owner != f.Owner {
			continue
		}
		if f.Status != "" && n.Status != f.Status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(n.Text), q) {
			continue
		}
		matched = append(matched, n)
	}

	total := int64(len(matched))
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[f.Offset:]
		}
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	out := make([]*entity.Note, len(matched))
	for i, n := range matched {
		out[i] = copyNote(n)
	}
	return out, total, nil
}

func (r *NoteRepository) FetchEligible(_ context.Context, now time.Time, limit int) ([]*entity.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Note
	for _, rec := range r.sorted(false) {
		if limit > 0 && len(out) >= limit {
			break
		}
		if rec.note.Eligible(now) {
			out = append(out, copyNote(&rec.note))
		}
	}
	return out, nil
}

func (r *NoteRepository) Claim(_ context.Context, id uuid.UUID) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.notes[id]
	if !ok || rec.note.Status != entity.StatusQueued {
		return 0, false, nil
	}
	rec.note.Status = entity.StatusProcessing
	rec.note.Attempts++
	rec.note.UpdatedAt = r.now()
	return rec.note.Attempts, true, nil
}

func (r *NoteRepository) Update(_ context.Context, id uuid.UUID, upd entity.Update) error {
	if err := upd.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.notes[id]
	if !ok {
		return entity.ErrNotFound
	}
	if rec.note.Status != upd.From {
		return entity.ErrConflict
	}
	if upd.Attempts != 0 && rec.note.Attempts != upd.Attempts {
		return entity.ErrConflict
	}

	n := &rec.note
	n.Status = upd.To
	switch upd.To {
	case entity.StatusDone:
		s := upd.Summary
		n.Summary = &s
		n.LastError = nil
	case entity.StatusQueued:
		n.EligibleAt = upd.EligibleAt
	}
	if upd.Error != "" {
		e := upd.Error
		n.LastError = &e
	}
	n.UpdatedAt = r.now()
	return nil
}

func (r *NoteRepository) ListStale(_ context.Context, before time.Time, limit int) ([]*entity.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Note
	for _, rec := range r.sorted(false) {
		if limit > 0 && len(out) >= limit {
			break
		}
		if rec.note.Status == entity.StatusProcessing && rec.note.UpdatedAt.Before(before) {
			out = append(out, copyNote(&rec.note))
		}
	}
	return out, nil
}
