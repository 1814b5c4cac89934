package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"note-summary-service/internal/entity"
	"note-summary-service/internal/events"
)

const (
	MaxTextChars     = 10000
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ErrValidation marks caller mistakes; the transport maps it to 400.
var ErrValidation = errors.New("validation failed")

// Port to the note store (postgresql, redisrepo or memory NoteRepository).
type NoteRepository interface {
	Create(ctx context.Context, owner, text string) (*entity.Note, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Note, error)
	List(ctx context.Context, f entity.NoteFilter) ([]*entity.Note, int64, error)
}

type NoteService struct {
	repo   NoteRepository
	events events.Publisher
	log    *slog.Logger
}

func NewNoteService(repo NoteRepository, pub events.Publisher, logger *slog.Logger) *NoteService {
	if pub == nil {
		pub = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NoteService{repo: repo, events: pub, log: logger}
}

type CreateNoteRequest struct {
	Owner string
	Text  string
}

// CreateNote stores a queued note. The worker picks it up on its next poll.
func (s *NoteService) CreateNote(ctx context.Context, req CreateNoteRequest) (*entity.Note, error) {
	if req.Owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}
	if utf8.RuneCountInString(req.Text) > MaxTextChars {
		return nil, fmt.Errorf("%w: text exceeds %d characters", ErrValidation, MaxTextChars)
	}

	n, err := s.repo.Create(ctx, req.Owner, req.Text)
	if err != nil {
		return nil, err
	}

	evt := events.StatusChanged{NoteID: n.ID, Owner: n.Owner, Status: n.Status, At: n.CreatedAt}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.log.Warn("publish event failed", "note_id", n.ID, "subject", evt.Subject(), "error", err)
	}
	return n, nil
}

// GetNote returns the note if owner may see it. Notes of other owners are
// reported as not found.
func (s *NoteService) GetNote(ctx context.Context, owner string, id uuid.UUID) (*entity.Note, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner != "" && n.Owner != owner {
		return nil, entity.ErrNotFound
	}
	return n, nil
}

type ListNotesRequest struct {
	Owner  string
	Status string
	Query  string
	Limit  int
	Offset int
}

// ListNotes returns one page, newest first, and the total number of
// matching notes.
func (s *NoteService) ListNotes(ctx context.Context, req ListNotesRequest) ([]*entity.Note, int64, error) {
	if req.Owner == "" {
		return nil, 0, fmt.Errorf("%w: owner is required", ErrValidation)
	}

	limit := req.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, MaxListLimit)
	}
	if req.Offset < 0 {
		return nil, 0, fmt.Errorf("%w: offset must be >= 0", ErrValidation)
	}

	f := entity.NoteFilter{
		Owner:  req.Owner,
		Query:  strings.TrimSpace(req.Query),
		Limit:  limit,
		Offset: req.Offset,
	}
	if req.Status != "" {
		st, err := entity.ParseStatus(req.Status)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		f.Status = st
	}

	return s.repo.List(ctx, f)
}
