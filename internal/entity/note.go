package entity

import (
	"time"

	"github.com/google/uuid"
)

type Note struct {
	ID         uuid.UUID  `json:"id"`
	Owner      string     `json:"owner"`
	Text       string     `json:"text"`
	Summary    *string    `json:"summary,omitempty"`
	Status     NoteStatus `json:"status"`
	Attempts   int        `json:"attempts"`
	LastError  *string    `json:"last_error,omitempty"`
	EligibleAt time.Time  `json:"eligible_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Eligible reports whether a queued note may be claimed at now.
func (n *Note) Eligible(now time.Time) bool {
	return n.Status == StatusQueued && !n.EligibleAt.After(now)
}

// NoteFilter narrows List results. Zero values mean "any".
type NoteFilter struct {
	Owner  string
	Status NoteStatus
	Query  string
	Limit  int
	Offset int
}
