package worker

import (
	"errors"

	"github.com/google/uuid"
)

var errEmptySummary = errors.New("summarizer returned an empty summary")

// ProcessingError is a job-level failure: the summarizer failed, panicked or
// produced unusable output. It is always converted into a retry decision.
type ProcessingError struct {
	NoteID uuid.UUID
	Err    error
}

func (e *ProcessingError) Error() string {
	return "processing note " + e.NoteID.String() + ": " + e.Err.Error()
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
