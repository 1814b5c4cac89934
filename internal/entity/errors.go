package entity

import "errors"

var (
	ErrNotFound          = errors.New("note not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict means the note was no longer in the expected status when
	// the conditional write ran.
	ErrConflict = errors.New("note status changed concurrently")
)

// StoreError marks a failure to reach or talk to the backing store. Callers
// treat it as transient: the operation may succeed if retried later.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err, passing nil through.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func IsTransient(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
