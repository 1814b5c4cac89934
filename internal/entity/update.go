package entity

import (
	"fmt"
	"time"
)

// Update is a single atomic state change of a claimed note. Stores apply it
// only when the note's current status equals From.
//
// queued -> processing is not expressible as an Update: it must go through
// the store's Claim so that attempts is incremented in the same write.
type Update struct {
	From       NoteStatus
	To         NoteStatus
	Summary    string
	EligibleAt time.Time
	Error      string
	// Attempts, when non-zero, additionally requires the note's attempts to
	// still equal it, pinning the write to one claim.
	Attempts int
}

func Complete(summary string) Update {
	return Update{From: StatusProcessing, To: StatusDone, Summary: summary}
}

func Requeue(eligibleAt time.Time, reason string) Update {
	return Update{From: StatusProcessing, To: StatusQueued, EligibleAt: eligibleAt, Error: reason}
}

func Fail(reason string) Update {
	return Update{From: StatusProcessing, To: StatusFailed, Error: reason}
}

// WithAttempts pins u to the claim that produced attempts.
func (u Update) WithAttempts(attempts int) Update {
	u.Attempts = attempts
	return u
}

// Validate checks the update against the transition table and the
// summary-iff-done invariant.
func (u Update) Validate() error {
	if !IsValidTransition(u.From, u.To) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, u.From, u.To)
	}
	if u.To == StatusProcessing {
		return fmt.Errorf("%w: %s -> %s requires claim", ErrInvalidTransition, u.From, u.To)
	}
	if u.To == StatusDone && u.Summary == "" {
		return fmt.Errorf("%w: done requires a summary", ErrInvalidTransition)
	}
	if u.Attempts < 0 {
		return fmt.Errorf("%w: negative attempts guard %d", ErrInvalidTransition, u.Attempts)
	}
	if u.To != StatusDone && u.Summary != "" {
		return fmt.Errorf("%w: summary only allowed on done", ErrInvalidTransition)
	}
	return nil
}
