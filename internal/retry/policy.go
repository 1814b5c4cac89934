// Package retry decides what happens to a note after a failed attempt.
// Decisions are pure functions of the attempt count.
package retry

import "time"

const (
	DefaultMaxAttempts = 3
	DefaultMaxDelay    = 60 * time.Second
)

type Decision struct {
	// Fail is true when the note must move to failed.
	Fail  bool
	Delay time.Duration
}

// Policy is capped exponential backoff without jitter:
// delay = min(MaxDelay, 2^attempts seconds).
type Policy struct {
	MaxAttempts int
	MaxDelay    time.Duration
}

func NewPolicy(maxAttempts int) Policy {
	return Policy{MaxAttempts: maxAttempts, MaxDelay: DefaultMaxDelay}
}

// Decide takes the post-claim attempt count.
func (p Policy) Decide(attempts int) Decision {
	if attempts >= p.MaxAttempts {
		return Decision{Fail: true}
	}
	return Decision{Delay: p.Delay(attempts)}
}

func (p Policy) Delay(attempts int) time.Duration {
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	if attempts < 0 {
		attempts = 0
	}
	// 2^6 already exceeds the default cap; avoid shifting into overflow.
	if attempts >= 32 {
		return maxDelay
	}
	d := time.Duration(1<<uint(attempts)) * time.Second
	if d > maxDelay {
		return maxDelay
	}
	return d
}
