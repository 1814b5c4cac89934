package entity

import (
	"errors"
	"testing"
	"time"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     NoteStatus
		to       NoteStatus
		expected bool
	}{
		{name: "Valid: Queued to Processing", from: StatusQueued, to: StatusProcessing, expected: true},
		{name: "Valid: Processing to Done", from: StatusProcessing, to: StatusDone, expected: true},
		{name: "Valid: Processing to Queued", from: StatusProcessing, to: StatusQueued, expected: true},
		{name: "Valid: Processing to Failed", from: StatusProcessing, to: StatusFailed, expected: true},
		{name: "Invalid: Queued to Done", from: StatusQueued, to: StatusDone, expected: false},
		{name: "Invalid: Queued to Failed", from: StatusQueued, to: StatusFailed, expected: false},
		{name: "Invalid: Done to Queued", from: StatusDone, to: StatusQueued, expected: false},
		{name: "Invalid: Failed to Queued", from: StatusFailed, to: StatusQueued, expected: false},
		{name: "Invalid: Failed to Processing", from: StatusFailed, to: StatusProcessing, expected: false},
		{name: "Invalid: Processing to Processing", from: StatusProcessing, to: StatusProcessing, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestFailedIsTerminal(t *testing.T) {
	for _, to := range AllStatuses {
		if IsValidTransition(StatusFailed, to) {
			t.Fatalf("failed must be terminal, found edge to %s", to)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, st := range AllStatuses {
		got, err := ParseStatus(st.String())
		if err != nil || got != st {
			t.Fatalf("ParseStatus(%q) = %q, %v", st, got, err)
		}
	}
	if _, err := ParseStatus("pending"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestUpdate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		upd     Update
		wantErr bool
	}{
		{name: "complete", upd: Complete("short summary")},
		{name: "requeue", upd: Requeue(time.Now(), "boom")},
		{name: "fail", upd: Fail("boom")},
		{name: "done without summary", upd: Complete(""), wantErr: true},
		{name: "summary on requeue", upd: Update{From: StatusProcessing, To: StatusQueued, Summary: "x"}, wantErr: true},
		{name: "claim via update", upd: Update{From: StatusQueued, To: StatusProcessing}, wantErr: true},
		{name: "from failed", upd: Update{From: StatusFailed, To: StatusQueued}, wantErr: true},
		{name: "queued to done", upd: Update{From: StatusQueued, To: StatusDone, Summary: "x"}, wantErr: true},
		{name: "pinned to claim", upd: Fail("boom").WithAttempts(2)},
		{name: "negative attempts guard", upd: Fail("boom").WithAttempts(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.upd.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
		})
	}
}

func TestStoreError(t *testing.T) {
	base := errors.New("connection refused")
	err := NewStoreError("fetch eligible", base)
	if !IsTransient(err) {
		t.Fatal("expected transient")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to unwrap")
	}
	if NewStoreError("x", nil) != nil {
		t.Fatal("nil error must pass through")
	}
	if IsTransient(ErrNotFound) {
		t.Fatal("ErrNotFound is not transient")
	}
}

func TestNote_Eligible(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	n := &Note{Status: StatusQueued, EligibleAt: now.Add(time.Second)}
	if n.Eligible(now) {
		t.Fatal("note in backoff must not be eligible")
	}
	n.EligibleAt = now
	if !n.Eligible(now) {
		t.Fatal("note at eligible_at must be eligible")
	}
	n.Status = StatusProcessing
	if n.Eligible(now) {
		t.Fatal("processing note must not be eligible")
	}
}
