package entity

import "fmt"

type NoteStatus string

const (
	StatusQueued     NoteStatus = "queued"
	StatusProcessing NoteStatus = "processing"
	StatusDone       NoteStatus = "done"
	StatusFailed     NoteStatus = "failed"
)

func (s NoteStatus) String() string {
	return string(s)
}

var AllStatuses = []NoteStatus{
	StatusQueued,
	StatusProcessing,
	StatusDone,
	StatusFailed,
}

func ParseStatus(s string) (NoteStatus, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

type Transition struct {
	From NoteStatus
	To   NoteStatus
}

// ValidTransitions is the complete lifecycle. failed has no outgoing edge.
var ValidTransitions = []Transition{
	{From: StatusQueued, To: StatusProcessing},
	{From: StatusProcessing, To: StatusDone},
	{From: StatusProcessing, To: StatusQueued},
	{From: StatusProcessing, To: StatusFailed},
}

func IsValidTransition(from, to NoteStatus) bool {
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}
