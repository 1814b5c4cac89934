// Package events announces note status changes to interested parties.
// Publishing is best effort: a lost event never affects the note itself.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"note-summary-service/internal/entity"
)

const SubjectPrefix = "notes."

type StatusChanged struct {
	NoteID   uuid.UUID         `json:"note_id"`
	Owner    string            `json:"owner"`
	Status   entity.NoteStatus `json:"status"`
	Attempts int               `json:"attempts"`
	At       time.Time         `json:"at"`
}

// Subject is the NATS subject for an event, e.g. "notes.done".
func (e StatusChanged) Subject() string {
	return SubjectPrefix + string(e.Status)
}

type Publisher interface {
	Publish(ctx context.Context, evt StatusChanged) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, StatusChanged) error { return nil }

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subj string, data []byte) error
}

type NATSPublisher struct {
	nc conn
}

func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

func (p *NATSPublisher) Publish(_ context.Context, evt StatusChanged) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.nc.Publish(evt.Subject(), data)
}

// Connect dials NATS with reconnects enabled for the lifetime of the process.
func Connect(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
