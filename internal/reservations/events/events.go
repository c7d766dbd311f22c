// Package events announces reservation changes to other replicas.
package events

import (
	"context"
	"time"

	"roomdesk/pkg/model"
)

// Kind names a reservation lifecycle event.
type Kind string

const (
	Created   Kind = "reservation.created"
	Updated   Kind = "reservation.updated"
	Cancelled Kind = "reservation.cancelled"
)

const SchemaVersion = "1"

// Event is the payload published after a committed mutation.
type Event struct {
	Kind        Kind               `json:"kind"`
	Reservation *model.Reservation `json:"reservation"`
	Source      string             `json:"source"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// Publisher sends reservation events. Publish failures never undo the
// mutation.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher is used when Kafka is disabled.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, Event) error { return nil }

func (noopPublisher) Close() error { return nil }
