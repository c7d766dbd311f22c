package events

import (
	"context"
	"fmt"

	"roomdesk/pkg/kafka"
	"roomdesk/pkg/logger"
)

type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	producer MessagePublisher
	source   string
}

func NewKafkaPublisher(producer MessagePublisher, source string) Publisher {
	return &kafkaPublisher{producer: producer, source: source}
}

func (p *kafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.Reservation == nil {
		return fmt.Errorf("event %s has no reservation", e.Kind)
	}
	if e.Source == "" {
		e.Source = p.source
	}

	msg, err := kafka.NewMessage().
		WithKey(e.Reservation.RoomID).
		WithValue(e).
		WithEventType(string(e.Kind)).
		WithSource(e.Source).
		WithSchemaVersion(SchemaVersion).
		WithTimestamp(e.OccurredAt).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// Refresher is nudged when another replica changed reservations.
type Refresher interface {
	Trigger()
}

// NewSubscriberHandler returns a consumer handler that triggers a status
// refresh for events produced by other instances. Own events are ignored
// since the local write path already triggered one.
func NewSubscriberHandler(instanceID string, refresher Refresher, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if msg.GetSource() == instanceID {
			return nil
		}

		var e Event
		if err := msg.DecodeValue(&e); err != nil {
			return kafka.NewPermanentError("failed to decode reservation event", err)
		}
		switch e.Kind {
		case Created, Updated, Cancelled:
		default:
			log.Warn("Ignoring unknown reservation event", "event_type", msg.GetEventType())
			return nil
		}

		log.Debug("Reservation changed on another instance",
			"event_type", e.Kind,
			"source", msg.GetSource(),
			"room_id", msg.Key,
		)
		refresher.Trigger()
		return nil
	}
}
