package liveupdates

import (
	"context"
	"errors"
	"sync"

	"roomdesk/pkg/kafka"
	"roomdesk/pkg/logger"
	"roomdesk/pkg/model"
)

const (
	EventRoomStatus     = "room.status"
	StatusSchemaVersion = "1"
)

var ErrFeedRunning = errors.New("status feed already running")

// StatusSource is satisfied by the status refresher.
type StatusSource interface {
	Subscribe() (<-chan []model.RoomStatus, func())
}

// Sender is satisfied by Link.
type Sender interface {
	Send(ctx context.Context, msgs ...kafka.Message) error
}

// StatusFeed forwards every refreshed status set over a Sender, one
// message per room keyed by room ID. Sets produced while the link is down
// are dropped.
type StatusFeed struct {
	source StatusSource
	sender Sender
	origin string
	log    *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStatusFeed forwards status sets from source through sender, tagging
// each message with origin.
func NewStatusFeed(source StatusSource, sender Sender, origin string, log *logger.Logger) *StatusFeed {
	return &StatusFeed{source: source, sender: sender, origin: origin, log: log}
}

// Start subscribes to the source and forwards in the background.
func (f *StatusFeed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		return ErrFeedRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	updates, unsubscribe := f.source.Subscribe()
	f.cancel = cancel
	f.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case statuses, ok := <-updates:
				if !ok {
					return
				}
				f.forward(ctx, statuses)
			}
		}
	}(f.done)
	return nil
}

// Stop unsubscribes and waits for the forwarding goroutine.
func (f *StatusFeed) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (f *StatusFeed) forward(ctx context.Context, statuses []model.RoomStatus) {
	if len(statuses) == 0 {
		return
	}

	msgs := make([]kafka.Message, 0, len(statuses))
	for _, st := range statuses {
		msg, err := kafka.NewMessage().
			WithKey(st.RoomID).
			WithValue(st).
			WithEventType(EventRoomStatus).
			WithSchemaVersion(StatusSchemaVersion).
			WithSource(f.origin).
			WithTimestamp(st.ComputedAt).
			Build()
		if err != nil {
			f.log.Error("Failed to encode room status", "room_id", st.RoomID, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}

	err := f.sender.Send(ctx, msgs...)
	switch {
	case err == nil:
		f.log.Debug("Room statuses pushed", "rooms", len(msgs))
	case errors.Is(err, ErrNotConnected):
		f.log.Debug("Live link down, dropping status update", "rooms", len(msgs))
	default:
		f.log.Warn("Failed to push room statuses", "error", err)
	}
}
