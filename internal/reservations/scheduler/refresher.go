// Package scheduler recomputes room statuses on a fixed cadence and on
// demand, and fans the results out to observers.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"roomdesk/internal/reservations/availability"
	"roomdesk/pkg/logger"
	"roomdesk/pkg/model"
)

var ErrRefresherRunning = errors.New("status refresher already running")

// SnapshotSource is satisfied by the reservation service.
type SnapshotSource interface {
	Snapshot(ctx context.Context, now time.Time) (*availability.Snapshot, error)
}

// Refresher keeps room statuses current. It only reads reservations.
type Refresher struct {
	source   SnapshotSource
	engine   *availability.Engine
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
	trigger  chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	latestMu sync.RWMutex
	latest   []model.RoomStatus
	computed bool

	subsMu sync.Mutex
	subs   map[int]chan []model.RoomStatus
	nextID int
}

// NewRefresher builds a refresher that derives statuses from source every
// interval. It does nothing until Start.
func NewRefresher(source SnapshotSource, engine *availability.Engine, log *logger.Logger, interval time.Duration) *Refresher {
	return &Refresher{
		source:   source,
		engine:   engine,
		log:      log,
		interval: interval,
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
		subs:     make(map[int]chan []model.RoomStatus),
	}
}

// Start computes statuses once right away, then on every tick and every
// Trigger until Stop or ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return ErrRefresherRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, r.done)
	r.log.Info("Status refresher started", "interval", r.interval)
	return nil
}

func (r *Refresher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.trigger:
		}
		r.Refresh(ctx)
	}
}

// Stop cancels the refresh loop and waits for it to exit. Calling Stop
// on a refresher that was never started does nothing.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.log.Info("Status refresher stopped")
}

// Trigger asks for a recompute as soon as possible. Requests made while
// one is already pending collapse into one.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Refresh computes and publishes statuses synchronously. On a snapshot
// error the previous statuses stay in place.
func (r *Refresher) Refresh(ctx context.Context) {
	now := r.now()
	snap, err := r.source.Snapshot(ctx, now)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Warn("Status refresh failed, keeping previous statuses", "error", err)
		}
		return
	}

	statuses := r.engine.DeriveAll(now, snap)
	r.latestMu.Lock()
	r.latest = statuses
	r.computed = true
	r.latestMu.Unlock()

	r.log.Debug("Room statuses refreshed", "rooms", len(statuses))
	r.publish(statuses)
}

// Latest returns the most recent status set, or nil before the first
// successful refresh.
func (r *Refresher) Latest() []model.RoomStatus {
	r.latestMu.RLock()
	defer r.latestMu.RUnlock()
	if !r.computed {
		return nil
	}
	return cloneStatuses(r.latest)
}

// Subscribe returns a channel that always holds the newest status set. A
// slow reader misses intermediate sets but never blocks the refresher.
func (r *Refresher) Subscribe() (<-chan []model.RoomStatus, func()) {
	ch := make(chan []model.RoomStatus, 1)

	r.subsMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	if latest := r.Latest(); latest != nil {
		offer(ch, latest)
	}
	r.subsMu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			r.subsMu.Lock()
			delete(r.subs, id)
			close(ch)
			r.subsMu.Unlock()
		})
	}
	return ch, unsubscribe
}

func (r *Refresher) publish(statuses []model.RoomStatus) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for _, ch := range r.subs {
		offer(ch, cloneStatuses(statuses))
	}
}

// cloneStatuses copies v, keeping an empty set non-nil.
func cloneStatuses(v []model.RoomStatus) []model.RoomStatus {
	out := make([]model.RoomStatus, len(v))
	copy(out, v)
	return out
}

// offer replaces whatever is buffered in ch. Callers hold subsMu, so the
// send after draining cannot block.
func offer(ch chan []model.RoomStatus, v []model.RoomStatus) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
