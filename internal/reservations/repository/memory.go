package repository

import (
	"context"
	"strings"
	"sync"

	reserrors "roomdesk/internal/reservations/errors"
	"roomdesk/pkg/model"
)

// memoryReservationRepository keeps reservations in process. Every value
// handed in or out is copied so callers never share state with the store.
type memoryReservationRepository struct {
	mu   sync.RWMutex
	byID map[string]*model.Reservation
}

func NewMemoryReservationRepository() ReservationRepository {
	return &memoryReservationRepository{
		byID: make(map[string]*model.Reservation),
	}
}

func (r *memoryReservationRepository) Create(_ context.Context, res *model.Reservation) error {
	if strings.TrimSpace(res.ID) == "" {
		return reserrors.ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[res.ID]; ok {
		return reserrors.ErrAlreadyExists
	}
	r.byID[res.ID] = res.Clone()
	return nil
}

func (r *memoryReservationRepository) Update(_ context.Context, res *model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[res.ID]
	if !ok || cur.RoomID != res.RoomID {
		return reserrors.ErrNotFound
	}
	r.byID[res.ID] = res.Clone()
	return nil
}

func (r *memoryReservationRepository) Delete(_ context.Context, roomID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[id]
	if !ok || cur.RoomID != roomID {
		return reserrors.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memoryReservationRepository) FindByID(_ context.Context, roomID, id string) (*model.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cur, ok := r.byID[id]
	if !ok || cur.RoomID != roomID {
		return nil, reserrors.ErrNotFound
	}
	return cur.Clone(), nil
}

func (r *memoryReservationRepository) ListByRoom(_ context.Context, roomID, date string) ([]*model.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Reservation, 0)
	for _, res := range r.byID {
		if res.RoomID != roomID || (date != "" && res.Date != date) {
			continue
		}
		out = append(out, res.Clone())
	}
	sortReservations(out)
	return out, nil
}

func (r *memoryReservationRepository) ListByDate(_ context.Context, date string) (map[string][]*model.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*model.Reservation, 0)
	for _, res := range r.byID {
		if res.Date == date {
			all = append(all, res.Clone())
		}
	}
	sortReservations(all)
	return groupByRoom(all), nil
}

// ExecuteTransaction runs fn directly. Writers are already serialized by
// the service, and each call above is atomic on its own.
func (r *memoryReservationRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *memoryReservationRepository) Ping(context.Context) error {
	return nil
}
