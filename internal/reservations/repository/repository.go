package repository

import (
	"context"
	"sort"

	"roomdesk/pkg/model"
)

type ReservationRepository interface {
	Create(ctx context.Context, r *model.Reservation) error
	Update(ctx context.Context, r *model.Reservation) error
	Delete(ctx context.Context, roomID, id string) error
	FindByID(ctx context.Context, roomID, id string) (*model.Reservation, error)
	// ListByRoom returns the room's reservations on date, or on every date
	// when date is empty, ordered by date, start time and ID.
	ListByRoom(ctx context.Context, roomID, date string) ([]*model.Reservation, error)
	// ListByDate groups every reservation on date by room ID.
	ListByDate(ctx context.Context, date string) (map[string][]*model.Reservation, error)
	ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
}

func sortReservations(list []*model.Reservation) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}

func groupByRoom(list []*model.Reservation) map[string][]*model.Reservation {
	out := make(map[string][]*model.Reservation)
	for _, r := range list {
		out[r.RoomID] = append(out[r.RoomID], r)
	}
	return out
}
