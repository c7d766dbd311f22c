package model

import "time"

// Reservation is a confirmed booking of a room by a team for a half-open
// wall-clock interval [StartTime, EndTime) on Date.
type Reservation struct {
	ID           string    `json:"id" bson:"_id"`
	RoomID       string    `json:"room_id" bson:"room_id"`
	TeamID       string    `json:"team_id" bson:"team_id"`
	Date         string    `json:"reservation_date" bson:"reservation_date"`
	StartTime    string    `json:"start_time" bson:"start_time"`
	EndTime      string    `json:"end_time" bson:"end_time"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Clone returns a copy safe to hand out of a store.
func (r *Reservation) Clone() *Reservation {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

type ReservationRequest struct {
	TeamID    string `json:"team_id" validate:"required,max=64"`
	Date      string `json:"reservation_date" validate:"required,reservation_date"`
	StartTime string `json:"start_time" validate:"required,time_of_day"`
	EndTime   string `json:"end_time" validate:"required,time_of_day"`
	Password  string `json:"password" validate:"required,max=72"`
}

// ReservationPatch edits an existing reservation. Password proves ownership;
// nil fields keep their current values.
type ReservationPatch struct {
	TeamID    *string `json:"team_id,omitempty" validate:"omitempty,max=64"`
	Date      *string `json:"reservation_date,omitempty" validate:"omitempty,reservation_date"`
	StartTime *string `json:"start_time,omitempty" validate:"omitempty,time_of_day"`
	EndTime   *string `json:"end_time,omitempty" validate:"omitempty,time_of_day"`
	Password  string  `json:"password" validate:"required,max=72"`
}

// SlotCheck is a validation-only candidate, used before submitting a form.
type SlotCheck struct {
	Date                 string `json:"reservation_date" validate:"required,reservation_date"`
	StartTime            string `json:"start_time" validate:"required,time_of_day"`
	EndTime              string `json:"end_time" validate:"required,time_of_day"`
	ExcludeReservationID string `json:"exclude_reservation_id,omitempty" validate:"omitempty,max=64"`
}
