package model

import "time"

// RoomStatus is derived from a room's reservations at a point in time.
// It is never persisted.
type RoomStatus struct {
	RoomID        string    `json:"room_id"`
	RoomName      string    `json:"room_name"`
	Available     bool      `json:"available"`
	Text          string    `json:"status"`
	Until         string    `json:"until,omitempty"`
	NextStart     string    `json:"next_start,omitempty"`
	TeamName      string    `json:"team_name,omitempty"`
	ReservationID string    `json:"reservation_id,omitempty"`
	Incomplete    bool      `json:"incomplete,omitempty"`
	ComputedAt    time.Time `json:"computed_at"`
}

// DateRange is an inclusive range of YYYY-MM-DD dates.
type DateRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// BookingWindow describes what a booking form may offer right now.
type BookingWindow struct {
	Dates      DateRange `json:"dates"`
	Open       string    `json:"open"`
	Close      string    `json:"close"`
	MinMinutes int       `json:"min_duration_minutes"`
	StartSlots []string  `json:"start_slots"`
	EndSlots   []string  `json:"end_slots"`
}
