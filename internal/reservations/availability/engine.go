// Package availability derives the live status of each room from the
// day's reservations. Nothing here is persisted.
package availability

import (
	"fmt"
	"sort"
	"time"

	"roomdesk/internal/reservations/policy"
	"roomdesk/pkg/model"
)

const (
	TextAvailable   = "Available"
	TextUnavailable = "Status unavailable"
)

// Snapshot is a consistent read of everything needed to derive statuses
// for one day. A room without an entry in Reservations, or listed in
// Missing, gets a best-effort status.
type Snapshot struct {
	Date         string
	Rooms        []model.Room
	TeamNames    map[string]string
	Reservations map[string][]*model.Reservation
	Missing      map[string]bool
}

// Engine turns reservations into room statuses. It is safe for concurrent use.
type Engine struct {
	policy *policy.Policy
}

// NewEngine returns an engine that reads the clock in p.Location.
func NewEngine(p *policy.Policy) *Engine {
	return &Engine{policy: p}
}

type slot struct {
	res   *model.Reservation
	start policy.TimeOfDay
	end   policy.TimeOfDay
}

// DeriveStatus computes one room's status at now. A reservation occupies
// [start, end); when several qualify, the earliest start wins and ties go
// to the lower ID. todays must already be filtered to now's date.
func (e *Engine) DeriveStatus(room model.Room, now time.Time, todays []*model.Reservation, teamNames map[string]string) model.RoomStatus {
	status := model.RoomStatus{
		RoomID:     room.ID,
		RoomName:   room.Name,
		Available:  true,
		Text:       TextAvailable,
		ComputedAt: now,
	}

	current := e.policy.MinutesSinceMidnight(now)
	slots := ordered(todays)

	for _, s := range slots {
		if current >= s.start && current < s.end {
			status.Available = false
			status.Until = s.end.String()
			status.ReservationID = s.res.ID
			status.TeamName = teamNames[s.res.TeamID]
			status.Text = busyText(status.TeamName, status.Until)
			return status
		}
	}

	for _, s := range slots {
		if s.start > current {
			status.NextStart = s.start.String()
			status.Text = fmt.Sprintf("%s (next reservation: %s)", TextAvailable, status.NextStart)
			return status
		}
	}

	return status
}

// DeriveAll returns one status per room, in room order. An empty room set
// yields an empty slice.
func (e *Engine) DeriveAll(now time.Time, snap *Snapshot) []model.RoomStatus {
	if snap == nil {
		return []model.RoomStatus{}
	}
	out := make([]model.RoomStatus, 0, len(snap.Rooms))
	for _, room := range snap.Rooms {
		list, ok := snap.Reservations[room.ID]
		if !ok || snap.Missing[room.ID] {
			out = append(out, model.RoomStatus{
				RoomID:     room.ID,
				RoomName:   room.Name,
				Available:  true,
				Text:       TextUnavailable,
				Incomplete: true,
				ComputedAt: now,
			})
			continue
		}
		out = append(out, e.DeriveStatus(room, now, onDate(list, snap.Date), snap.TeamNames))
	}
	return out
}

func busyText(team, until string) string {
	if team == "" {
		return fmt.Sprintf("In use (until %s)", until)
	}
	return fmt.Sprintf("In use (team: %s, until %s)", team, until)
}

func onDate(list []*model.Reservation, date string) []*model.Reservation {
	if date == "" {
		return list
	}
	out := make([]*model.Reservation, 0, len(list))
	for _, r := range list {
		if r != nil && r.Date == date {
			out = append(out, r)
		}
	}
	return out
}

// ordered parses and sorts by start then ID. Unparseable entries are dropped.
func ordered(list []*model.Reservation) []slot {
	out := make([]slot, 0, len(list))
	for _, r := range list {
		if r == nil {
			continue
		}
		s, errS := policy.ParseTimeOfDay(r.StartTime)
		e, errE := policy.ParseTimeOfDay(r.EndTime)
		if errS != nil || errE != nil {
			continue
		}
		out = append(out, slot{res: r, start: s, end: e})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].start != out[j].start {
			return out[i].start < out[j].start
		}
		return out[i].res.ID < out[j].res.ID
	})
	return out
}
