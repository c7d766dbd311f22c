package validator

import (
	"sort"

	reserrors "roomdesk/internal/reservations/errors"
	"roomdesk/internal/reservations/policy"
	"roomdesk/pkg/logger"
	"roomdesk/pkg/model"
)

// Candidate is a proposed reservation with parsed times.
type Candidate struct {
	RoomID string
	Date   string
	Start  policy.TimeOfDay
	End    policy.TimeOfDay
}

// ParseCandidate turns raw form values into a Candidate. Anything that does
// not parse is a MalformedInput rejection.
func ParseCandidate(roomID, date, start, end string) (Candidate, *reserrors.Rejection) {
	if roomID == "" {
		return Candidate{}, reserrors.Reject(reserrors.MalformedInput, "room_id is required")
	}
	d, err := policy.ParseDate(date)
	if err != nil {
		return Candidate{}, reserrors.Reject(reserrors.MalformedInput, "%s", err.Error())
	}
	s, err := policy.ParseTimeOfDay(start)
	if err != nil {
		return Candidate{}, reserrors.Reject(reserrors.MalformedInput, "start_time: %s", err.Error())
	}
	e, err := policy.ParseTimeOfDay(end)
	if err != nil {
		return Candidate{}, reserrors.Reject(reserrors.MalformedInput, "end_time: %s", err.Error())
	}
	return Candidate{RoomID: roomID, Date: d.Format(policy.DateLayout), Start: s, End: e}, nil
}

// ConflictValidator applies the booking rules to a candidate against the
// room's existing reservations.
type ConflictValidator struct {
	policy *policy.Policy
	logger *logger.Logger
}

func NewConflictValidator(p *policy.Policy, log *logger.Logger) *ConflictValidator {
	return &ConflictValidator{policy: p, logger: log}
}

// Policy returns the rules the validator checks against.
func (v *ConflictValidator) Policy() *policy.Policy {
	return v.policy
}

// Validate decides whether c may be stored next to existing. existing holds
// the reservations of c's room; those on other dates and the one with
// excludeID are ignored. A nil result means accept.
func (v *ConflictValidator) Validate(c Candidate, existing []*model.Reservation, excludeID string) *reserrors.Rejection {
	if !v.policy.IsWithinOperatingHours(c.Start, c.End) {
		return reserrors.Reject(reserrors.OutsideOperatingHours,
			"reservations must fall between %s and %s", v.policy.Open, v.policy.Close)
	}
	if c.End <= c.Start {
		return reserrors.Reject(reserrors.InvalidOrder, "end time must be after start time")
	}
	if !v.policy.MeetsMinimumDuration(c.Start, c.End) {
		return reserrors.Reject(reserrors.TooShort,
			"reservations must last at least %d minutes", int(v.policy.MinDuration.Minutes()))
	}

	for _, ex := range v.sameDay(c, existing, excludeID) {
		if c.Start < ex.end && c.End > ex.start {
			return reserrors.Conflict(ex.id, ex.start.String(), ex.end.String())
		}
	}
	return nil
}

type interval struct {
	id    string
	start policy.TimeOfDay
	end   policy.TimeOfDay
}

// sameDay returns parsed intervals on c's date ordered by start then ID, so
// the reported conflict is stable across calls.
func (v *ConflictValidator) sameDay(c Candidate, existing []*model.Reservation, excludeID string) []interval {
	out := make([]interval, 0, len(existing))
	for _, r := range existing {
		if r == nil || r.Date != c.Date || (excludeID != "" && r.ID == excludeID) {
			continue
		}
		s, errS := policy.ParseTimeOfDay(r.StartTime)
		e, errE := policy.ParseTimeOfDay(r.EndTime)
		if errS != nil || errE != nil {
			if v.logger != nil {
				v.logger.Warn("Skipping stored reservation with unparseable times",
					"reservation_id", r.ID,
					"room_id", r.RoomID,
					"start_time", r.StartTime,
					"end_time", r.EndTime,
				)
			}
			continue
		}
		out = append(out, interval{id: r.ID, start: s, end: e})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].start != out[j].start {
			return out[i].start < out[j].start
		}
		return out[i].id < out[j].id
	})
	return out
}
