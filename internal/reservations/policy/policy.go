// Package policy holds the booking rules that do not depend on other
// reservations: operating hours, minimum duration and the bookable dates.
package policy

import (
	"fmt"
	"time"

	"roomdesk/pkg/model"
)

// Policy is the operating window and minimum duration, evaluated in Location.
type Policy struct {
	Open        TimeOfDay
	Close       TimeOfDay
	MinDuration time.Duration
	Location    *time.Location
}

// New parses open and close as times of day and checks that the window
// fits at least one booking. A nil loc means local time.
func New(open, close string, minDuration time.Duration, loc *time.Location) (*Policy, error) {
	o, err := ParseTimeOfDay(open)
	if err != nil {
		return nil, fmt.Errorf("operating open: %w", err)
	}
	c, err := ParseTimeOfDay(close)
	if err != nil {
		return nil, fmt.Errorf("operating close: %w", err)
	}
	if c <= o {
		return nil, fmt.Errorf("operating close %s must be after open %s", c, o)
	}
	if minDuration <= 0 || minDuration%time.Minute != 0 {
		return nil, fmt.Errorf("minimum duration must be a positive number of minutes, got %s", minDuration)
	}
	if c.Sub(o) < minDuration {
		return nil, fmt.Errorf("operating window %s-%s is shorter than the minimum duration %s", o, c, minDuration)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Policy{Open: o, Close: c, MinDuration: minDuration, Location: loc}, nil
}

// Default is 09:00 to 20:00 with one hour minimum, in local time.
func Default() *Policy {
	return &Policy{
		Open:        9 * 60,
		Close:       20 * 60,
		MinDuration: time.Hour,
		Location:    time.Local,
	}
}

// IsWithinOperatingHours reports whether start and end both fall inside
// [Open, Close].
func (p *Policy) IsWithinOperatingHours(start, end TimeOfDay) bool {
	return start >= p.Open && end <= p.Close
}

// MeetsMinimumDuration reports whether end-start is at least MinDuration.
func (p *Policy) MeetsMinimumDuration(start, end TimeOfDay) bool {
	return end.Sub(start) >= p.MinDuration
}

func (p *Policy) local(now time.Time) time.Time {
	return now.In(p.Location)
}

// MinutesSinceMidnight is now's wall-clock time in Location.
func (p *Policy) MinutesSinceMidnight(now time.Time) TimeOfDay {
	l := p.local(now)
	return TimeOfDay(l.Hour()*60 + l.Minute())
}

// Today is now's calendar date in Location.
func (p *Policy) Today(now time.Time) string {
	return p.local(now).Format(DateLayout)
}

// AllowedDateRange is [yesterday, today] before opening time and
// [today, tomorrow] from opening time on.
func (p *Policy) AllowedDateRange(now time.Time) model.DateRange {
	l := p.local(now)
	y, m, d := l.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, p.Location)

	if p.MinutesSinceMidnight(now) < p.Open {
		return model.DateRange{
			Min: today.AddDate(0, 0, -1).Format(DateLayout),
			Max: today.Format(DateLayout),
		}
	}
	return model.DateRange{
		Min: today.Format(DateLayout),
		Max: today.AddDate(0, 0, 1).Format(DateLayout),
	}
}

// DateInRange reports whether date (YYYY-MM-DD) falls inside AllowedDateRange.
func (p *Policy) DateInRange(date string, now time.Time) bool {
	if _, err := ParseDate(date); err != nil {
		return false
	}
	r := p.AllowedDateRange(now)
	return date >= r.Min && date <= r.Max
}

// Slots lists the hourly start and end boundaries a form can offer.
func (p *Policy) Slots() (starts, ends []string) {
	minLen := TimeOfDay(p.MinDuration / time.Minute)
	for t := p.Open; t+minLen <= p.Close; t += 60 {
		starts = append(starts, t.String())
	}
	for t := p.Open + minLen; t <= p.Close; t += 60 {
		ends = append(ends, t.String())
	}
	return starts, ends
}

// Window bundles the bookable dates and hourly slots for clients.
func (p *Policy) Window(now time.Time) model.BookingWindow {
	starts, ends := p.Slots()
	return model.BookingWindow{
		Dates:      p.AllowedDateRange(now),
		Open:       p.Open.String(),
		Close:      p.Close.String(),
		MinMinutes: int(p.MinDuration / time.Minute),
		StartSlots: starts,
		EndSlots:   ends,
	}
}
