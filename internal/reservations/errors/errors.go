package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	ErrAlreadyExists = errors.New("reservation already exists")
)

// Reason is the machine-readable cause of a rejection, sent as details.reason.
type Reason string

const (
	OutsideOperatingHours Reason = "OUTSIDE_OPERATING_HOURS"
	InvalidOrder          Reason = "INVALID_ORDER"
	TooShort              Reason = "TOO_SHORT"
	SlotConflict          Reason = "SLOT_CONFLICT"
	WrongCredential       Reason = "WRONG_CREDENTIAL"
	NotFound              Reason = "NOT_FOUND"
	CatalogUnavailable    Reason = "CATALOG_UNAVAILABLE"
	MalformedInput        Reason = "MALFORMED_INPUT"
	DateOutOfRange        Reason = "DATE_OUT_OF_RANGE"
)

// Rejection explains why a reservation mutation was refused. Conflict
// fields are set only for SlotConflict.
type Rejection struct {
	Reason        Reason
	Message       string
	ConflictingID string
	ConflictStart string
	ConflictEnd   string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}

// Is matches any Rejection with the same reason, so callers can write
// errors.Is(err, &Rejection{Reason: SlotConflict}).
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

// Reject builds a Rejection with a formatted message.
func Reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Conflict rejects with SlotConflict, naming the reservation in the way.
func Conflict(id, start, end string) *Rejection {
	return &Rejection{
		Reason:        SlotConflict,
		Message:       fmt.Sprintf("the room is already reserved from %s to %s", start, end),
		ConflictingID: id,
		ConflictStart: start,
		ConflictEnd:   end,
	}
}

// ReasonOf returns the rejection reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}
