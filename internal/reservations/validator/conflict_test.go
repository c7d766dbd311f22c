package validator

import (
	"testing"

	reserrors "roomdesk/internal/reservations/errors"
	"roomdesk/internal/reservations/policy"
	"roomdesk/pkg/logger"
	"roomdesk/pkg/model"
)

const day = "2024-05-01"

func newValidator() *ConflictValidator {
	return NewConflictValidator(policy.Default(), logger.Discard())
}

func res(id, start, end string) *model.Reservation {
	return &model.Reservation{ID: id, RoomID: "r-1", Date: day, StartTime: start, EndTime: end}
}

func cand(start, end string) Candidate {
	c, rej := ParseCandidate("r-1", day, start, end)
	if rej != nil {
		panic(rej)
	}
	return c
}

func TestValidate_Reasons(t *testing.T) {
	tests := []struct {
		name     string
		c        Candidate
		existing []*model.Reservation
		want     reserrors.Reason
	}{
		{"accept on empty room", cand("09:00", "10:00"), nil, ""},
		{"before opening", cand("08:00", "09:30"), nil, reserrors.OutsideOperatingHours},
		{"after closing", cand("19:30", "20:30"), nil, reserrors.OutsideOperatingHours},
		{"end before start", cand("11:00", "10:00"), nil, reserrors.InvalidOrder},
		{"zero length", cand("10:00", "10:00"), nil, reserrors.InvalidOrder},
		{"too short", cand("09:00", "09:30"), nil, reserrors.TooShort},
		{"touching end", cand("10:00", "11:00"), []*model.Reservation{res("a", "09:00", "10:00")}, ""},
		{"touching start", cand("09:00", "10:00"), []*model.Reservation{res("a", "10:00", "11:00")}, ""},
		{"overlap", cand("09:30", "10:30"), []*model.Reservation{res("a", "09:00", "10:00")}, reserrors.SlotConflict},
		{"contains", cand("09:00", "12:00"), []*model.Reservation{res("a", "10:00", "11:00")}, reserrors.SlotConflict},
		{"contained", cand("10:00", "11:00"), []*model.Reservation{res("a", "09:00", "12:00")}, reserrors.SlotConflict},
		{"other date ignored", cand("09:00", "10:00"), []*model.Reservation{{ID: "a", Date: "2024-05-02", StartTime: "09:00", EndTime: "10:00"}}, ""},
		{"unparseable stored times skipped", cand("09:00", "10:00"), []*model.Reservation{res("a", "nine", "ten")}, ""},
	}

	v := newValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej := v.Validate(tt.c, tt.existing, "")
			if tt.want == "" {
				if rej != nil {
					t.Fatalf("expected accept, got %v", rej)
				}
				return
			}
			if rej == nil {
				t.Fatalf("expected %s, got accept", tt.want)
			}
			if rej.Reason != tt.want {
				t.Errorf("reason = %s, want %s", rej.Reason, tt.want)
			}
		})
	}
}

func TestValidate_Scenario(t *testing.T) {
	v := newValidator()
	var stored []*model.Reservation

	if rej := v.Validate(cand("09:00", "10:00"), stored, ""); rej != nil {
		t.Fatalf("first booking rejected: %v", rej)
	}
	stored = append(stored, res("booking-1", "09:00", "10:00"))

	if rej := v.Validate(cand("10:00", "11:00"), stored, ""); rej != nil {
		t.Fatalf("touching booking rejected: %v", rej)
	}
	stored = append(stored, res("booking-2", "10:00", "11:00"))

	rej := v.Validate(cand("09:30", "10:30"), stored, "")
	if rej == nil || rej.Reason != reserrors.SlotConflict {
		t.Fatalf("expected SlotConflict, got %v", rej)
	}
	if rej.ConflictingID != "booking-1" {
		t.Errorf("conflicting id = %s, want booking-1", rej.ConflictingID)
	}
	if rej.ConflictStart != "09:00" || rej.ConflictEnd != "10:00" {
		t.Errorf("conflict interval = %s-%s, want 09:00-10:00", rej.ConflictStart, rej.ConflictEnd)
	}
}

func TestValidate_ExcludeSelf(t *testing.T) {
	v := newValidator()
	stored := []*model.Reservation{res("x", "10:00", "11:00"), res("y", "13:00", "14:00")}

	if rej := v.Validate(cand("10:30", "11:30"), stored, "x"); rej != nil {
		t.Errorf("editing x should not conflict with itself: %v", rej)
	}
	rej := v.Validate(cand("12:30", "13:30"), stored, "x")
	if rej == nil || rej.ConflictingID != "y" {
		t.Errorf("expected conflict with y, got %v", rej)
	}
}

func TestValidate_ConflictOrderIsStable(t *testing.T) {
	v := newValidator()
	stored := []*model.Reservation{res("b", "10:00", "11:00"), res("a", "09:00", "10:00")}

	for i := 0; i < 5; i++ {
		rej := v.Validate(cand("09:00", "11:00"), stored, "")
		if rej == nil || rej.ConflictingID != "a" {
			t.Fatalf("expected earliest conflict a, got %v", rej)
		}
	}
}

func TestParseCandidate_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		room  string
		date  string
		start string
		end   string
	}{
		{"missing room", "", day, "09:00", "10:00"},
		{"bad date", "r-1", "01/05/2024", "09:00", "10:00"},
		{"bad start", "r-1", day, "nine", "10:00"},
		{"bad end", "r-1", day, "09:00", ""},
		{"seconds", "r-1", day, "09:00:30", "10:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rej := ParseCandidate(tt.room, tt.date, tt.start, tt.end)
			if rej == nil || rej.Reason != reserrors.MalformedInput {
				t.Errorf("expected MalformedInput, got %v", rej)
			}
		})
	}
}
