package roomctl

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"roomdesk/pkg/model"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenLedger(filepath.Join(t.TempDir(), "nested", ledgerFile))
	if err != nil {
		t.Fatalf("OpenLedger() error = %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLedger_SaveListRemove(t *testing.T) {
	l := openTestLedger(t)

	entries := []Entry{
		{ID: "b", RoomID: "r-1", TeamID: "t-1", Date: "2024-06-04", StartTime: "09:00", EndTime: "10:00"},
		{ID: "a", RoomID: "r-2", TeamID: "t-1", Date: "2024-06-03", StartTime: "14:00", EndTime: "15:00"},
		{ID: "c", RoomID: "r-1", TeamID: "t-2", Date: "2024-06-01", StartTime: "11:00", EndTime: "12:00"},
	}
	for _, e := range entries {
		if err := l.Save(e); err != nil {
			t.Fatalf("Save(%s) error = %v", e.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter LedgerFilter
		want   []string
	}{
		{"all entries ordered by date", LedgerFilter{}, []string{"c", "a", "b"}},
		{"from date", LedgerFilter{From: "2024-06-03"}, []string{"a", "b"}},
		{"nothing upcoming", LedgerFilter{From: "2025-01-01"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.List(tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() returned %d entries, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("entry %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}

	removed, err := l.Remove("a")
	if err != nil || !removed {
		t.Fatalf("Remove(a) = %v, %v", removed, err)
	}
	removed, err = l.Remove("a")
	if err != nil || removed {
		t.Errorf("second Remove(a) = %v, %v, want false, nil", removed, err)
	}
}

func TestLedger_SaveReplaces(t *testing.T) {
	l := openTestLedger(t)

	e := Entry{ID: "a", RoomID: "r-1", TeamID: "t-1", Date: "2024-06-03", StartTime: "09:00", EndTime: "10:00"}
	if err := l.Save(e); err != nil {
		t.Fatal(err)
	}
	e.StartTime, e.EndTime = "12:00", "13:00"
	if err := l.Save(e); err != nil {
		t.Fatal(err)
	}

	got, err := l.Get("a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.StartTime != "12:00" || got.EndTime != "13:00" {
		t.Errorf("Get() = %+v, want updated times", got)
	}
}

func TestLedger_GetMissing(t *testing.T) {
	l := openTestLedger(t)

	if _, err := l.Get("nope"); !errors.Is(err, ErrNotInLedger) {
		t.Errorf("Get() error = %v, want ErrNotInLedger", err)
	}
}

func TestEntryFrom(t *testing.T) {
	created := time.Date(2024, 6, 3, 8, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	e := EntryFrom(&model.Reservation{
		ID: "a", RoomID: "r-1", TeamID: "t-1", Date: "2024-06-03",
		StartTime: "09:00", EndTime: "10:00", CreatedAt: created,
	}, "http://rooms")

	if e.BookedAt != "2024-06-03T06:30:00Z" {
		t.Errorf("BookedAt = %s", e.BookedAt)
	}
	if e.Server != "http://rooms" || e.RoomID != "r-1" {
		t.Errorf("EntryFrom() = %+v", e)
	}
}
