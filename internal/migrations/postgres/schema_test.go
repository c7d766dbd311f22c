package postgres

import (
	"regexp"
	"strings"
	"testing"
)

func TestStatements_AreIdempotent(t *testing.T) {
	for i, stmt := range Statements {
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Errorf("statement %d is not idempotent: %s", i+1, stmt)
		}
	}
}

func TestStatements_CoverRepositoryColumns(t *testing.T) {
	var reservations string
	for _, stmt := range Statements {
		if strings.Contains(stmt, "TABLE IF NOT EXISTS reservations") {
			reservations = stmt
		}
	}
	if reservations == "" {
		t.Fatal("no reservations table")
	}

	columns := []string{"id", "room_id", "team_id", "reservation_date", "start_time", "end_time", "password_hash", "created_at", "updated_at"}
	for _, col := range columns {
		if !strings.Contains(reservations, "\t"+col+" ") {
			t.Errorf("reservations table is missing column %s", col)
		}
	}
}

func TestTimePatterns(t *testing.T) {
	start := regexp.MustCompile(startTimePattern)
	end := regexp.MustCompile(endTimePattern)

	tests := []struct {
		in        string
		wantStart bool
		wantEnd   bool
	}{
		{"09:00", true, true},
		{"23:59", true, true},
		{"24:00", false, true},
		{"24:01", false, false},
		{"9:00", false, false},
		{"09:00:00", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := start.MatchString(tt.in); got != tt.wantStart {
				t.Errorf("start_time %q match = %v, want %v", tt.in, got, tt.wantStart)
			}
			if got := end.MatchString(tt.in); got != tt.wantEnd {
				t.Errorf("end_time %q match = %v, want %v", tt.in, got, tt.wantEnd)
			}
		})
	}
}

func TestStatements_EmbedTimePatterns(t *testing.T) {
	joined := strings.Join(Statements, "\n")
	if !strings.Contains(joined, "end_time ~ '"+endTimePattern+"'") {
		t.Error("reservations table does not check end_time with the end-of-day pattern")
	}
}
