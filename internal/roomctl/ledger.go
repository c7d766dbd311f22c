package roomctl

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"roomdesk/pkg/model"

	_ "github.com/mattn/go-sqlite3"
)

const ledgerFile = "reservations.db"

// Entry is a reservation this machine booked. The server never returns
// passwords, so the ledger is how a user finds their own bookings again.
type Entry struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	TeamID    string `json:"team_id"`
	Date      string `json:"reservation_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	BookedAt  string `json:"booked_at"`
	Server    string `json:"server"`
}

func EntryFrom(r *model.Reservation, server string) Entry {
	return Entry{
		ID:        r.ID,
		RoomID:    r.RoomID,
		TeamID:    r.TeamID,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		BookedAt:  r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Server:    server,
	}
}

type LedgerFilter struct {
	// From keeps entries on or after this date. Empty keeps everything.
	From string
}

type Ledger struct {
	db *sql.DB
}

func DefaultLedgerPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "roomdesk", ledgerFile), nil
}

func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := ensureLedgerSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

func ensureLedgerSchema(db *sql.DB) error {
	createTable := `
CREATE TABLE IF NOT EXISTS reservations (
  id TEXT PRIMARY KEY,
  room_id TEXT NOT NULL,
  team_id TEXT NOT NULL,
  reservation_date TEXT NOT NULL,
  start_time TEXT NOT NULL,
  end_time TEXT NOT NULL,
  booked_at TEXT,
  server TEXT
);`

	if _, err := db.Exec(createTable); err != nil {
		return fmt.Errorf("create ledger table: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_reservations_date ON reservations(reservation_date, start_time);"); err != nil {
		return fmt.Errorf("create ledger index: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Save inserts the entry or replaces the one with the same ID.
func (l *Ledger) Save(e Entry) error {
	_, err := l.db.Exec(`
INSERT OR REPLACE INTO reservations (
  id, room_id, team_id, reservation_date, start_time, end_time, booked_at, server
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		e.ID, e.RoomID, e.TeamID, e.Date, e.StartTime, e.EndTime, e.BookedAt, e.Server,
	)
	return err
}

func (l *Ledger) Remove(id string) (bool, error) {
	res, err := l.db.Exec("DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

var ErrNotInLedger = errors.New("reservation not found in local ledger")

func (l *Ledger) Get(id string) (Entry, error) {
	row := l.db.QueryRow(selectEntries+" WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotInLedger
	}
	return e, err
}

const selectEntries = `
SELECT id, room_id, team_id, reservation_date, start_time, end_time, booked_at, server
FROM reservations`

func (l *Ledger) List(filter LedgerFilter) ([]Entry, error) {
	conds := []string{}
	args := []any{}
	if filter.From != "" {
		conds = append(conds, "reservation_date >= ?")
		args = append(args, filter.From)
	}

	query := selectEntries
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY reservation_date, start_time, id"

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var bookedAt, server sql.NullString
	if err := row.Scan(&e.ID, &e.RoomID, &e.TeamID, &e.Date, &e.StartTime, &e.EndTime, &bookedAt, &server); err != nil {
		return Entry{}, err
	}
	e.BookedAt = bookedAt.String
	e.Server = server.String
	return e, nil
}
