// Package postgres ensures the relational schema used by the postgres
// backend. Every statement is idempotent.
package postgres

import (
	"context"
	"fmt"

	"roomdesk/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	startTimePattern = `^([01][0-9]|2[0-3]):[0-5][0-9]$`

	// End times may be 24:00 when the operating window closes at midnight.
	endTimePattern = `^(([01][0-9]|2[0-3]):[0-5][0-9]|24:00)$`
)

// Dates and times stay TEXT so they compare and round-trip exactly as the
// API sends them ("2006-01-02", "15:04").
var Statements = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id   TEXT PRIMARY KEY CHECK (length(id) BETWEEN 1 AND 64),
		name TEXT NOT NULL CHECK (length(name) BETWEEN 1 AND 100)
	)`,
	`CREATE TABLE IF NOT EXISTS teams (
		id   TEXT PRIMARY KEY CHECK (length(id) BETWEEN 1 AND 64),
		name TEXT NOT NULL CHECK (length(name) BETWEEN 1 AND 100)
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id               TEXT PRIMARY KEY,
		room_id          TEXT NOT NULL,
		team_id          TEXT NOT NULL,
		reservation_date TEXT NOT NULL CHECK (reservation_date ~ '^[0-9]{4}-[0-9]{2}-[0-9]{2}$'),
		start_time       TEXT NOT NULL CHECK (start_time ~ '` + startTimePattern + `'),
		end_time         TEXT NOT NULL CHECK (end_time ~ '` + endTimePattern + `'),
		password_hash    TEXT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS reservations_room_date_start_idx
		ON reservations (room_id, reservation_date, start_time)`,
	`CREATE INDEX IF NOT EXISTS reservations_date_idx
		ON reservations (reservation_date)`,
}

// EnsureSchema applies Statements in one transaction.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) error {
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for i, stmt := range Statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ensure postgres schema: %w", err)
	}
	log.Info("Postgres schema ready", "statements", len(Statements))
	return nil
}
