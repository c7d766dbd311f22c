package repository

import (
	"context"
	"errors"
	"fmt"

	reserrors "roomdesk/internal/reservations/errors"
	pgtx "roomdesk/pkg/db/postgres"
	"roomdesk/pkg/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation = "23505"

	selectColumns = `SELECT id, room_id, team_id, reservation_date, start_time, end_time, password_hash, created_at, updated_at
		 FROM reservations`
	orderBy = ` ORDER BY reservation_date, start_time, id`
)

type postgresReservationRepository struct {
	pool      *pgxpool.Pool
	txManager pgtx.TransactionManager
}

func NewPostgresReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &postgresReservationRepository{
		pool:      pool,
		txManager: pgtx.NewTransactionManager(pool),
	}
}

func (r *postgresReservationRepository) db(ctx context.Context) pgtx.Querier {
	return pgtx.QuerierFrom(ctx, r.pool)
}

func (r *postgresReservationRepository) Create(ctx context.Context, res *model.Reservation) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO reservations (id, room_id, team_id, reservation_date, start_time, end_time, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		res.ID, res.RoomID, res.TeamID, res.Date, res.StartTime, res.EndTime, res.PasswordHash, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return reserrors.ErrAlreadyExists
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (r *postgresReservationRepository) Update(ctx context.Context, res *model.Reservation) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE reservations
		 SET team_id = $3, reservation_date = $4, start_time = $5, end_time = $6, password_hash = $7, updated_at = $8
		 WHERE id = $1 AND room_id = $2`,
		res.ID, res.RoomID, res.TeamID, res.Date, res.StartTime, res.EndTime, res.PasswordHash, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return reserrors.ErrNotFound
	}
	return nil
}

func (r *postgresReservationRepository) Delete(ctx context.Context, roomID, id string) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM reservations WHERE id = $1 AND room_id = $2`, id, roomID)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return reserrors.ErrNotFound
	}
	return nil
}

func (r *postgresReservationRepository) FindByID(ctx context.Context, roomID, id string) (*model.Reservation, error) {
	row := r.db(ctx).QueryRow(ctx, selectColumns+` WHERE id = $1 AND room_id = $2`, id, roomID)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reserrors.ErrNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *postgresReservationRepository) ListByRoom(ctx context.Context, roomID, date string) ([]*model.Reservation, error) {
	if date == "" {
		return r.query(ctx, selectColumns+` WHERE room_id = $1`+orderBy, roomID)
	}
	return r.query(ctx, selectColumns+` WHERE room_id = $1 AND reservation_date = $2`+orderBy, roomID, date)
}

func (r *postgresReservationRepository) ListByDate(ctx context.Context, date string) (map[string][]*model.Reservation, error) {
	list, err := r.query(ctx, selectColumns+` WHERE reservation_date = $1`+orderBy, date)
	if err != nil {
		return nil, err
	}
	return groupByRoom(list), nil
}

func (r *postgresReservationRepository) query(ctx context.Context, sql string, args ...any) ([]*model.Reservation, error) {
	rows, err := r.db(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(&res.ID, &res.RoomID, &res.TeamID, &res.Date, &res.StartTime, &res.EndTime,
		&res.PasswordHash, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *postgresReservationRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *postgresReservationRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
