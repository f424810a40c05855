package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/evora/ticketing/internal/model"
)

// ReservationRepo is the MySQL-backed reservation store.  Status
// transitions are expressed as conditional UPDATEs whose WHERE clause
// carries the expected current status; the affected-row count tells the
// caller whether it won or lost a concurrent transition.  All
// timestamps are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const sqlTimeLayout = "2006-01-02 15:04:05"

// Create inserts the reservation row and its seat set in one
// transaction.  The seat set is immutable afterwards.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const ins = `INSERT INTO reservations (id, show_id, status, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, ins, res.ID, res.ShowID, res.Status,
		res.CreatedAt.UTC().Format(sqlTimeLayout), res.ExpiresAt.UTC().Format(sqlTimeLayout))
	if err != nil {
		return err
	}

	if len(res.SeatIDs) > 0 {
		query := `INSERT INTO reservation_seats (reservation_id, seat_id) VALUES `
		args := make([]interface{}, 0, len(res.SeatIDs)*2)
		for i, sid := range res.SeatIDs {
			if i > 0 {
				query += ","
			}
			query += "(?, ?)"
			args = append(args, res.ID, sid)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID loads the reservation row together with its seat set.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT id, show_id, status, payment_ref, created_at, expires_at FROM reservations WHERE id = ?`
	var res model.Reservation
	var paymentRef sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(&res.ID, &res.ShowID, &res.Status, &paymentRef, &res.CreatedAt, &res.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	if paymentRef.Valid {
		v := paymentRef.String
		res.PaymentRef = &v
	}

	const seatsQ = `SELECT seat_id FROM reservation_seats WHERE reservation_id = ? ORDER BY seat_id`
	rows, err := r.db.QueryContext(ctx, seatsQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sid uint64
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		res.SeatIDs = append(res.SeatIDs, sid)
	}
	return &res, rows.Err()
}

// Transition performs the conditional status change that serialises the
// state machine: the UPDATE only applies when the row still carries the
// expected from status.  A zero affected-row count means a concurrent
// transition won; the caller decides whether that is an error.
func (r *ReservationRepo) Transition(ctx context.Context, id, from, to string) (bool, error) {
	const q = `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, q, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Confirm moves a PENDING reservation to CONFIRMED and records the
// payment reference in the same conditional update, so the status guard
// and the reference assignment commit together.
func (r *ReservationRepo) Confirm(ctx context.Context, id, paymentRef string) (bool, error) {
	const q = `UPDATE reservations SET status = ?, payment_ref = ? WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, q, model.ReservationStatusConfirmed, paymentRef, id, model.ReservationStatusPending)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Extend moves the deadline forward.  The WHERE clause enforces every
// precondition at once: still PENDING, current deadline not yet passed,
// and the new deadline strictly later than the current one.
func (r *ReservationRepo) Extend(ctx context.Context, id string, newExpiresAt, now time.Time) (bool, error) {
	const q = `UPDATE reservations
               SET expires_at = ?
               WHERE id = ? AND status = ? AND expires_at > ? AND expires_at < ?`
	result, err := r.db.ExecContext(ctx, q,
		newExpiresAt.UTC().Format(sqlTimeLayout), id, model.ReservationStatusPending,
		now.UTC().Format(sqlTimeLayout), newExpiresAt.UTC().Format(sqlTimeLayout))
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindExpired lists PENDING reservations whose deadline has passed,
// together with their seat sets, oldest first.  The reaper attempts the
// PENDING -> EXPIRED transition separately per reservation, so reading
// a reservation here that a concurrent confirmation then wins is
// harmless.
func (r *ReservationRepo) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	const q = `SELECT id, show_id, status, created_at, expires_at
               FROM reservations
               WHERE status = ? AND expires_at < ?
               ORDER BY expires_at
               LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, model.ReservationStatusPending, now.UTC().Format(sqlTimeLayout), limit)
	if err != nil {
		return nil, err
	}
	var expired []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if scanErr := rows.Scan(&res.ID, &res.ShowID, &res.Status, &res.CreatedAt, &res.ExpiresAt); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		expired = append(expired, res)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}

	for i := range expired {
		const seatsQ = `SELECT seat_id FROM reservation_seats WHERE reservation_id = ? ORDER BY seat_id`
		seatRows, err := r.db.QueryContext(ctx, seatsQ, expired[i].ID)
		if err != nil {
			return nil, err
		}
		for seatRows.Next() {
			var sid uint64
			if scanErr := seatRows.Scan(&sid); scanErr != nil {
				seatRows.Close()
				return nil, scanErr
			}
			expired[i].SeatIDs = append(expired[i].SeatIDs, sid)
		}
		if err = seatRows.Close(); err != nil {
			return nil, err
		}
	}
	return expired, nil
}
