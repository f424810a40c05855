package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/evora/ticketing/internal/model"
)

// SeatRepo is the MySQL-backed seat inventory store.  Every mutation
// runs as one short transaction: the precondition check locks the
// affected rows with SELECT ... FOR UPDATE so two overlapping calls can
// never both observe a seat as AVAILABLE and both claim it.  All
// timestamps are stored and compared in UTC.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the provided database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// placeholders builds a "?, ?, ?" list for IN clauses with n entries.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func seatIDArgs(showID *uint64, seatIDs []uint64, extra ...interface{}) []interface{} {
	args := make([]interface{}, 0, len(seatIDs)+len(extra)+1)
	args = append(args, extra...)
	if showID != nil {
		args = append(args, *showID)
	}
	for _, id := range seatIDs {
		args = append(args, id)
	}
	return args
}

// Reserve marks every requested seat HELD for the given reservation
// within a single transaction.  The SELECT ... FOR UPDATE on the seat
// rows is the linearisation point: concurrent reservations for
// overlapping seat sets serialise on the row locks, and the loser
// observes the winner's HELD status.  Seat IDs that do not exist for
// the show are reported as conflicting rather than ignored.
func (r *SeatRepo) Reserve(ctx context.Context, showID uint64, seatIDs []uint64, reservationID string, ttl time.Duration) error {
	if len(seatIDs) == 0 {
		return nil
	}
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

	query := `SELECT id, status FROM seats WHERE show_id = ? AND id IN (` + placeholders(len(seatIDs)) + `) FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, seatIDArgs(&showID, seatIDs)...)
	if err != nil {
		return err
	}
	statuses := make(map[uint64]string, len(seatIDs))
	for rows.Next() {
		var id uint64
		var status string
		if scanErr := rows.Scan(&id, &status); scanErr != nil {
			rows.Close()
			return scanErr
		}
		statuses[id] = status
	}
	if err = rows.Close(); err != nil {
		return err
	}

	var conflicting []uint64
	for _, id := range seatIDs {
		status, ok := statuses[id]
		if !ok || status != model.SeatStatusAvailable {
			conflicting = append(conflicting, id)
		}
	}
	if len(conflicting) > 0 {
		return &SeatUnavailableError{ConflictingSeatIDs: conflicting}
	}

	expiresAt := time.Now().UTC().Add(ttl)
	update := `UPDATE seats
               SET status = ?, hold_reservation_id = ?, hold_expires_at = ?, booking_id = NULL
               WHERE show_id = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := seatIDArgs(&showID, seatIDs, model.SeatStatusHeld, reservationID, expiresAt.Format("2006-01-02 15:04:05"))
	if _, err = tx.ExecContext(ctx, update, args...); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Confirm transitions the reservation's seats from HELD to BOOKED.  The
// hold ownership of every seat is re-checked under row locks; if any
// seat no longer belongs to the reservation the whole call fails with
// ErrSeatOwnershipMismatch and nothing is modified.
func (r *SeatRepo) Confirm(ctx context.Context, reservationID string, seatIDs []uint64, bookingID string) error {
	if len(seatIDs) == 0 {
		return nil
	}
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

	query := `SELECT id, status, hold_reservation_id FROM seats WHERE id IN (` + placeholders(len(seatIDs)) + `) FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, seatIDArgs(nil, seatIDs)...)
	if err != nil {
		return err
	}
	owned := make(map[uint64]bool, len(seatIDs))
	for rows.Next() {
		var id uint64
		var status string
		var holder sql.NullString
		if scanErr := rows.Scan(&id, &status, &holder); scanErr != nil {
			rows.Close()
			return scanErr
		}
		owned[id] = status == model.SeatStatusHeld && holder.Valid && holder.String == reservationID
	}
	if err = rows.Close(); err != nil {
		return err
	}
	for _, id := range seatIDs {
		if !owned[id] {
			return ErrSeatOwnershipMismatch
		}
	}

	update := `UPDATE seats
               SET status = ?, booking_id = ?, hold_reservation_id = NULL, hold_expires_at = NULL
               WHERE id IN (` + placeholders(len(seatIDs)) + `)`
	if _, err = tx.ExecContext(ctx, update, seatIDArgs(nil, seatIDs, model.SeatStatusBooked, bookingID)...); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Release returns the reservation's seats to AVAILABLE.  The ownership
// condition lives in the WHERE clause, so seats already released or
// reassigned to another reservation are simply skipped; the single
// statement makes the call atomic and idempotent without an explicit
// transaction.
func (r *SeatRepo) Release(ctx context.Context, reservationID string, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	update := `UPDATE seats
               SET status = ?, hold_reservation_id = NULL, hold_expires_at = NULL
               WHERE hold_reservation_id = ? AND status = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := seatIDArgs(nil, seatIDs, model.SeatStatusAvailable, reservationID, model.SeatStatusHeld)
	_, err := r.db.ExecContext(ctx, update, args...)
	return err
}

// SeatsByShow returns all seats of a show ordered by section, row and
// number, for display of current availability.
func (r *SeatRepo) SeatsByShow(ctx context.Context, showID uint64) ([]model.Seat, error) {
	const q = `SELECT id, show_id, section_id, row_label, seat_number, status,
                      hold_reservation_id, hold_expires_at, booking_id, price_cents, created_at, updated_at
               FROM seats
               WHERE show_id = ?
               ORDER BY section_id, row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		var holder, bookingID sql.NullString
		var holdExpires sql.NullTime
		if err := rows.Scan(&s.ID, &s.ShowID, &s.SectionID, &s.RowLabel, &s.SeatNumber, &s.Status,
			&holder, &holdExpires, &bookingID, &s.PriceCents, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if holder.Valid {
			v := holder.String
			s.HoldReservationID = &v
		}
		if holdExpires.Valid {
			v := holdExpires.Time
			s.HoldExpiresAt = &v
		}
		if bookingID.Valid {
			v := bookingID.String
			s.BookingID = &v
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// PricesBySeatIDs returns price_cents per seat for the given IDs.
func (r *SeatRepo) PricesBySeatIDs(ctx context.Context, seatIDs []uint64) (map[uint64]uint32, error) {
	prices := make(map[uint64]uint32, len(seatIDs))
	if len(seatIDs) == 0 {
		return prices, nil
	}
	query := `SELECT id, price_cents FROM seats WHERE id IN (` + placeholders(len(seatIDs)) + `)`
	rows, err := r.db.QueryContext(ctx, query, seatIDArgs(nil, seatIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var price uint32
		if err := rows.Scan(&id, &price); err != nil {
			return nil, err
		}
		prices[id] = price
	}
	return prices, rows.Err()
}
