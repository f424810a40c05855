package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"

	"github.com/evora/ticketing/internal/model"
)

// BookingRepo is the MySQL-backed booking store.  The unique key on
// bookings.reservation_id is the database-level guarantee that no
// reservation can ever produce two bookings, whatever races the
// application layer loses.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// NewValidationCode generates the random hexadecimal code printed on a
// ticket and checked at the door.  n is the number of random bytes; the
// resulting string is twice as long.
func NewValidationCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create inserts the booking row.  Bookings are immutable: there is no
// update or delete counterpart.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings
               (id, reservation_id, show_id, customer_email, customer_name, total_amount_cents, validation_code, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, b.ID, b.ReservationID, b.ShowID,
		b.CustomerEmail, b.CustomerName, b.TotalAmountCents, b.ValidationCode,
		b.CreatedAt.UTC().Format(sqlTimeLayout))
	return err
}

// GetByReservationID loads the booking created for a reservation.  The
// seat set is read from the reservation's join table since a booking
// always covers exactly the seats of its reservation.
func (r *BookingRepo) GetByReservationID(ctx context.Context, reservationID string) (*model.Booking, error) {
	const q = `SELECT id, reservation_id, show_id, customer_email, customer_name, total_amount_cents, validation_code, created_at
               FROM bookings WHERE reservation_id = ?`
	var b model.Booking
	err := r.db.QueryRowContext(ctx, q, reservationID).Scan(&b.ID, &b.ReservationID, &b.ShowID,
		&b.CustomerEmail, &b.CustomerName, &b.TotalAmountCents, &b.ValidationCode, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	const seatsQ = `SELECT seat_id FROM reservation_seats WHERE reservation_id = ? ORDER BY seat_id`
	rows, err := r.db.QueryContext(ctx, seatsQ, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sid uint64
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		b.SeatIDs = append(b.SeatIDs, sid)
	}
	return &b, rows.Err()
}
