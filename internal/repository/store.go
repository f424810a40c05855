package repository

import (
	"context"
	"time"

	"github.com/evora/ticketing/internal/model"
)

// InventoryStore is the single source of truth for seat state.  It is
// the only component that mutates Seat.Status, and every mutation is
// all-or-nothing across the given seat set.
type InventoryStore interface {
	// Reserve transitions every seat in seatIDs from AVAILABLE to HELD
	// with the given owning reservation and a hold deadline of now+ttl.
	// If any seat is not AVAILABLE (or does not exist) the call fails
	// with *SeatUnavailableError and no seat is modified.  Two
	// overlapping Reserve calls can never both succeed for the same
	// seat.
	Reserve(ctx context.Context, showID uint64, seatIDs []uint64, reservationID string, ttl time.Duration) error

	// Confirm transitions every seat in seatIDs from HELD to BOOKED
	// with the given booking.  It fails with ErrSeatOwnershipMismatch,
	// without partial mutation, if any seat's current hold does not
	// belong to reservationID.
	Confirm(ctx context.Context, reservationID string, seatIDs []uint64, bookingID string) error

	// Release returns every seat in seatIDs whose hold still belongs to
	// reservationID back to AVAILABLE, clearing the hold fields.  It is
	// idempotent: repeated calls and calls on already-released seats
	// are no-ops, never errors.
	Release(ctx context.Context, reservationID string, seatIDs []uint64) error

	// SeatsByShow lists all seats of a show with their current status.
	// Read-only; used by the availability endpoint for the seat-map
	// renderer collaborator.
	SeatsByShow(ctx context.Context, showID uint64) ([]model.Seat, error)

	// PricesBySeatIDs returns the price in minor units for each of the
	// given seats.
	PricesBySeatIDs(ctx context.Context, seatIDs []uint64) (map[uint64]uint32, error)
}

// ReservationStore persists reservations and performs the conditional
// status transitions that serialise the reservation state machine.
type ReservationStore interface {
	// Create persists a new PENDING reservation together with its
	// fixed seat set.
	Create(ctx context.Context, res *model.Reservation) error

	// GetByID loads a reservation and its seat set, or returns
	// ErrReservationNotFound.
	GetByID(ctx context.Context, id string) (*model.Reservation, error)

	// Transition atomically moves the reservation from one status to
	// another, conditioned on the current status still being from.  It
	// reports whether the transition was applied; losing a race to a
	// concurrent transition is not an error.
	Transition(ctx context.Context, id, from, to string) (bool, error)

	// Confirm atomically moves a PENDING reservation to CONFIRMED and
	// records the payment reference in the same conditional update.
	Confirm(ctx context.Context, id, paymentRef string) (bool, error)

	// Extend atomically moves the expiry deadline forward while the
	// reservation is still PENDING and not already past its current
	// deadline.  The new deadline must be strictly later than the
	// current one.  Reports whether the update was applied.
	Extend(ctx context.Context, id string, newExpiresAt, now time.Time) (bool, error)

	// FindExpired lists PENDING reservations whose deadline has passed,
	// up to limit, for the reaper to reclaim.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error)
}

// BookingStore persists the permanent records of completed sales.
type BookingStore interface {
	// Create inserts a booking row.  At most one booking may exist per
	// reservation; a second insert for the same reservation fails.
	Create(ctx context.Context, b *model.Booking) error

	// GetByReservationID loads the booking created for a reservation,
	// or returns ErrBookingNotFound.
	GetByReservationID(ctx context.Context, reservationID string) (*model.Booking, error)
}
