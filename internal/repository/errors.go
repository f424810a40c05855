// Package repository defines the persistence interfaces and error types
// shared by the seat inventory, reservation and booking stores.  These
// sentinel values let handlers distinguish failure scenarios: for
// example ErrReservationNotPending signals an operation invalid for
// the reservation's current lifecycle state, while SeatUnavailableError
// carries the exact seats that prevented a reservation from being
// created.  Handlers translate these into HTTP status codes.
package repository

import (
	"errors"
	"fmt"
)

// ErrReservationNotFound is returned when no reservation exists for the
// given identifier.  Handlers should translate this into HTTP 404.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrReservationNotPending is returned when a lifecycle operation
// (extend, cancel, confirm) targets a reservation that is no longer
// PENDING.  Handlers should translate this into HTTP 409.
var ErrReservationNotPending = errors.New("reservation not pending")

// ErrBookingNotFound is returned when no booking exists for the given
// identifier or reservation.
var ErrBookingNotFound = errors.New("booking not found")

// ErrSeatOwnershipMismatch is returned by the inventory confirm step
// when a seat's current hold does not belong to the confirming
// reservation.  It means the hold expired or was reassigned between
// the reservation's confirmation and the inventory update.
var ErrSeatOwnershipMismatch = errors.New("seat hold ownership mismatch")

// SeatUnavailableError reports that one or more requested seats could
// not be held because they are not currently AVAILABLE.  The whole
// reserve call fails and no seat is modified.  Callers surface the
// conflicting seat IDs so the buyer can pick different seats.
type SeatUnavailableError struct {
	ConflictingSeatIDs []uint64
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %v", e.ConflictingSeatIDs)
}
