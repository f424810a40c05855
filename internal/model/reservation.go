package model

import "time"

// Reservation status values persisted in reservations.status.  PENDING
// is the sole initial state; CONFIRMED, EXPIRED and CANCELLED are
// terminal and no transition is permitted out of them.
const (
	ReservationStatusPending   = "PENDING"
	ReservationStatusConfirmed = "CONFIRMED"
	ReservationStatusExpired   = "EXPIRED"
	ReservationStatusCancelled = "CANCELLED"
)

// Reservation records a buyer's in-flight intent to purchase a fixed
// set of seats for a show.  While the reservation is PENDING every seat
// in SeatIDs is held by it; on any terminal transition ownership of the
// whole set is released or transferred atomically, never partially.
//
// Fields:
//  ID         – opaque identifier (UUID).
//  ShowID     – show being reserved.
//  SeatIDs    – seats claimed by this reservation, fixed at creation.
//  Status     – PENDING, CONFIRMED, EXPIRED or CANCELLED.
//  PaymentRef – external payment reference, set on confirmation only.
//  CreatedAt  – creation timestamp.
//  ExpiresAt  – hold deadline; moves forward only, via extension.
type Reservation struct {
	ID         string    // reservations.id
	ShowID     uint64    // reservations.show_id
	SeatIDs    []uint64  // reservation_seats.seat_id
	Status     string    // reservations.status
	PaymentRef *string   // reservations.payment_ref (nullable)
	CreatedAt  time.Time // reservations.created_at
	ExpiresAt  time.Time // reservations.expires_at
}

// Terminal reports whether the reservation has reached a state that
// permits no further transitions.
func (r *Reservation) Terminal() bool {
	return r.Status != ReservationStatusPending
}
