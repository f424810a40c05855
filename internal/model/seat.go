package model

import "time"

// Seat status values persisted in seats.status.  A seat is AVAILABLE
// until a reservation holds it, HELD while an unconfirmed reservation
// owns it, and BOOKED once a paid booking has claimed it permanently.
const (
	SeatStatusAvailable = "AVAILABLE"
	SeatStatusHeld      = "HELD"
	SeatStatusBooked    = "BOOKED"
)

// Seat describes one physical seat for one scheduled show.  A seat is
// owned by at most one reservation at any instant: the hold fields are
// set iff the status is HELD, and BookingID is set iff the status is
// BOOKED.  Once booked, the booking reference never changes.
//
// Fields:
//  ID                – primary key identifier.
//  ShowID            – show this seat belongs to.
//  SectionID         – section of the venue (stalls, balcony, ...).
//  RowLabel          – letter or string designating the row.
//  SeatNumber        – number of the seat within the row.
//  Status            – AVAILABLE, HELD or BOOKED.
//  HoldReservationID – reservation currently holding the seat, if any.
//  HoldExpiresAt     – when the current hold lapses, if any.
//  BookingID         – booking that purchased the seat, if any.
//  PriceCents        – price of this seat in minor currency units.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Seat struct {
	ID                uint64     // seats.id
	ShowID            uint64     // seats.show_id
	SectionID         uint64     // seats.section_id
	RowLabel          string     // seats.row_label
	SeatNumber        uint32     // seats.seat_number
	Status            string     // seats.status
	HoldReservationID *string    // seats.hold_reservation_id (nullable)
	HoldExpiresAt     *time.Time // seats.hold_expires_at (nullable)
	BookingID         *string    // seats.booking_id (nullable)
	PriceCents        uint32     // seats.price_cents
	CreatedAt         time.Time  // seats.created_at
	UpdatedAt         time.Time  // seats.updated_at
}
