package model

import "time"

// Booking is the permanent record of a completed sale.  Exactly one
// booking exists per confirmed reservation; bookings are created once,
// never mutated and never deleted.
//
// Fields:
//  ID               – opaque identifier (UUID).
//  ReservationID    – confirmed reservation this booking finalised (1:1).
//  ShowID           – show the seats belong to.
//  SeatIDs          – seats purchased, identical to the reservation's set.
//  CustomerEmail    – buyer contact used for delivery of the ticket.
//  CustomerName     – buyer display name.
//  TotalAmountCents – sum of seat prices in minor currency units.
//  ValidationCode   – unique code presented at the door for entry.
//  CreatedAt        – creation timestamp.
type Booking struct {
	ID               string    // bookings.id
	ReservationID    string    // bookings.reservation_id (unique)
	ShowID           uint64    // bookings.show_id
	SeatIDs          []uint64  // derived from reservation_seats
	CustomerEmail    string    // bookings.customer_email
	CustomerName     string    // bookings.customer_name
	TotalAmountCents uint32    // bookings.total_amount_cents
	ValidationCode   string    // bookings.validation_code (unique)
	CreatedAt        time.Time // bookings.created_at
}
