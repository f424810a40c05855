// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer that move them.
package queue

// BookingConfirmedEvent is published when a paid reservation has been
// finalised into a booking.  It carries enough information for the
// notification collaborator to deliver a confirmation without querying
// the primary database.  Delivery failure never rolls back the booking.
type BookingConfirmedEvent struct {
	BookingID        string   `json:"booking_id"`
	ReservationID    string   `json:"reservation_id"`
	ShowID           uint64   `json:"show_id"`
	SeatIDs          []uint64 `json:"seat_ids"`
	CustomerEmail    string   `json:"customer_email"`
	CustomerName     string   `json:"customer_name"`
	TotalAmountCents uint32   `json:"total_amount_cents"`
	ValidationCode   string   `json:"validation_code"`
	ConfirmedAt      string   `json:"confirmed_at"`
}
