package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/evora/ticketing/internal/model"
	"github.com/evora/ticketing/internal/payment"
	"github.com/evora/ticketing/internal/queue"
	"github.com/evora/ticketing/internal/repository"
)

// ErrPaymentNotSucceeded is returned when the payment gateway reports
// that the given payment reference is not a successful payment.  No
// state is mutated; the buyer can retry payment.
var ErrPaymentNotSucceeded = errors.New("payment not succeeded")

// ErrReservationExpired is returned when a successful payment arrives
// after the hold was reclaimed or cancelled.  This is the
// payment-succeeded-but-hold-lost case: it is surfaced for manual
// reconciliation and refund, and seat capacity is never re-allocated to
// compensate.
var ErrReservationExpired = errors.New("reservation expired before confirmation")

// ErrManualReviewRequired is returned when payment and inventory state
// diverged during confirmation.  The condition is logged for operator
// follow-up and never retried automatically, since retrying around a
// captured payment is unsafe.
var ErrManualReviewRequired = errors.New("manual review required")

// EventPublisher emits the booking-confirmed event for the notification
// collaborator.  Publish failures must not affect the booking.
type EventPublisher func(ctx context.Context, event queue.BookingConfirmedEvent) error

// ConfirmationService is the single authority for turning a paid
// PENDING reservation into a CONFIRMED reservation plus a Booking,
// exactly once.  Both the client confirmation call and the gateway
// webhook funnel through ConfirmPayment, so duplicate delivery and
// racing channels resolve on the same conditional status transition.
type ConfirmationService struct {
	inventory    repository.InventoryStore
	reservations repository.ReservationStore
	bookings     repository.BookingStore
	verifier     payment.Verifier
	publish      EventPublisher
	now          func() time.Time
}

// NewConfirmationService constructs the service.  publish may be nil
// when no broker is configured.
func NewConfirmationService(
	inventory repository.InventoryStore,
	reservations repository.ReservationStore,
	bookings repository.BookingStore,
	verifier payment.Verifier,
	publish EventPublisher,
) *ConfirmationService {
	if inventory == nil || reservations == nil || bookings == nil || verifier == nil {
		panic("nil dependency passed to NewConfirmationService")
	}
	return &ConfirmationService{
		inventory:    inventory,
		reservations: reservations,
		bookings:     bookings,
		verifier:     verifier,
		publish:      publish,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ConfirmPayment verifies the payment reference with the gateway and
// finalises the reservation into a booking.  The PENDING -> CONFIRMED
// transition is the idempotency guard: whichever caller wins it creates
// the booking, every later caller gets the same booking back, and a
// caller that finds the reservation EXPIRED or CANCELLED gets
// ErrReservationExpired.  Inventory divergence after the transition is
// escalated as ErrManualReviewRequired.
func (s *ConfirmationService) ConfirmPayment(ctx context.Context, reservationID, paymentRef, customerEmail, customerName string) (*model.Booking, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	ok, err := s.verifier.Verify(ctx, paymentRef)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPaymentNotSucceeded
	}

	won, err := s.reservations.Confirm(ctx, reservationID, paymentRef)
	if err != nil {
		return nil, err
	}
	if !won {
		return s.resolveLostConfirmation(ctx, reservationID)
	}

	prices, err := s.inventory.PricesBySeatIDs(ctx, res.SeatIDs)
	if err != nil {
		log.Printf("confirmation: manual review required: price lookup failed: reservation=%s payment_ref=%s: %v", reservationID, paymentRef, err)
		return nil, ErrManualReviewRequired
	}
	var total uint32
	for _, sid := range res.SeatIDs {
		total += prices[sid]
	}

	code, err := repository.NewValidationCode(8)
	if err != nil {
		log.Printf("confirmation: manual review required: validation code generation failed: reservation=%s: %v", reservationID, err)
		return nil, ErrManualReviewRequired
	}

	booking := &model.Booking{
		ID:               uuid.NewString(),
		ReservationID:    reservationID,
		ShowID:           res.ShowID,
		SeatIDs:          res.SeatIDs,
		CustomerEmail:    customerEmail,
		CustomerName:     customerName,
		TotalAmountCents: total,
		ValidationCode:   code,
		CreatedAt:        s.now(),
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		log.Printf("confirmation: manual review required: booking insert failed after confirm: reservation=%s payment_ref=%s: %v", reservationID, paymentRef, err)
		return nil, ErrManualReviewRequired
	}

	if err := s.inventory.Confirm(ctx, reservationID, res.SeatIDs, booking.ID); err != nil {
		// Payment is captured and the reservation is CONFIRMED, but the
		// seats no longer belong to it.  Unreachable while the reaper
		// honours the status guard; escalate instead of guessing.
		log.Printf("confirmation: manual review required: inventory confirm failed: reservation=%s booking=%s payment_ref=%s: %v",
			reservationID, booking.ID, paymentRef, err)
		return nil, ErrManualReviewRequired
	}

	if s.publish != nil {
		event := queue.BookingConfirmedEvent{
			BookingID:        booking.ID,
			ReservationID:    booking.ReservationID,
			ShowID:           booking.ShowID,
			SeatIDs:          booking.SeatIDs,
			CustomerEmail:    booking.CustomerEmail,
			CustomerName:     booking.CustomerName,
			TotalAmountCents: booking.TotalAmountCents,
			ValidationCode:   booking.ValidationCode,
			ConfirmedAt:      booking.CreatedAt.Format(time.RFC3339),
		}
		if err := s.publish(ctx, event); err != nil {
			log.Printf("confirmation: booking confirmed event publish failed: booking=%s: %v", booking.ID, err)
		}
	}
	return booking, nil
}

// resolveLostConfirmation handles a ConfirmPayment call that lost the
// PENDING -> CONFIRMED transition.  A reservation confirmed by the
// other caller yields that caller's booking; the booking row may lag
// the status flip by a moment, so the lookup retries briefly before
// escalating.
func (s *ConfirmationService) resolveLostConfirmation(ctx context.Context, reservationID string) (*model.Booking, error) {
	current, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if current.Status != model.ReservationStatusConfirmed {
		return nil, ErrReservationExpired
	}
	for attempt := 0; attempt < 5; attempt++ {
		booking, err := s.bookings.GetByReservationID(ctx, reservationID)
		if err == nil {
			return booking, nil
		}
		if !errors.Is(err, repository.ErrBookingNotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	log.Printf("confirmation: manual review required: reservation confirmed but booking row missing: reservation=%s", reservationID)
	return nil, ErrManualReviewRequired
}
