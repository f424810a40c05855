package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evora/ticketing/internal/model"
	"github.com/evora/ticketing/internal/repository"
	"github.com/evora/ticketing/internal/service"
)

// ReservationHandler exposes the reservation lifecycle over HTTP:
// creating a hold, extending it during payment, confirming it into a
// booking and cancelling it.  All state decisions live in the service
// layer; the handler only binds requests and maps the error taxonomy to
// HTTP status codes.
type ReservationHandler struct {
	Manager   *service.ReservationManager
	Confirmer *service.ConfirmationService
}

// NewReservationHandler constructs a ReservationHandler.  Both
// dependencies must be non-nil.
func NewReservationHandler(manager *service.ReservationManager, confirmer *service.ConfirmationService) *ReservationHandler {
	if manager == nil || confirmer == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Manager: manager, Confirmer: confirmer}
}

// Create handles POST /v1/reservations.  The body carries the show and
// the requested seat set.  On success the buyer receives the
// reservation ID and the hold deadline; on a seat conflict the response
// is 409 with the exact conflicting seat IDs so the buyer can pick
// others.
func (h *ReservationHandler) Create(c echo.Context) error {
	var body struct {
		ShowID  uint64   `json:"show_id"`
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ShowID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "show_id is required"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}

	res, err := h.Manager.Create(c.Request().Context(), body.ShowID, body.SeatIDs)
	if err != nil {
		var unavailable *repository.SeatUnavailableError
		if errors.As(err, &unavailable) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":                "some seats are unavailable",
				"conflicting_seat_ids": unavailable.ConflictingSeatIDs,
			})
		}
		if errors.Is(err, service.ErrNoSeatsRequested) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no valid seat IDs provided"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": res.ID,
		"expires_at":     res.ExpiresAt.Format(time.RFC3339),
		"seat_ids":       res.SeatIDs,
	})
}

// Extend handles POST /v1/reservations/:id/extend.  It grants extra
// hold time while a payment is in flight.  The new deadline must be
// later than the current one and the reservation must still be pending.
func (h *ReservationHandler) Extend(c echo.Context) error {
	id := c.Param("id")
	var body struct {
		NewExpiresAt time.Time `json:"new_expires_at"`
	}
	if err := c.Bind(&body); err != nil || body.NewExpiresAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new_expires_at is required"})
	}

	err := h.Manager.Extend(c.Request().Context(), id, body.NewExpiresAt)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		if errors.Is(err, repository.ErrReservationNotPending) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not pending"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to extend reservation"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": id,
		"expires_at":     body.NewExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Confirm handles POST /v1/reservations/:id/confirm, the client-driven
// confirmation path.  A repeated confirmation of an already-confirmed
// reservation returns the existing booking with 200, matching the
// idempotent semantics of the underlying service.
func (h *ReservationHandler) Confirm(c echo.Context) error {
	id := c.Param("id")
	var body struct {
		PaymentRef    string `json:"payment_ref"`
		CustomerEmail string `json:"customer_email"`
		CustomerName  string `json:"customer_name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.PaymentRef == "" || body.CustomerEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_ref and customer_email are required"})
	}

	booking, err := h.Confirmer.ConfirmPayment(c.Request().Context(), id, body.PaymentRef, body.CustomerEmail, body.CustomerName)
	if err != nil {
		return confirmationError(c, err)
	}
	return c.JSON(http.StatusOK, bookingResponse(booking))
}

// Cancel handles POST /v1/reservations/:id/cancel.  Repeated
// cancellation of an already-cancelled reservation succeeds.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id := c.Param("id")
	err := h.Manager.Cancel(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		if errors.Is(err, repository.ErrReservationNotPending) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not pending"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel reservation"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation_id": id, "status": model.ReservationStatusCancelled})
}

// Get handles GET /v1/reservations/:id and returns the reservation with
// its seat set and current lifecycle state.
func (h *ReservationHandler) Get(c echo.Context) error {
	id := c.Param("id")
	res, err := h.Manager.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch reservation"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": res.ID,
		"show_id":        res.ShowID,
		"seat_ids":       res.SeatIDs,
		"status":         res.Status,
		"created_at":     res.CreatedAt.Format(time.RFC3339),
		"expires_at":     res.ExpiresAt.Format(time.RFC3339),
	})
}

// confirmationError maps the confirmation error taxonomy onto HTTP.
// PaymentNotSucceeded is the buyer's problem (402); an expired hold is
// gone (410); divergence between payment and inventory is escalated as
// a server error and never retried here.
func confirmationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, service.ErrPaymentNotSucceeded):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment not succeeded"})
	case errors.Is(err, service.ErrReservationExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "reservation expired before confirmation"})
	case errors.Is(err, service.ErrManualReviewRequired):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirmation requires manual review"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to confirm reservation"})
	}
}

func bookingResponse(b *model.Booking) echo.Map {
	return echo.Map{
		"booking_id":         b.ID,
		"reservation_id":     b.ReservationID,
		"show_id":            b.ShowID,
		"seat_ids":           b.SeatIDs,
		"total_amount_cents": b.TotalAmountCents,
		"validation_code":    b.ValidationCode,
		"created_at":         b.CreatedAt.Format(time.RFC3339),
	}
}
