package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/evora/ticketing/internal/repository"
	"github.com/evora/ticketing/internal/service"
)

// signatureHeader carries the gateway's hex-encoded HMAC-SHA256 of the
// raw request body.
const signatureHeader = "X-Payment-Signature"

// paymentWebhookEvent is the envelope the payment gateway posts.  The
// reservation to finalise travels in the event metadata.
type paymentWebhookEvent struct {
	Type       string `json:"type"`
	PaymentRef string `json:"payment_ref"`
	Metadata   struct {
		ReservationID string `json:"reservation_id"`
		CustomerEmail string `json:"customer_email"`
		CustomerName  string `json:"customer_name"`
	} `json:"metadata"`
}

// WebhookHandler receives asynchronous payment results from the
// gateway.  Webhook input is untrusted: the body signature is verified
// against the shared secret before anything is parsed.  Successful
// payments funnel into the same idempotent ConfirmPayment used by the
// client-driven path, so duplicate deliveries and races between the two
// channels resolve on one status transition.
type WebhookHandler struct {
	Secret    []byte
	Confirmer *service.ConfirmationService
}

// NewWebhookHandler constructs a WebhookHandler with the shared HMAC
// secret agreed with the gateway.
func NewWebhookHandler(secret string, confirmer *service.ConfirmationService) *WebhookHandler {
	if secret == "" || confirmer == nil {
		panic("invalid dependency passed to NewWebhookHandler")
	}
	return &WebhookHandler{Secret: []byte(secret), Confirmer: confirmer}
}

// HandlePaymentWebhook handles POST /v1/webhooks/payment.  Terminal
// outcomes are acknowledged with 200 even when the business result is a
// failure: the gateway retries non-2xx responses, and neither an
// expired hold nor a manual-review divergence can be resolved by
// redelivering the same event.  Those cases are logged for operational
// monitoring instead.
func (h *WebhookHandler) HandlePaymentWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "failed to read body"})
	}
	if !h.verifySignature(body, c.Request().Header.Get(signatureHeader)) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
	}

	var event paymentWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event payload"})
	}
	if event.Type != "payment.succeeded" {
		// Other event types are acknowledged without action.
		return c.JSON(http.StatusOK, echo.Map{"received": true, "handled": false})
	}
	if event.PaymentRef == "" || event.Metadata.ReservationID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_ref and reservation_id are required"})
	}

	booking, err := h.Confirmer.ConfirmPayment(
		c.Request().Context(),
		event.Metadata.ReservationID,
		event.PaymentRef,
		event.Metadata.CustomerEmail,
		event.Metadata.CustomerName,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReservationExpired):
			log.Printf("webhook: payment succeeded but hold was lost: reservation=%s payment_ref=%s",
				event.Metadata.ReservationID, event.PaymentRef)
			return c.JSON(http.StatusOK, echo.Map{"received": true, "result": "reservation_expired"})
		case errors.Is(err, service.ErrManualReviewRequired):
			return c.JSON(http.StatusOK, echo.Map{"received": true, "result": "manual_review_required"})
		case errors.Is(err, repository.ErrReservationNotFound):
			log.Printf("webhook: unknown reservation in event metadata: reservation=%s", event.Metadata.ReservationID)
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, service.ErrPaymentNotSucceeded):
			// The gateway said succeeded in the event but not when asked
			// directly; do not ack, let it redeliver.
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment not succeeded"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to process event"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true, "booking_id": booking.ID})
}

// verifySignature compares the gateway's signature against an
// HMAC-SHA256 of the raw body in constant time.
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.Secret)
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
