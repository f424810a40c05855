package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evora/ticketing/internal/model"
	"github.com/evora/ticketing/internal/service"
)

const testWebhookSecret = "whsec_test"

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, h *WebhookHandler, body, signature string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payment", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h.HandlePaymentWebhook(e.NewContext(req, rec)))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func succeededEvent(reservationID string) string {
	return `{"type":"payment.succeeded","payment_ref":"pay_123","metadata":{"reservation_id":"` +
		reservationID + `","customer_email":"ada@example.com","customer_name":"Ada"}}`
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newHandlerFixture(t, &stubVerifier{succeeded: true})
	h := NewWebhookHandler(testWebhookSecret, f.confirmer)

	body := succeededEvent("res-1")

	rec, _ := postWebhook(t, h, body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = postWebhook(t, h, body, "not-hex")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = postWebhook(t, h, body, sign("wrong-secret", body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Signature over a different body does not transfer.
	rec, _ = postWebhook(t, h, body, sign(testWebhookSecret, body+" "))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookConfirmsReservation(t *testing.T) {
	f := newHandlerFixture(t, &stubVerifier{succeeded: true})
	h := NewWebhookHandler(testWebhookSecret, f.confirmer)

	res, err := f.manager.Create(context.Background(), 1, []uint64{1, 2})
	require.NoError(t, err)

	body := succeededEvent(res.ID)
	rec, payload := postWebhook(t, h, body, sign(testWebhookSecret, body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["received"])
	assert.NotEmpty(t, payload["booking_id"])

	got, err := f.reservations.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusConfirmed, got.Status)

	// Redelivery of the same event acknowledges the same booking.
	rec2, payload2 := postWebhook(t, h, body, sign(testWebhookSecret, body))
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, payload["booking_id"], payload2["booking_id"])
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	f := newHandlerFixture(t, &stubVerifier{succeeded: true})
	h := NewWebhookHandler(testWebhookSecret, f.confirmer)

	body := `{"type":"payment.refunded","payment_ref":"pay_123","metadata":{"reservation_id":"res-1"}}`
	rec, payload := postWebhook(t, h, body, sign(testWebhookSecret, body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, payload["handled"])
}

func TestWebhookAcksExpiredReservation(t *testing.T) {
	f := newHandlerFixture(t, &stubVerifier{succeeded: true})
	h := NewWebhookHandler(testWebhookSecret, f.confirmer)

	res, err := f.manager.Create(context.Background(), 1, []uint64{1})
	require.NoError(t, err)
	reaper := service.NewReaper(f.seats, f.reservations, time.Second, 10)
	reclaimed, err := reaper.Sweep(context.Background(), res.ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, 1, reclaimed)

	// Redelivering the event cannot bring the hold back, so the gateway
	// gets a 200 and the case is handled out of band.
	body := succeededEvent(res.ID)
	rec, payload := postWebhook(t, h, body, sign(testWebhookSecret, body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reservation_expired", payload["result"])
}

func TestWebhookRejectsIncompleteEvent(t *testing.T) {
	f := newHandlerFixture(t, &stubVerifier{succeeded: true})
	h := NewWebhookHandler(testWebhookSecret, f.confirmer)

	body := `{"type":"payment.succeeded","payment_ref":"","metadata":{"reservation_id":""}}`
	rec, _ := postWebhook(t, h, body, sign(testWebhookSecret, body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookUnknownReservation(t *testing.T) {
	f := newHandlerFixture(t, &stubVerifier{succeeded: true})
	h := NewWebhookHandler(testWebhookSecret, f.confirmer)

	body := succeededEvent("no-such-reservation")
	rec, _ := postWebhook(t, h, body, sign(testWebhookSecret, body))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookDisagreesWithGateway(t *testing.T) {
	// The event says succeeded, but direct verification says otherwise.
	// No ack: the gateway should redeliver once the states agree.
	f := newHandlerFixture(t, &stubVerifier{succeeded: false})
	h := NewWebhookHandler(testWebhookSecret, f.confirmer)

	res, err := f.manager.Create(context.Background(), 1, []uint64{1})
	require.NoError(t, err)

	body := succeededEvent(res.ID)
	rec, _ := postWebhook(t, h, body, sign(testWebhookSecret, body))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}
