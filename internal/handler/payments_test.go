package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/iliyamo/hotel-room-booking/internal/config"
	"github.com/iliyamo/hotel-room-booking/internal/service"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload builds a Stripe-Signature header the way the gateway
// does: v1 is an HMAC-SHA256 over "<timestamp>.<payload>".
func signPayload(payload []byte, secret string, at time.Time) string {
	signed := fmt.Sprintf("%d.%s", at.Unix(), payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signed))
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func webhookTestHandler() *PaymentHandler {
	cfg := config.Config{StripeWebhookSecret: testWebhookSecret}
	// The no-op event path never touches the gateway or the stores.
	billing := service.NewBilling(nil, nil, nil, nil, nil)
	return NewPaymentHandler(cfg, billing, nil)
}

func postWebhook(h *PaymentHandler, body, sig string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", sig)
	rec := httptest.NewRecorder()
	_ = h.Webhook(e.NewContext(req, rec))
	return rec
}

func TestWebhookAcknowledgesSignedEvent(t *testing.T) {
	h := webhookTestHandler()
	body := fmt.Sprintf(`{
		"id": "evt_test_1",
		"api_version": %q,
		"type": "charge.refunded",
		"data": {"object": {}}
	}`, stripe.APIVersion)
	sig := signPayload([]byte(body), testWebhookSecret, time.Now())

	rec := postWebhook(h, body, sig)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"received":true`)
}

func TestWebhookRejectsTamperedPayload(t *testing.T) {
	h := webhookTestHandler()
	body := fmt.Sprintf(`{"id": "evt_test_1", "api_version": %q, "type": "charge.refunded", "data": {"object": {}}}`, stripe.APIVersion)
	sig := signPayload([]byte(body), testWebhookSecret, time.Now())

	tampered := strings.Replace(body, "charge.refunded", "payment_intent.succeeded", 1)
	rec := postWebhook(h, tampered, sig)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid signature")
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	h := webhookTestHandler()
	body := fmt.Sprintf(`{"id": "evt_test_1", "api_version": %q, "type": "charge.refunded", "data": {"object": {}}}`, stripe.APIVersion)
	sig := signPayload([]byte(body), "whsec_other", time.Now())

	rec := postWebhook(h, body, sig)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRejectsStaleTimestamp(t *testing.T) {
	h := webhookTestHandler()
	body := fmt.Sprintf(`{"id": "evt_test_1", "api_version": %q, "type": "charge.refunded", "data": {"object": {}}}`, stripe.APIVersion)
	sig := signPayload([]byte(body), testWebhookSecret, time.Now().Add(-time.Hour))

	rec := postWebhook(h, body, sig)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
