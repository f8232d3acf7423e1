package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/iliyamo/hotel-room-booking/internal/config"
	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/service"
)

// PaymentHandler fronts the billing service.  The webhook route is the
// only unauthenticated mutation in the system, which is why the
// signature check happens before anything else can run.
type PaymentHandler struct {
	Cfg      config.Config
	Billing  *service.Billing
	Payments *repository.PaymentRepo
}

func NewPaymentHandler(cfg config.Config, billing *service.Billing, payments *repository.PaymentRepo) *PaymentHandler {
	return &PaymentHandler{Cfg: cfg, Billing: billing, Payments: payments}
}

// Config returns the publishable key the browser needs to mount the
// card form.  Public; the key is not a secret.
func (h *PaymentHandler) Config(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"publishableKey": h.Cfg.StripePublishableKey})
}

type intentReq struct {
	ReservationID     uint64 `json:"reservationId"`
	SavePaymentMethod bool   `json:"savePaymentMethod"`
}

// CreateIntent opens a charge for a reservation and returns the client
// secret for browser-side confirmation.
func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	p, _ := principal(c)
	var req intentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ReservationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservationId required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	result, err := h.Billing.CreateReservationIntent(ctx, p, req.ReservationID, req.SavePaymentMethod)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// CreateSetupIntent opens a save-card flow for the caller.
func (h *PaymentHandler) CreateSetupIntent(c echo.Context) error {
	p, _ := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	si, err := h.Billing.CreateSetupIntent(ctx, p)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"clientSecret": si.ClientSecret})
}

// Webhook receives gateway notifications.  The signature is verified
// against the raw body before any parsing or state change; a bad
// signature is a 400 so the gateway retries with a fresh signature.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "read body failed"})
	}
	event, err := webhook.ConstructEvent(payload,
		c.Request().Header.Get("Stripe-Signature"), h.Cfg.StripeWebhookSecret)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	parsed, err := service.ParseGatewayEvent(event)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed event payload"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Billing.HandleWebhook(ctx, parsed); err != nil {
		// Non-2xx makes the gateway redeliver later; processing is
		// idempotent so that is safe.
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "event processing failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

// SyncMethods refreshes the caller's saved cards from the gateway.
func (h *PaymentHandler) SyncMethods(c echo.Context) error {
	p, _ := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	methods, err := h.Billing.SyncPaymentMethods(ctx, p)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, methods)
}

// DeleteMethod detaches a saved card.
func (h *PaymentHandler) DeleteMethod(c echo.Context) error {
	p, _ := principal(c)
	methodID := c.Param("paymentMethodId")
	if methodID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "paymentMethodId required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Billing.RemovePaymentMethod(ctx, p, methodID); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List returns the ledger (staff).
func (h *PaymentHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Payments.List(ctx)
	if err != nil {
		return writeErr(c, err)
	}
	if out == nil {
		out = []*model.Payment{}
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one ledger entry (staff).
func (h *PaymentHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Payments.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ListByReservation returns all attempts against one reservation
// (staff).
func (h *PaymentHandler) ListByReservation(c echo.Context) error {
	reservationID, err := pathID(c, "reservationId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Payments.ListByReservation(ctx, reservationID)
	if err != nil {
		return writeErr(c, err)
	}
	if out == nil {
		out = []*model.Payment{}
	}
	return c.JSON(http.StatusOK, out)
}

// Delete removes a ledger entry (staff).
func (h *PaymentHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Payments.Delete(ctx, id); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
