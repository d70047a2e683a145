package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventhorizon-tickets/reservation-engine/internal/model"
	"github.com/eventhorizon-tickets/reservation-engine/internal/service"
)

// PaymentHandler exposes the settlement surface: creating payment attempts,
// receiving provider callbacks and querying or refunding attempts.
type PaymentHandler struct {
	Settlement *service.SettlementService
}

func NewPaymentHandler(settlement *service.SettlementService) *PaymentHandler {
	if settlement == nil {
		panic("nil settlement service passed to NewPaymentHandler")
	}
	return &PaymentHandler{Settlement: settlement}
}

type createPaymentRequest struct {
	ReservationID string `json:"reservation_id" validate:"required"`
	// Optional client echo of the expected total. When present it must
	// match the server-side amount exactly; the server amount always wins.
	AmountCents uint32 `json:"amount_cents"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
}

func attemptJSON(a *model.PaymentAttempt) echo.Map {
	return echo.Map{
		"id":             a.ID,
		"reservation_id": a.ReservationID,
		"amount_cents":   a.AmountCents,
		"currency":       a.Currency,
		"provider_ref":   a.ProviderRef,
		"status":         a.Status,
	}
}

// Create handles POST /v1/payments/create. It registers an order with the
// payment provider and returns the new attempt in CREATED state.
func (h *PaymentHandler) Create(c echo.Context) error {
	if _, err := holderID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createPaymentRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return err
	}
	attempt, err := h.Settlement.CreateAttempt(c.Request().Context(), body.ReservationID, body.Currency, body.AmountCents)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, attemptJSON(attempt))
}

type providerCallbackRequest struct {
	ProviderRef string `json:"provider_ref" validate:"required"`
	Outcome     string `json:"outcome" validate:"required"`
}

// ProviderCallback handles POST /v1/payments/provider-callback. The provider
// delivers outcomes at least once; replays of an already-applied outcome are
// acknowledged with 200 just like first deliveries.
func (h *PaymentHandler) ProviderCallback(c echo.Context) error {
	var body providerCallbackRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return err
	}
	outcome, err := service.ParseOutcome(body.Outcome)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown outcome"})
	}
	if err := h.Settlement.HandleCallback(c.Request().Context(), body.ProviderRef, outcome); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "accepted"})
}

// Status handles GET /v1/payments/:id/status.
func (h *PaymentHandler) Status(c echo.Context) error {
	if _, err := holderID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	attempt, err := h.Settlement.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, attemptJSON(attempt))
}

// Refund handles POST /v1/payments/:id/refund. Restricted to the ADMIN role
// at the router; only CAPTURED attempts can be refunded.
func (h *PaymentHandler) Refund(c echo.Context) error {
	if err := h.Settlement.Refund(c.Request().Context(), c.Param("id")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "refunded"})
}
