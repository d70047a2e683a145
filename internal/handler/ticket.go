package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventhorizon-tickets/reservation-engine/internal/service"
	"github.com/eventhorizon-tickets/reservation-engine/internal/utils"
)

// TicketHandler exposes issued tickets to their owners and the gate-scan
// endpoint to venue staff.
type TicketHandler struct {
	Tickets *service.TicketService
}

func NewTicketHandler(tickets *service.TicketService) *TicketHandler {
	if tickets == nil {
		panic("nil ticket service passed to NewTicketHandler")
	}
	return &TicketHandler{Tickets: tickets}
}

// ListMine handles GET /v1/tickets and returns the caller's tickets.
func (h *TicketHandler) ListMine(c echo.Context) error {
	holder, err := holderID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tickets, err := h.Tickets.ListByOwner(c.Request().Context(), holder)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

// Validate handles POST /v1/tickets/:id/validate, the gate check-in. A
// ticket scans successfully exactly once; a second scan reports 409 with
// the time of first use so staff can tell a replay from a bad ticket.
func (h *TicketHandler) Validate(c echo.Context) error {
	t, err := h.Tickets.MarkUsed(c.Request().Context(), c.Param("id"))
	if err != nil {
		if t != nil {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":   "ticket already used",
				"used_at": t.UpdatedAt,
			})
		}
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ticket_number": t.TicketNumber,
		"status":        t.Status,
		"seat_id":       t.SeatID,
		"event_id":      t.EventID,
	})
}

// QR handles GET /v1/tickets/:id/qr and renders the ticket number as a PNG
// QR code. Owners can fetch their own tickets; GATE and ADMIN roles can
// fetch any.
func (h *TicketHandler) QR(c echo.Context) error {
	holder, err := holderID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	t, err := h.Tickets.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(c, err)
	}
	role, _ := c.Get("role").(string)
	if t.OwnerID != holder && role != "GATE" && role != "ADMIN" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	png, err := utils.TicketQR(t.TicketNumber, 256)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
