package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventhorizon-tickets/reservation-engine/internal/repository"
	"github.com/eventhorizon-tickets/reservation-engine/internal/service"
)

// ReservationHandler exposes hold lifecycle endpoints to authenticated
// holders. Writes go through the reservation service; read endpoints query
// the repository directly since they need no transition logic.
type ReservationHandler struct {
	Reservations *service.ReservationService
	Store        *repository.ReservationRepo
}

func NewReservationHandler(svc *service.ReservationService, store *repository.ReservationRepo) *ReservationHandler {
	if svc == nil || store == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: svc, Store: store}
}

type reserveRequest struct {
	EventID uint64   `json:"event_id" validate:"required"`
	SeatIDs []uint64 `json:"seat_ids" validate:"required,min=1,max=10,dive,gt=0"`
}

// Reserve handles POST /v1/seats/reserve. The request either holds every
// named seat or none of them; on conflict the response carries the list of
// seats that were unavailable so the client can re-render its seat map.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	holder, err := holderID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body reserveRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return err
	}
	res, err := h.Reservations.Create(c.Request().Context(), body.EventID, body.SeatIDs, holder)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":                 res.ID,
		"event_id":           res.EventID,
		"state":              res.State,
		"total_amount_cents": res.TotalAmountCents,
		"currency":           res.Currency,
		"expires_at":         res.ExpiresAt,
	})
}

// Cancel handles POST /v1/reservations/:id/cancel. Only the owning holder
// may release a reservation, and only while it is still ACTIVE.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	holder, err := holderID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Reservations.Cancel(c.Request().Context(), id, holder); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Get handles GET /v1/reservations/:id and returns the reservation with its
// seat labels. Reservations belonging to other holders come back as 403.
func (h *ReservationHandler) Get(c echo.Context) error {
	holder, err := holderID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	detail, err := h.Store.GetDetailForHolder(c.Request().Context(), id, holder)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// ListMine handles GET /v1/my-reservations, newest first.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	holder, err := holderID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Store.ListByHolder(c.Request().Context(), holder)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}
