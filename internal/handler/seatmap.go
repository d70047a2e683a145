package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eventhorizon-tickets/reservation-engine/internal/repository"
)

// SeatMapHandler serves the public seat availability view. The endpoint is
// unauthenticated and sits behind the Redis response cache, so the map it
// returns may lag the inventory by up to the cache TTL.
type SeatMapHandler struct {
	Venues *repository.VenueRepo
}

func NewSeatMapHandler(venues *repository.VenueRepo) *SeatMapHandler {
	if venues == nil {
		panic("nil venue repository passed to NewSeatMapHandler")
	}
	return &SeatMapHandler{Venues: venues}
}

// GetSeatMap handles GET /v1/venues/:id/seatmap. It returns every section of
// the venue with per-seat status and pricing, grouped by section.
func (h *SeatMapHandler) GetSeatMap(c echo.Context) error {
	venueID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || venueID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	sections, err := h.Venues.SeatMap(c.Request().Context(), venueID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"venue_id": venueID,
		"sections": sections,
	})
}
