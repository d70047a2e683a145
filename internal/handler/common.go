package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/eventhorizon-tickets/reservation-engine/internal/repository"
	"github.com/eventhorizon-tickets/reservation-engine/internal/service"
)

// Validator adapts go-playground/validator to Echo's Validator interface so
// handlers can call c.Validate on bound request bodies.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// holderID extracts the authenticated holder identifier placed in the
// context by the JWT middleware. An empty value means the middleware did
// not run or the token had no subject.
func holderID(c echo.Context) (string, error) {
	v := c.Get("holder_id")
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errors.New("no authenticated holder in context")
	}
	return s, nil
}

// serviceError translates service and repository errors into JSON HTTP
// responses. Anything not recognized is reported as a 500 without leaking
// the underlying error text.
func serviceError(c echo.Context, err error) error {
	var conflict *service.SeatConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "seats unavailable",
			"conflicts": conflict.Conflicts,
		})
	}
	var provider *service.ProviderError
	if errors.As(err, &provider) {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
	}
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrReservationNotActive):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation not active"})
	case errors.Is(err, service.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid state"})
	case errors.Is(err, service.ErrTicketAlreadyUsed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already used"})
	case errors.Is(err, service.ErrTicketNotConfirmed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket not confirmed"})
	case errors.Is(err, service.ErrAmountMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount mismatch"})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
