package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhorizon-tickets/reservation-engine/internal/model"
	"github.com/eventhorizon-tickets/reservation-engine/internal/provider"
	"github.com/eventhorizon-tickets/reservation-engine/internal/repository"
	"github.com/eventhorizon-tickets/reservation-engine/internal/service"
)

// Minimal stub stores: just enough state to drive the handlers through
// the real services.

type stubSeats struct {
	seats map[uint64]*model.Seat
}

func newStubSeats(ids ...uint64) *stubSeats {
	s := &stubSeats{seats: make(map[uint64]*model.Seat)}
	for _, id := range ids {
		s.seats[id] = &model.Seat{ID: id, PriceCents: 2500, Currency: "USD", Status: model.SeatAvailable}
	}
	return s
}

func (s *stubSeats) TryHold(_ context.Context, seatIDs []uint64, reservationID string) (granted, conflicts []uint64, err error) {
	for _, id := range seatIDs {
		seat, ok := s.seats[id]
		if !ok || seat.Status != model.SeatAvailable {
			conflicts = append(conflicts, id)
			continue
		}
		ref := reservationID
		seat.Status = model.SeatHeld
		seat.HoldRef = &ref
		granted = append(granted, id)
	}
	return granted, conflicts, nil
}

func (s *stubSeats) Release(_ context.Context, seatIDs []uint64, reservationID string) (int64, error) {
	var n int64
	for _, id := range seatIDs {
		if seat, ok := s.seats[id]; ok && seat.Status == model.SeatHeld && seat.HoldRef != nil && *seat.HoldRef == reservationID {
			seat.Status = model.SeatAvailable
			seat.HoldRef = nil
			n++
		}
	}
	return n, nil
}

func (s *stubSeats) ConfirmSold(context.Context, []uint64, string) error { return nil }

func (s *stubSeats) GetByIDs(_ context.Context, seatIDs []uint64) ([]model.Seat, error) {
	out := make([]model.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		if seat, ok := s.seats[id]; ok {
			out = append(out, *seat)
		}
	}
	return out, nil
}

type stubReservations struct {
	byID map[string]*model.Reservation
}

func newStubReservations() *stubReservations {
	return &stubReservations{byID: make(map[string]*model.Reservation)}
}

func (s *stubReservations) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *stubReservations) Create(_ context.Context, res *model.Reservation) error {
	cp := *res
	s.byID[res.ID] = &cp
	return nil
}

func (s *stubReservations) CreateSeatsBulk(context.Context, []model.ReservationSeat) error { return nil }

func (s *stubReservations) GetByID(_ context.Context, id string) (*model.Reservation, error) {
	res, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (s *stubReservations) SeatIDs(context.Context, string) ([]uint64, error) { return nil, nil }

func (s *stubReservations) CompareAndSetState(_ context.Context, id string, from, to model.ReservationState) error {
	res, ok := s.byID[id]
	if !ok || res.State != from {
		return repository.ErrInvalidTransition
	}
	res.State = to
	return nil
}

func (s *stubReservations) DueForExpiry(context.Context, time.Time, int) ([]string, error) {
	return nil, nil
}

func (s *stubReservations) Seats(context.Context, string) ([]model.ReservationSeat, error) {
	return nil, nil
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func doJSON(e *echo.Echo, method, path, body, holder string, h echo.HandlerFunc, params ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if holder != "" {
		c.Set("holder_id", holder)
	}
	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestReservationHandler_Reserve(t *testing.T) {
	e := newTestEcho()

	newHandler := func(seatIDs ...uint64) (*ReservationHandler, *stubSeats) {
		seats := newStubSeats(seatIDs...)
		svc := service.NewReservationService(seats, newStubReservations(), service.SystemClock())
		// Detail queries are not exercised here; a zero repo keeps the
		// constructor satisfied.
		return &ReservationHandler{Reservations: svc, Store: &repository.ReservationRepo{}}, seats
	}

	t.Run("201 on a clean hold", func(t *testing.T) {
		h, _ := newHandler(1, 2)
		rec := doJSON(e, http.MethodPost, "/v1/seats/reserve", `{"event_id":7,"seat_ids":[1,2]}`, "holder-1", h.Reserve)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"total_amount_cents":5000`)
		assert.Contains(t, rec.Body.String(), `"state":"ACTIVE"`)
	})

	t.Run("409 with the conflict list", func(t *testing.T) {
		h, seats := newHandler(1, 2)
		held := "other"
		seats.seats[2].Status = model.SeatHeld
		seats.seats[2].HoldRef = &held

		rec := doJSON(e, http.MethodPost, "/v1/seats/reserve", `{"event_id":7,"seat_ids":[1,2]}`, "holder-1", h.Reserve)
		require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"conflicts":[2]`)
		// All or nothing: the grantable seat went back to the pool.
		assert.Equal(t, model.SeatAvailable, seats.seats[1].Status)
	})

	t.Run("401 without a holder", func(t *testing.T) {
		h, _ := newHandler(1)
		rec := doJSON(e, http.MethodPost, "/v1/seats/reserve", `{"event_id":7,"seat_ids":[1]}`, "", h.Reserve)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("400 on an empty seat list", func(t *testing.T) {
		h, _ := newHandler(1)
		rec := doJSON(e, http.MethodPost, "/v1/seats/reserve", `{"event_id":7,"seat_ids":[]}`, "holder-1", h.Reserve)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("404 on an unknown seat", func(t *testing.T) {
		h, _ := newHandler(1)
		rec := doJSON(e, http.MethodPost, "/v1/seats/reserve", `{"event_id":7,"seat_ids":[99]}`, "holder-1", h.Reserve)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type stubPayments struct {
	byRef map[string]*model.PaymentAttempt
}

func (s *stubPayments) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
func (s *stubPayments) Create(context.Context, *model.PaymentAttempt) error { return nil }
func (s *stubPayments) GetByID(context.Context, string) (*model.PaymentAttempt, error) {
	return nil, repository.ErrNotFound
}
func (s *stubPayments) GetByProviderRef(_ context.Context, ref string) (*model.PaymentAttempt, error) {
	a, ok := s.byRef[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}
func (s *stubPayments) CompareAndSetStatus(_ context.Context, id string, to model.PaymentStatus, from ...model.PaymentStatus) error {
	for _, a := range s.byRef {
		if a.ID != id {
			continue
		}
		for _, st := range from {
			if a.Status == st {
				a.Status = to
				return nil
			}
		}
		return repository.ErrInvalidTransition
	}
	return repository.ErrNotFound
}
func (s *stubPayments) SupersedeActive(context.Context, string) (int64, error) { return 0, nil }

type stubConfirmer struct{}

func (stubConfirmer) Get(context.Context, string) (*model.Reservation, error) {
	return nil, repository.ErrNotFound
}
func (stubConfirmer) Confirm(context.Context, string) error { return nil }

type stubMinter struct{}

func (stubMinter) IssueTickets(context.Context, string) ([]model.Ticket, error) { return nil, nil }
func (stubMinter) CancelForRefund(context.Context, string) (int64, error)       { return 0, nil }

func TestPaymentHandler_ProviderCallback(t *testing.T) {
	e := newTestEcho()

	payments := &stubPayments{byRef: map[string]*model.PaymentAttempt{
		"REF-1": {ID: "attempt-1", ReservationID: "res-1", Status: model.PaymentCreated, ProviderRef: "REF-1"},
	}}
	settlement := service.NewSettlementService(payments, stubConfirmer{}, stubMinter{}, provider.NewSandbox(), service.SystemClock())
	h := NewPaymentHandler(settlement)

	t.Run("200 on a known ref", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/v1/payments/provider-callback", `{"provider_ref":"REF-1","outcome":"failed"}`, "", h.ProviderCallback)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, model.PaymentFailed, payments.byRef["REF-1"].Status)
	})

	t.Run("200 on redelivery", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/v1/payments/provider-callback", `{"provider_ref":"REF-1","outcome":"failed"}`, "", h.ProviderCallback)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("404 on an unknown ref", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/v1/payments/provider-callback", `{"provider_ref":"REF-404","outcome":"captured"}`, "", h.ProviderCallback)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("400 on an unknown outcome", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/v1/payments/provider-callback", `{"provider_ref":"REF-1","outcome":"settled"}`, "", h.ProviderCallback)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("400 on a missing ref", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/v1/payments/provider-callback", `{"outcome":"captured"}`, "", h.ProviderCallback)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

type stubTickets struct {
	byID map[string]*model.Ticket
}

func (s *stubTickets) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
func (s *stubTickets) Create(context.Context, *model.Ticket) error { return nil }
func (s *stubTickets) GetByID(_ context.Context, id string) (*model.Ticket, error) {
	t, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}
func (s *stubTickets) ListByReservation(context.Context, string) ([]model.Ticket, error) {
	return nil, nil
}
func (s *stubTickets) ListByOwner(context.Context, string) ([]model.Ticket, error) { return nil, nil }
func (s *stubTickets) CompareAndSetStatus(_ context.Context, id string, from, to model.TicketStatus) error {
	t, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if t.Status != from {
		return repository.ErrInvalidTransition
	}
	t.Status = to
	return nil
}
func (s *stubTickets) CancelByReservation(context.Context, string) (int64, error) { return 0, nil }

func TestTicketHandler_Validate(t *testing.T) {
	e := newTestEcho()

	store := &stubTickets{byID: map[string]*model.Ticket{
		"tkt-1": {ID: "tkt-1", TicketNumber: "TKT-0A1B2-C3D4E5", ReservationID: "res-1", SeatID: 1, EventID: 7, OwnerID: "holder-1", Status: model.TicketConfirmed},
	}}
	svc := service.NewTicketService(store, newStubReservations(), nil, service.SystemClock())
	h := NewTicketHandler(svc)

	t.Run("first scan returns 200", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/v1/tickets/tkt-1/validate", "", "gate-1", h.Validate, "id", "tkt-1")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"status":"USED"`)
	})

	t.Run("replay returns 409 with first-use info", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/v1/tickets/tkt-1/validate", "", "gate-1", h.Validate, "id", "tkt-1")
		require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "already used")
	})

	t.Run("unknown ticket returns 404", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/v1/tickets/tkt-404/validate", "", "gate-1", h.Validate, "id", "tkt-404")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
