package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eventhorizon-tickets/reservation-engine/internal/model"
	"github.com/eventhorizon-tickets/reservation-engine/internal/provider"
	"github.com/eventhorizon-tickets/reservation-engine/internal/queue"
	"github.com/eventhorizon-tickets/reservation-engine/internal/repository"
)

// In-memory fakes for the store interfaces. Every fake takes its own
// lock so concurrency tests exercise the same interleavings the SQL
// guarded updates allow.

type fakeInventory struct {
	mu    sync.Mutex
	seats map[uint64]*model.Seat
}

func newFakeInventory(seats ...model.Seat) *fakeInventory {
	inv := &fakeInventory{seats: make(map[uint64]*model.Seat, len(seats))}
	for i := range seats {
		s := seats[i]
		if s.Status == "" {
			s.Status = model.SeatAvailable
		}
		if s.Currency == "" {
			s.Currency = "USD"
		}
		inv.seats[s.ID] = &s
	}
	return inv
}

func (f *fakeInventory) TryHold(_ context.Context, seatIDs []uint64, reservationID string) (granted, conflicts []uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range seatIDs {
		seat, ok := f.seats[id]
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

func (f *fakeInventory) Release(_ context.Context, seatIDs []uint64, reservationID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range seatIDs {
		seat, ok := f.seats[id]
		if !ok || seat.Status != model.SeatHeld || seat.HoldRef == nil || *seat.HoldRef != reservationID {
			continue
		}
		seat.Status = model.SeatAvailable
		seat.HoldRef = nil
		n++
	}
	return n, nil
}

func (f *fakeInventory) ConfirmSold(_ context.Context, seatIDs []uint64, reservationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range seatIDs {
		seat, ok := f.seats[id]
		if !ok || seat.Status != model.SeatHeld || seat.HoldRef == nil || *seat.HoldRef != reservationID {
			return repository.ErrInvalidTransition
		}
	}
	for _, id := range seatIDs {
		f.seats[id].Status = model.SeatSold
		f.seats[id].HoldRef = nil
	}
	return nil
}

func (f *fakeInventory) GetByIDs(_ context.Context, seatIDs []uint64) ([]model.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		if seat, ok := f.seats[id]; ok {
			out = append(out, *seat)
		}
	}
	return out, nil
}

func (f *fakeInventory) statusOf(id uint64) model.SeatStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seat, ok := f.seats[id]; ok {
		return seat.Status
	}
	return ""
}

type fakeReservationStore struct {
	mu           sync.Mutex
	reservations map[string]*model.Reservation
	seats        map[string][]model.ReservationSeat
}

func newFakeReservationStore() *fakeReservationStore {
	return &fakeReservationStore{
		reservations: make(map[string]*model.Reservation),
		seats:        make(map[string][]model.ReservationSeat),
	}
}

func (f *fakeReservationStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeReservationStore) Create(_ context.Context, res *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *res
	f.reservations[res.ID] = &cp
	return nil
}

func (f *fakeReservationStore) CreateSeatsBulk(_ context.Context, seats []model.ReservationSeat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range seats {
		f.seats[s.ReservationID] = append(f.seats[s.ReservationID], s)
	}
	return nil
}

func (f *fakeReservationStore) GetByID(_ context.Context, id string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (f *fakeReservationStore) SeatIDs(_ context.Context, reservationID string) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint64, 0, len(f.seats[reservationID]))
	for _, s := range f.seats[reservationID] {
		ids = append(ids, s.SeatID)
	}
	return ids, nil
}

func (f *fakeReservationStore) Seats(_ context.Context, reservationID string) ([]model.ReservationSeat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ReservationSeat(nil), f.seats[reservationID]...), nil
}

func (f *fakeReservationStore) CompareAndSetState(_ context.Context, id string, from, to model.ReservationState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[id]
	if !ok || res.State != from {
		return repository.ErrInvalidTransition
	}
	res.State = to
	res.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeReservationStore) DueForExpiry(_ context.Context, now time.Time, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []string
	for id, res := range f.reservations {
		if res.State == model.ReservationActive && !now.Before(res.ExpiresAt) {
			due = append(due, id)
			if len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

func (f *fakeReservationStore) stateOf(id string) model.ReservationState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if res, ok := f.reservations[id]; ok {
		return res.State
	}
	return ""
}

type fakePaymentStore struct {
	mu       sync.Mutex
	attempts map[string]*model.PaymentAttempt
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{attempts: make(map[string]*model.PaymentAttempt)}
}

func (f *fakePaymentStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakePaymentStore) Create(_ context.Context, a *model.PaymentAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.attempts[a.ID] = &cp
	return nil
}

func (f *fakePaymentStore) GetByID(_ context.Context, id string) (*model.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakePaymentStore) GetByProviderRef(_ context.Context, providerRef string) (*model.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.ProviderRef == providerRef {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePaymentStore) CompareAndSetStatus(_ context.Context, id string, to model.PaymentStatus, from ...model.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, s := range from {
		if a.Status == s {
			a.Status = to
			a.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return repository.ErrInvalidTransition
}

func (f *fakePaymentStore) SupersedeActive(_ context.Context, reservationID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, a := range f.attempts {
		if a.ReservationID == reservationID && (a.Status == model.PaymentCreated || a.Status == model.PaymentAuthorized) {
			a.Status = model.PaymentFailed
			n++
		}
	}
	return n, nil
}

func (f *fakePaymentStore) statusOf(id string) model.PaymentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.attempts[id]; ok {
		return a.Status
	}
	return ""
}

type fakeTicketStore struct {
	mu          sync.Mutex
	tickets     map[string]*model.Ticket
	byNumber    map[string]string
	failCreates int // force this many duplicate-number errors
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{
		tickets:  make(map[string]*model.Ticket),
		byNumber: make(map[string]string),
	}
}

func (f *fakeTicketStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeTicketStore) Create(_ context.Context, t *model.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreates > 0 {
		f.failCreates--
		return repository.ErrDuplicateTicketNumber
	}
	if _, dup := f.byNumber[t.TicketNumber]; dup {
		return repository.ErrDuplicateTicketNumber
	}
	cp := *t
	f.tickets[t.ID] = &cp
	f.byNumber[t.TicketNumber] = t.ID
	return nil
}

func (f *fakeTicketStore) GetByID(_ context.Context, id string) (*model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTicketStore) ListByReservation(_ context.Context, reservationID string) ([]model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Ticket
	for _, t := range f.tickets {
		if t.ReservationID == reservationID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTicketStore) ListByOwner(_ context.Context, ownerID string) ([]model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Ticket
	for _, t := range f.tickets {
		if t.OwnerID == ownerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTicketStore) CompareAndSetStatus(_ context.Context, id string, from, to model.TicketStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	if t.Status != from {
		return repository.ErrInvalidTransition
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeTicketStore) CancelByReservation(_ context.Context, reservationID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tickets {
		if t.ReservationID == reservationID && t.Status == model.TicketConfirmed {
			t.Status = model.TicketCancelled
			n++
		}
	}
	return n, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	nextOrder int
	refunded  map[string]bool
	createErr error
	refundErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{refunded: make(map[string]bool)}
}

func (f *fakeGateway) CreateOrder(_ context.Context, req provider.OrderRequest) (provider.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return provider.Order{}, f.createErr
	}
	f.nextOrder++
	ref := fmt.Sprintf("REF-%d", f.nextOrder)
	return provider.Order{Ref: ref, ApproveURL: "https://pay.example/" + ref}, nil
}

func (f *fakeGateway) Refund(_ context.Context, providerRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return f.refundErr
	}
	f.refunded[providerRef] = true
	return nil
}

func (f *fakeGateway) wasRefunded(providerRef string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refunded[providerRef]
}

// flakyConfirmer wraps a ReservationConfirmer and fails the first
// confirmFails calls to Confirm, standing in for transient storage
// errors between a capture and its confirmation.
type flakyConfirmer struct {
	mu           sync.Mutex
	inner        ReservationConfirmer
	confirmFails int
}

func (f *flakyConfirmer) Get(ctx context.Context, reservationID string) (*model.Reservation, error) {
	return f.inner.Get(ctx, reservationID)
}

func (f *flakyConfirmer) Confirm(ctx context.Context, reservationID string) error {
	f.mu.Lock()
	if f.confirmFails > 0 {
		f.confirmFails--
		f.mu.Unlock()
		return errors.New("storage hiccup")
	}
	f.mu.Unlock()
	return f.inner.Confirm(ctx, reservationID)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.TicketIssuedEvent
}

func (f *fakePublisher) PublishTicketIssued(_ context.Context, ev queue.TicketIssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}
