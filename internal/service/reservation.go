package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/eventhorizon-tickets/reservation-engine/internal/metrics"
	"github.com/eventhorizon-tickets/reservation-engine/internal/model"
	"github.com/eventhorizon-tickets/reservation-engine/internal/repository"
)

// SeatInventory is the slice of the seat repository the reservation
// service needs. It is the single authority over seat rows; every
// contended transition happens behind one of these calls.
type SeatInventory interface {
	TryHold(ctx context.Context, seatIDs []uint64, reservationID string) (granted, conflicts []uint64, err error)
	Release(ctx context.Context, seatIDs []uint64, reservationID string) (int64, error)
	ConfirmSold(ctx context.Context, seatIDs []uint64, reservationID string) error
	GetByIDs(ctx context.Context, seatIDs []uint64) ([]model.Seat, error)
}

// ReservationStore is the persistence surface for reservation rows.
type ReservationStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, res *model.Reservation) error
	CreateSeatsBulk(ctx context.Context, seats []model.ReservationSeat) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	SeatIDs(ctx context.Context, reservationID string) ([]uint64, error)
	CompareAndSetState(ctx context.Context, id string, from, to model.ReservationState) error
	DueForExpiry(ctx context.Context, now time.Time, limit int) ([]string, error)
}

const (
	// DefaultHoldTTL bounds how long an unconfirmed hold keeps its
	// seats.
	DefaultHoldTTL = 10 * time.Minute

	// DefaultSweepBatch caps how many expired reservations one sweep
	// pass processes.
	DefaultSweepBatch = 100
)

// ReservationService orchestrates the hold lifecycle: all-or-nothing
// creation on top of the inventory's per-seat CAS, holder
// cancellation, settlement-driven confirmation and the expiry sweep.
type ReservationService struct {
	seats        SeatInventory
	reservations ReservationStore
	clock        Clock
	holdTTL      time.Duration
	sweepBatch   int
}

// ReservationOption customises a ReservationService.
type ReservationOption func(*ReservationService)

// WithHoldTTL overrides the default hold duration.
func WithHoldTTL(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithSweepBatch overrides how many reservations one sweep pass expires.
func WithSweepBatch(n int) ReservationOption {
	return func(s *ReservationService) {
		if n > 0 {
			s.sweepBatch = n
		}
	}
}

// NewReservationService constructs a ReservationService.
func NewReservationService(seats SeatInventory, reservations ReservationStore, clk Clock, opts ...ReservationOption) *ReservationService {
	s := &ReservationService{
		seats:        seats,
		reservations: reservations,
		clock:        clk,
		holdTTL:      DefaultHoldTTL,
		sweepBatch:   DefaultSweepBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create places an all-or-nothing hold on the requested seats for
// holderID and persists a new ACTIVE reservation expiring after the
// hold TTL. The inventory itself permits partial grants, but at this
// layer a single unavailable seat rejects the whole request: the
// partial grant is released and a SeatConflictError listing the
// contested seats is returned. ErrSeatNotFound is returned when a
// seat id does not exist.
func (s *ReservationService) Create(ctx context.Context, eventID uint64, seatIDs []uint64, holderID string) (*model.Reservation, error) {
	unique := dedupe(seatIDs)
	if len(unique) == 0 {
		return nil, ErrSeatNotFound
	}

	now := s.clock.Now()
	reservationID := uuid.NewString()
	res := &model.Reservation{
		ID:        reservationID,
		EventID:   eventID,
		HolderID:  holderID,
		State:     model.ReservationActive,
		CreatedAt: now,
		ExpiresAt: now.Add(s.holdTTL),
	}

	err := s.reservations.WithTx(ctx, func(txCtx context.Context) error {
		seats, err := s.seats.GetByIDs(txCtx, unique)
		if err != nil {
			return err
		}
		if len(seats) != len(unique) {
			return ErrSeatNotFound
		}
		priceBySeat := make(map[uint64]uint32, len(seats))
		for _, seat := range seats {
			priceBySeat[seat.ID] = seat.PriceCents
			res.TotalAmountCents += seat.PriceCents
			if res.Currency == "" {
				res.Currency = seat.Currency
			}
		}

		granted, conflicts, err := s.seats.TryHold(txCtx, unique, reservationID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			// Give back whatever was grabbed before reporting the
			// conflict; a partial hold is never surfaced to clients.
			if _, relErr := s.seats.Release(txCtx, granted, reservationID); relErr != nil {
				return relErr
			}
			metrics.HoldConflicts.Add(float64(len(conflicts)))
			return &SeatConflictError{Conflicts: conflicts}
		}

		if err := s.reservations.Create(txCtx, res); err != nil {
			return err
		}
		rows := make([]model.ReservationSeat, 0, len(granted))
		for _, id := range granted {
			rows = append(rows, model.ReservationSeat{
				ReservationID: reservationID,
				SeatID:        id,
				PriceCents:    priceBySeat[id],
			})
		}
		return s.reservations.CreateSeatsBulk(txCtx, rows)
	})
	if err != nil {
		return nil, err
	}
	metrics.HoldsGranted.Add(float64(len(unique)))
	return res, nil
}

// Cancel releases an ACTIVE reservation on behalf of its holder.
// repository.ErrNotFound and repository.ErrForbidden pass through for
// the handler to map; a reservation already in a terminal state yields
// ErrReservationNotActive.
func (s *ReservationService) Cancel(ctx context.Context, reservationID, holderID string) error {
	return s.reservations.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.reservations.GetByID(txCtx, reservationID)
		if err != nil {
			return err
		}
		if res.HolderID != holderID {
			return repository.ErrForbidden
		}
		if err := s.reservations.CompareAndSetState(txCtx, reservationID, model.ReservationActive, model.ReservationReleased); err != nil {
			if errors.Is(err, repository.ErrInvalidTransition) {
				return ErrReservationNotActive
			}
			return err
		}
		seatIDs, err := s.reservations.SeatIDs(txCtx, reservationID)
		if err != nil {
			return err
		}
		_, err = s.seats.Release(txCtx, seatIDs, reservationID)
		return err
	})
}

// Confirm is called by the settlement layer after a capture. It moves
// the reservation ACTIVE→CONFIRMED and its seats HELD→SOLD in one
// transaction. Expiry is checked against expires_at, not just state,
// because the sweep may lag; and the state CAS makes confirmation and
// expiry mutually exclusive: whichever fires first wins, the loser
// gets ErrReservationNotActive.
func (s *ReservationService) Confirm(ctx context.Context, reservationID string) error {
	return s.reservations.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.reservations.GetByID(txCtx, reservationID)
		if err != nil {
			return err
		}
		if res.State != model.ReservationActive || !s.clock.Now().Before(res.ExpiresAt) {
			return ErrReservationNotActive
		}
		if err := s.reservations.CompareAndSetState(txCtx, reservationID, model.ReservationActive, model.ReservationConfirmed); err != nil {
			if errors.Is(err, repository.ErrInvalidTransition) {
				return ErrReservationNotActive
			}
			return err
		}
		seatIDs, err := s.reservations.SeatIDs(txCtx, reservationID)
		if err != nil {
			return err
		}
		return s.seats.ConfirmSold(txCtx, seatIDs, reservationID)
	})
}

// Get loads a reservation by id.
func (s *ReservationService) Get(ctx context.Context, reservationID string) (*model.Reservation, error) {
	return s.reservations.GetByID(ctx, reservationID)
}

// ReconcileExpired sweeps ACTIVE reservations whose TTL has elapsed,
// marking them EXPIRED and returning their seats to AVAILABLE. Each
// reservation is expired in its own transaction guarded by the state
// CAS, so the sweep is idempotent and safe to run concurrently with
// itself and with Confirm: a reservation that loses its CAS is simply
// skipped. A failure on one reservation is logged and does not stop
// the pass; the next tick retries.
func (s *ReservationService) ReconcileExpired(ctx context.Context) (int, error) {
	due, err := s.reservations.DueForExpiry(ctx, s.clock.Now(), s.sweepBatch)
	if err != nil {
		return 0, err
	}
	expired := 0
	var lastErr error
	for _, id := range due {
		err := s.reservations.WithTx(ctx, func(txCtx context.Context) error {
			if err := s.reservations.CompareAndSetState(txCtx, id, model.ReservationActive, model.ReservationExpired); err != nil {
				return err
			}
			seatIDs, err := s.reservations.SeatIDs(txCtx, id)
			if err != nil {
				return err
			}
			_, err = s.seats.Release(txCtx, seatIDs, id)
			return err
		})
		if errors.Is(err, repository.ErrInvalidTransition) {
			// Confirmed, cancelled or already swept in the meantime.
			continue
		}
		if err != nil {
			log.Printf("sweeper: expire %s failed: %v", id, err)
			lastErr = err
			continue
		}
		expired++
	}
	metrics.ReservationsExpired.Add(float64(expired))
	return expired, lastErr
}

// dedupe drops zero and repeated seat ids, preserving first-seen order.
func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
