package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/eventhorizon-tickets/reservation-engine/internal/metrics"
	"github.com/eventhorizon-tickets/reservation-engine/internal/model"
	"github.com/eventhorizon-tickets/reservation-engine/internal/provider"
	"github.com/eventhorizon-tickets/reservation-engine/internal/repository"
)

// PaymentStore is the persistence surface for payment attempts.
type PaymentStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, a *model.PaymentAttempt) error
	GetByID(ctx context.Context, id string) (*model.PaymentAttempt, error)
	GetByProviderRef(ctx context.Context, providerRef string) (*model.PaymentAttempt, error)
	CompareAndSetStatus(ctx context.Context, id string, to model.PaymentStatus, from ...model.PaymentStatus) error
	SupersedeActive(ctx context.Context, reservationID string) (int64, error)
}

// ReservationConfirmer is the slice of the reservation service the
// settlement layer drives: reading a reservation and committing it
// after capture.
type ReservationConfirmer interface {
	Get(ctx context.Context, reservationID string) (*model.Reservation, error)
	Confirm(ctx context.Context, reservationID string) error
}

// TicketMinter issues and voids tickets on settlement outcomes.
type TicketMinter interface {
	IssueTickets(ctx context.Context, reservationID string) ([]model.Ticket, error)
	CancelForRefund(ctx context.Context, reservationID string) (int64, error)
}

// Outcome is the normalized result carried by a provider callback.
type Outcome string

const (
	OutcomeAuthorized Outcome = "authorized" // funds reserved, capture pending
	OutcomeCaptured   Outcome = "captured"   // charge finalized
	OutcomeFailed     Outcome = "failed"     // declined or cancelled by the payer
)

// ParseOutcome validates a callback outcome string.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeAuthorized, OutcomeCaptured, OutcomeFailed:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}

// SettlementService bridges held reservations to the external payment
// provider and drives each reservation to its terminal success state.
// Provider calls are made outside any database transaction; the
// reservation's ACTIVE state, not a lock, is what keeps its seats
// claimed during the round trip.
type SettlementService struct {
	payments     PaymentStore
	reservations ReservationConfirmer
	tickets      TicketMinter
	gateway      provider.PaymentProvider
	clock        Clock
}

// NewSettlementService constructs a SettlementService.
func NewSettlementService(payments PaymentStore, reservations ReservationConfirmer, tickets TicketMinter, gateway provider.PaymentProvider, clk Clock) *SettlementService {
	return &SettlementService{
		payments:     payments,
		reservations: reservations,
		tickets:      tickets,
		gateway:      gateway,
		clock:        clk,
	}
}

// CreateAttempt opens a payment attempt for an ACTIVE, unexpired
// reservation. The amount is always the server-side seat total;
// client-sent values are advisory and rejected with ErrAmountMismatch
// when they disagree. Older non-terminal attempts for the same
// reservation are superseded so that only one attempt is ever live.
func (s *SettlementService) CreateAttempt(ctx context.Context, reservationID, currency string, amountCents uint32) (*model.PaymentAttempt, error) {
	res, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	// Checked against expires_at, not just state: the sweep may lag.
	if res.State != model.ReservationActive || !s.clock.Now().Before(res.ExpiresAt) {
		return nil, ErrReservationNotActive
	}
	if amountCents != 0 && amountCents != res.TotalAmountCents {
		return nil, ErrAmountMismatch
	}
	if currency != "" && currency != res.Currency {
		return nil, ErrAmountMismatch
	}

	attempt := &model.PaymentAttempt{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		AmountCents:   res.TotalAmountCents,
		Currency:      res.Currency,
		Status:        model.PaymentCreated,
	}

	// Network round trip to the gateway, deliberately outside the
	// transaction below and without any seat-level lock held.
	order, err := s.gateway.CreateOrder(ctx, provider.OrderRequest{
		AmountCents: attempt.AmountCents,
		Currency:    attempt.Currency,
		Reference:   attempt.ID,
		Description: fmt.Sprintf("reservation %s", reservationID),
	})
	if err != nil {
		return nil, &ProviderError{Op: "create order", Err: err}
	}
	attempt.ProviderRef = order.Ref

	err = s.payments.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.payments.SupersedeActive(txCtx, reservationID); err != nil {
			return err
		}
		return s.payments.Create(txCtx, attempt)
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// HandleCallback processes a provider outcome for the referenced
// order. Delivery is at-least-once, so every path is idempotent keyed
// on providerRef plus target state: redelivering an outcome that has
// already been applied is a no-op, not an error.
//
// A captured outcome confirms the reservation and issues tickets. When
// confirmation loses the race against expiry (or the attempt was
// superseded before the payer completed the flow), the money has still
// been taken, so a compensating refund is issued instead of a storage
// rollback. A failed outcome only fails the attempt; the reservation
// stays ACTIVE so the holder may retry within the hold window.
func (s *SettlementService) HandleCallback(ctx context.Context, providerRef string, outcome Outcome) error {
	attempt, err := s.payments.GetByProviderRef(ctx, providerRef)
	if err != nil {
		return err
	}

	switch outcome {
	case OutcomeAuthorized:
		err := s.payments.CompareAndSetStatus(ctx, attempt.ID, model.PaymentAuthorized, model.PaymentCreated)
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil // already past CREATED
		}
		return err

	case OutcomeFailed:
		err := s.payments.CompareAndSetStatus(ctx, attempt.ID, model.PaymentFailed, model.PaymentCreated, model.PaymentAuthorized)
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil // already terminal
		}
		return err

	case OutcomeCaptured:
		return s.handleCaptured(ctx, attempt)
	}
	return fmt.Errorf("unknown outcome %q", outcome)
}

func (s *SettlementService) handleCaptured(ctx context.Context, attempt *model.PaymentAttempt) error {
	err := s.payments.CompareAndSetStatus(ctx, attempt.ID, model.PaymentCaptured, model.PaymentCreated, model.PaymentAuthorized)
	if errors.Is(err, repository.ErrInvalidTransition) {
		// A concurrent delivery may have moved the row after our
		// snapshot was read; never decide on the snapshot. Re-fetch
		// and branch on the row as it is now.
		fresh, ferr := s.payments.GetByID(ctx, attempt.ID)
		if ferr != nil {
			return ferr
		}
		switch fresh.Status {
		case model.PaymentCaptured:
			// Another delivery won the capture CAS but may have died
			// before finishing; confirm and issuance are idempotent,
			// so drive them again.
			return s.settleCaptured(ctx, fresh)
		case model.PaymentRefunded:
			// Compensation is recorded; re-issue the idempotent
			// provider call in case the recording delivery died
			// before the gateway saw it.
			if err := s.gateway.Refund(ctx, fresh.ProviderRef); err != nil {
				return &ProviderError{Op: "refund", Err: err}
			}
			return nil
		default:
			// The attempt was superseded or failed locally, yet the
			// provider captured money for it. Give it back.
			return s.compensate(ctx, fresh, fresh.Status)
		}
	}
	if err != nil {
		return err
	}
	metrics.PaymentsCaptured.Inc()
	attempt.Status = model.PaymentCaptured
	return s.settleCaptured(ctx, attempt)
}

// settleCaptured drives a CAPTURED attempt to its terminal outcome.
// Either the reservation confirms and tickets are issued, or expiry
// has already taken the seats and the charge is refunded. Every step
// is idempotent so a redelivery can resume where a crashed delivery
// stopped.
func (s *SettlementService) settleCaptured(ctx context.Context, attempt *model.PaymentAttempt) error {
	if err := s.reservations.Confirm(ctx, attempt.ReservationID); err != nil {
		if !errors.Is(err, ErrReservationNotActive) {
			return err
		}
		// Confirm rejects both a lapsed hold and a reservation an
		// earlier delivery already confirmed; only the former is
		// compensated.
		res, gerr := s.reservations.Get(ctx, attempt.ReservationID)
		if gerr != nil {
			return gerr
		}
		if res.State != model.ReservationConfirmed {
			// Capture arrived after the hold lapsed: expiry won the
			// state race, the seats are gone, so refund the charge.
			return s.compensate(ctx, attempt, model.PaymentCaptured)
		}
	}

	if _, err := s.tickets.IssueTickets(ctx, attempt.ReservationID); err != nil {
		return err
	}
	return nil
}

// compensate records the attempt as REFUNDED and then returns the
// charge at the provider. The status CAS runs first so that exactly
// one delivery owns the refund; losing the CAS means another delivery
// is compensating and the money must not be touched again here. The
// gateway call is idempotent, so a redelivery can re-issue it if the
// owning delivery dies between the two steps.
func (s *SettlementService) compensate(ctx context.Context, attempt *model.PaymentAttempt, from model.PaymentStatus) error {
	if err := s.payments.CompareAndSetStatus(ctx, attempt.ID, model.PaymentRefunded, from); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil // another delivery owns the compensation
		}
		return err
	}
	if err := s.gateway.Refund(ctx, attempt.ProviderRef); err != nil {
		return &ProviderError{Op: "refund", Err: err}
	}
	metrics.PaymentsRefunded.Inc()
	log.Printf("settlement: compensating refund for attempt %s (reservation %s)", attempt.ID, attempt.ReservationID)
	return nil
}

// Refund returns the funds of a CAPTURED attempt and cancels the
// tickets issued from its reservation. ErrInvalidState is returned
// for attempts in any other status.
func (s *SettlementService) Refund(ctx context.Context, attemptID string) error {
	attempt, err := s.payments.GetByID(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.Status != model.PaymentCaptured {
		return ErrInvalidState
	}
	if err := s.gateway.Refund(ctx, attempt.ProviderRef); err != nil {
		return &ProviderError{Op: "refund", Err: err}
	}
	if err := s.payments.CompareAndSetStatus(ctx, attemptID, model.PaymentRefunded, model.PaymentCaptured); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil // concurrent refund already applied
		}
		return err
	}
	metrics.PaymentsRefunded.Inc()
	_, err = s.tickets.CancelForRefund(ctx, attempt.ReservationID)
	return err
}

// Status returns the attempt for status polling.
func (s *SettlementService) Status(ctx context.Context, attemptID string) (*model.PaymentAttempt, error) {
	return s.payments.GetByID(ctx, attemptID)
}
