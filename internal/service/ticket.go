package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/eventhorizon-tickets/reservation-engine/internal/metrics"
	"github.com/eventhorizon-tickets/reservation-engine/internal/model"
	"github.com/eventhorizon-tickets/reservation-engine/internal/queue"
	"github.com/eventhorizon-tickets/reservation-engine/internal/repository"
	"github.com/eventhorizon-tickets/reservation-engine/internal/utils"
)

// TicketStore is the persistence surface for tickets.
type TicketStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, id string) (*model.Ticket, error)
	ListByReservation(ctx context.Context, reservationID string) ([]model.Ticket, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Ticket, error)
	CompareAndSetStatus(ctx context.Context, id string, from, to model.TicketStatus) error
	CancelByReservation(ctx context.Context, reservationID string) (int64, error)
}

// ReservationReader is the read-only slice of the reservation store
// the issuer needs.
type ReservationReader interface {
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	Seats(ctx context.Context, reservationID string) ([]model.ReservationSeat, error)
}

// EventPublisher emits domain events after issuance. Publishing is
// best effort; a broker outage never fails the settlement flow.
type EventPublisher interface {
	PublishTicketIssued(ctx context.Context, ev queue.TicketIssuedEvent) error
}

// ticketNumberRetries bounds regeneration on the (vanishingly rare)
// ticket-number collision before giving up on a seat.
const ticketNumberRetries = 5

// TicketService creates durable ticket records from settled
// reservations and handles gate check-in and refund cancellation.
type TicketService struct {
	tickets      TicketStore
	reservations ReservationReader
	publisher    EventPublisher
	clock        Clock
}

// NewTicketService constructs a TicketService. publisher may be nil,
// in which case no events are emitted.
func NewTicketService(tickets TicketStore, reservations ReservationReader, publisher EventPublisher, clk Clock) *TicketService {
	return &TicketService{tickets: tickets, reservations: reservations, publisher: publisher, clock: clk}
}

// IssueTickets mints one ticket per seat of a CONFIRMED reservation,
// each with a fresh checksum-bearing ticket number. The operation is
// idempotent per reservation: when tickets already exist they are
// returned as is, so a redelivered capture can never mint duplicates.
// A ticket-number collision is retried with a new number rather than
// failing the batch.
func (s *TicketService) IssueTickets(ctx context.Context, reservationID string) ([]model.Ticket, error) {
	existing, err := s.tickets.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.State != model.ReservationConfirmed {
		return nil, ErrInvalidState
	}
	seats, err := s.reservations.Seats(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	issued := make([]model.Ticket, 0, len(seats))
	err = s.tickets.WithTx(ctx, func(txCtx context.Context) error {
		for _, seat := range seats {
			t := model.Ticket{
				ID:            uuid.NewString(),
				ReservationID: reservationID,
				SeatID:        seat.SeatID,
				EventID:       res.EventID,
				OwnerID:       res.HolderID,
				PriceCents:    seat.PriceCents,
				Currency:      res.Currency,
				Status:        model.TicketConfirmed,
			}
			if err := s.createWithFreshNumber(txCtx, &t); err != nil {
				return err
			}
			issued = append(issued, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TicketsIssued.Add(float64(len(issued)))

	if s.publisher != nil {
		numbers := make([]string, 0, len(issued))
		for _, t := range issued {
			numbers = append(numbers, t.TicketNumber)
		}
		ev := queue.TicketIssuedEvent{
			ReservationID:    reservationID,
			EventID:          res.EventID,
			OwnerID:          res.HolderID,
			TicketNumbers:    numbers,
			TotalAmountCents: res.TotalAmountCents,
			Currency:         res.Currency,
			IssuedAt:         s.clock.Now().Format("2006-01-02T15:04:05Z"),
		}
		if err := s.publisher.PublishTicketIssued(ctx, ev); err != nil {
			log.Printf("tickets: publish issued event failed: %v", err)
		}
	}
	return issued, nil
}

func (s *TicketService) createWithFreshNumber(ctx context.Context, t *model.Ticket) error {
	for i := 0; i < ticketNumberRetries; i++ {
		num, err := utils.NewTicketNumber()
		if err != nil {
			return err
		}
		t.TicketNumber = num
		err = s.tickets.Create(ctx, t)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateTicketNumber) {
			return err
		}
	}
	return fmt.Errorf("seat %d: ticket number collisions exhausted retries", t.SeatID)
}

// CancelForRefund voids every CONFIRMED ticket of the reservation and
// reports how many were cancelled.
func (s *TicketService) CancelForRefund(ctx context.Context, reservationID string) (int64, error) {
	return s.tickets.CancelByReservation(ctx, reservationID)
}

// MarkUsed is the gate check-in: it transitions a ticket
// CONFIRMED→USED exactly once. ErrTicketAlreadyUsed is returned on a
// second scan together with the stored ticket so callers can report
// when the first scan happened; ErrTicketNotConfirmed is returned when
// the ticket was cancelled.
func (s *TicketService) MarkUsed(ctx context.Context, ticketID string) (*model.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.CompareAndSetStatus(ctx, ticketID, model.TicketConfirmed, model.TicketUsed); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			if t.Status == model.TicketUsed {
				return t, ErrTicketAlreadyUsed
			}
			return nil, ErrTicketNotConfirmed
		}
		return nil, err
	}
	metrics.TicketsCheckedIn.Inc()
	t.Status = model.TicketUsed
	return t, nil
}

// Get loads a single ticket.
func (s *TicketService) Get(ctx context.Context, ticketID string) (*model.Ticket, error) {
	return s.tickets.GetByID(ctx, ticketID)
}

// ListByOwner returns the holder's tickets, newest first.
func (s *TicketService) ListByOwner(ctx context.Context, ownerID string) ([]model.Ticket, error) {
	return s.tickets.ListByOwner(ctx, ownerID)
}
