package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/eventhorizon-tickets/reservation-engine/internal/model"
)

// TicketRepo provides data access to the tickets table. Ticket
// numbers are guarded by a unique index; an insert that collides
// surfaces ErrDuplicateTicketNumber so the issuer can regenerate the
// number instead of failing the batch.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the provided database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// WithTx runs fn inside a transaction scoped to this repository's
// database handle. Nested calls join the surrounding transaction.
func (r *TicketRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// Create inserts a new ticket. ErrDuplicateTicketNumber is returned
// when the ticket number is already taken.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	const q = `INSERT INTO tickets (id, ticket_number, reservation_id, seat_id, event_id, owner_id, price_cents, currency, status)
			   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := conn(ctx, r.db).ExecContext(ctx, q,
		t.ID, t.TicketNumber, t.ReservationID, t.SeatID, t.EventID, t.OwnerID, t.PriceCents, t.Currency, t.Status,
	)
	if isDuplicateKey(err) {
		return ErrDuplicateTicketNumber
	}
	return err
}

// GetByID loads a ticket by id. ErrNotFound is returned when no row
// exists.
func (r *TicketRepo) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	const q = `SELECT id, ticket_number, reservation_id, seat_id, event_id, owner_id, price_cents, currency, status, created_at, updated_at
			   FROM tickets WHERE id = ?`
	return r.scanOne(conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

func (r *TicketRepo) scanOne(row *sql.Row) (*model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(&t.ID, &t.TicketNumber, &t.ReservationID, &t.SeatID, &t.EventID, &t.OwnerID, &t.PriceCents, &t.Currency, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByReservation returns every ticket issued from the reservation,
// in ascending seat id order. An empty slice means no tickets have
// been issued yet; the issuer uses this to keep redelivered captures
// from minting duplicates.
func (r *TicketRepo) ListByReservation(ctx context.Context, reservationID string) ([]model.Ticket, error) {
	const q = `SELECT id, ticket_number, reservation_id, seat_id, event_id, owner_id, price_cents, currency, status, created_at, updated_at
			   FROM tickets WHERE reservation_id = ? ORDER BY seat_id`
	return r.list(ctx, q, reservationID)
}

// ListByOwner returns every ticket owned by the given identity, newest
// first.
func (r *TicketRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Ticket, error) {
	const q = `SELECT id, ticket_number, reservation_id, seat_id, event_id, owner_id, price_cents, currency, status, created_at, updated_at
			   FROM tickets WHERE owner_id = ? ORDER BY created_at DESC`
	return r.list(ctx, q, ownerID)
}

func (r *TicketRepo) list(ctx context.Context, q string, arg interface{}) ([]model.Ticket, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets := make([]model.Ticket, 0)
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.TicketNumber, &t.ReservationID, &t.SeatID, &t.EventID, &t.OwnerID, &t.PriceCents, &t.Currency, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// CompareAndSetStatus transitions a ticket between statuses in a
// single guarded UPDATE. ErrInvalidTransition is returned when the
// ticket was not in the expected status.
func (r *TicketRepo) CompareAndSetStatus(ctx context.Context, id string, from, to model.TicketStatus) error {
	const q = `UPDATE tickets SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrInvalidTransition
	}
	return nil
}

// CancelByReservation transitions all CONFIRMED tickets of the
// reservation to CANCELLED, returning how many were affected. Used by
// the refund path; USED tickets are left alone.
func (r *TicketRepo) CancelByReservation(ctx context.Context, reservationID string) (int64, error) {
	const q = `UPDATE tickets SET status = 'CANCELLED', updated_at = UTC_TIMESTAMP()
			   WHERE reservation_id = ? AND status = 'CONFIRMED'`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, reservationID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
