package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/eventhorizon-tickets/reservation-engine/internal/model"
)

// PaymentRepo provides data access to the payment_attempts table.
// Provider callbacks are delivered at least once, so status changes go
// through guarded UPDATEs; redelivering an outcome that has already
// been applied affects zero rows and the caller treats it as a no-op.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the provided database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// WithTx runs fn inside a transaction scoped to this repository's
// database handle. Nested calls join the surrounding transaction.
func (r *PaymentRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// Create inserts a new payment attempt.
func (r *PaymentRepo) Create(ctx context.Context, a *model.PaymentAttempt) error {
	const q = `INSERT INTO payment_attempts (id, reservation_id, amount_cents, currency, provider_ref, status)
			   VALUES (?, ?, ?, ?, ?, ?)`
	_, err := conn(ctx, r.db).ExecContext(ctx, q,
		a.ID, a.ReservationID, a.AmountCents, a.Currency, a.ProviderRef, a.Status,
	)
	return err
}

// GetByID loads a payment attempt by id. ErrNotFound is returned when
// no row exists.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*model.PaymentAttempt, error) {
	const q = `SELECT id, reservation_id, amount_cents, currency, provider_ref, status, created_at, updated_at
			   FROM payment_attempts WHERE id = ?`
	return r.scanOne(conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

// GetByProviderRef loads a payment attempt by the provider's order
// reference. This is the lookup used by the callback handler, which
// only knows the provider-side id.
func (r *PaymentRepo) GetByProviderRef(ctx context.Context, providerRef string) (*model.PaymentAttempt, error) {
	const q = `SELECT id, reservation_id, amount_cents, currency, provider_ref, status, created_at, updated_at
			   FROM payment_attempts WHERE provider_ref = ?`
	return r.scanOne(conn(ctx, r.db).QueryRowContext(ctx, q, providerRef))
}

func (r *PaymentRepo) scanOne(row *sql.Row) (*model.PaymentAttempt, error) {
	var a model.PaymentAttempt
	err := row.Scan(&a.ID, &a.ReservationID, &a.AmountCents, &a.Currency, &a.ProviderRef, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CompareAndSetStatus transitions an attempt to the target status only
// when its current status is one of from. ErrInvalidTransition is
// returned when the row was in none of the expected states, which the
// callback handler uses to detect redeliveries.
func (r *PaymentRepo) CompareAndSetStatus(ctx context.Context, id string, to model.PaymentStatus, from ...model.PaymentStatus) error {
	q := `UPDATE payment_attempts SET status = ?, updated_at = UTC_TIMESTAMP()
		  WHERE id = ? AND status IN (` + placeholders(len(from)) + `)`
	args := make([]interface{}, 0, len(from)+2)
	args = append(args, to, id)
	for _, f := range from {
		args = append(args, f)
	}
	res, err := conn(ctx, r.db).ExecContext(ctx, q, args...)
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

// SupersedeActive marks every non-terminal attempt for the reservation
// FAILED. Called before creating a replacement attempt so that only
// one attempt per reservation is ever live; the superseded rows stay
// in the table for audit.
func (r *PaymentRepo) SupersedeActive(ctx context.Context, reservationID string) (int64, error) {
	const q = `UPDATE payment_attempts SET status = 'FAILED', updated_at = UTC_TIMESTAMP()
			   WHERE reservation_id = ? AND status IN ('CREATED', 'AUTHORIZED')`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, reservationID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
