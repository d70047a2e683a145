package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/eventhorizon-tickets/reservation-engine/internal/model"
)

// ReservationRepo provides CRUD operations for reservations and their
// seat lists. Reservation state changes race between the expiry sweep,
// holder cancellation and settlement confirmation, so every transition
// out of ACTIVE goes through CompareAndSetState: whichever writer wins
// the single check-and-set, the loser sees ErrInvalidTransition and
// backs off. All timestamps are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// WithTx runs fn inside a transaction scoped to this repository's
// database handle. Nested calls join the surrounding transaction.
func (r *ReservationRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// Create inserts a new reservation row. The caller supplies the id and
// expiry; created_at/updated_at default in the database.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (id, event_id, holder_id, state, total_amount_cents, currency, expires_at)
			   VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := conn(ctx, r.db).ExecContext(ctx, q,
		res.ID, res.EventID, res.HolderID, res.State, res.TotalAmountCents, res.Currency,
		res.ExpiresAt.UTC().Format("2006-01-02 15:04:05"),
	)
	return err
}

// CreateSeatsBulk inserts the reservation's seat rows in a single
// statement. Passing an empty slice has no effect and returns nil.
func (r *ReservationRepo) CreateSeatsBulk(ctx context.Context, seats []model.ReservationSeat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO reservation_seats (reservation_id, seat_id, price_cents) VALUES `
	args := make([]interface{}, 0, len(seats)*3)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, s.ReservationID, s.SeatID, s.PriceCents)
	}
	_, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	return err
}

// GetByID loads a reservation by id. ErrNotFound is returned when no
// row exists.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT id, event_id, holder_id, state, total_amount_cents, currency, created_at, expires_at, updated_at
			   FROM reservations WHERE id = ?`
	var res model.Reservation
	err := conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
		&res.ID, &res.EventID, &res.HolderID, &res.State, &res.TotalAmountCents,
		&res.Currency, &res.CreatedAt, &res.ExpiresAt, &res.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SeatIDs returns the seat ids held under the reservation, in
// ascending order.
func (r *ReservationRepo) SeatIDs(ctx context.Context, reservationID string) ([]uint64, error) {
	const q = `SELECT seat_id FROM reservation_seats WHERE reservation_id = ? ORDER BY seat_id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Seats returns the reservation's seat rows including hold-time
// prices, in ascending seat id order.
func (r *ReservationRepo) Seats(ctx context.Context, reservationID string) ([]model.ReservationSeat, error) {
	const q = `SELECT id, reservation_id, seat_id, price_cents, created_at
			   FROM reservation_seats WHERE reservation_id = ? ORDER BY seat_id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.ReservationSeat
	for rows.Next() {
		var s model.ReservationSeat
		if err := rows.Scan(&s.ID, &s.ReservationID, &s.SeatID, &s.PriceCents, &s.CreatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// CompareAndSetState transitions a reservation from one state to
// another in a single guarded UPDATE. ErrInvalidTransition is returned
// when the row was not in the expected state (or does not exist);
// confirm and expiry racing on the same reservation are serialized by
// exactly this statement.
func (r *ReservationRepo) CompareAndSetState(ctx context.Context, id string, from, to model.ReservationState) error {
	const q = `UPDATE reservations SET state = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND state = ?`
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

// DueForExpiry returns ids of ACTIVE reservations whose expires_at has
// passed, oldest first, capped at limit. The (state, expires_at) index
// keeps this scan cheap for the sweep.
func (r *ReservationRepo) DueForExpiry(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const q = `SELECT id FROM reservations
			   WHERE state = 'ACTIVE' AND expires_at < ?
			   ORDER BY expires_at LIMIT ?`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, now.UTC().Format("2006-01-02 15:04:05"), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ReservationDetail aggregates a reservation with its seats for
// holder-facing listings.
type ReservationDetail struct {
	ID               string                  `json:"id"`
	EventID          uint64                  `json:"event_id"`
	State            model.ReservationState  `json:"state"`
	TotalAmountCents uint32                  `json:"total_amount_cents"`
	Currency         string                  `json:"currency"`
	ExpiresAt        string                  `json:"expires_at"`
	Seats            []ReservationDetailSeat `json:"seats"`
}

// ReservationDetailSeat is one seat row inside a ReservationDetail.
type ReservationDetailSeat struct {
	SeatID     uint64 `json:"seat_id"`
	RowLabel   string `json:"row_label"`
	SeatNumber uint32 `json:"seat_number"`
	PriceCents uint32 `json:"price_cents"`
}

// GetDetailForHolder returns a single reservation with seat labels,
// enforcing ownership. ErrNotFound is returned when the reservation
// does not exist and ErrForbidden when it belongs to another holder.
func (r *ReservationRepo) GetDetailForHolder(ctx context.Context, reservationID, holderID string) (*ReservationDetail, error) {
	const q = `SELECT id, event_id, holder_id, state, total_amount_cents, currency, expires_at
			   FROM reservations WHERE id = ?`
	var det ReservationDetail
	var actualHolder string
	var expiresAt time.Time
	err := conn(ctx, r.db).QueryRowContext(ctx, q, reservationID).Scan(
		&det.ID, &det.EventID, &actualHolder, &det.State, &det.TotalAmountCents, &det.Currency, &expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if actualHolder != holderID {
		return nil, ErrForbidden
	}
	det.ExpiresAt = expiresAt.UTC().Format(time.RFC3339)
	det.Seats = []ReservationDetailSeat{}
	if err := r.fillSeats(ctx, map[string]*ReservationDetail{det.ID: &det}); err != nil {
		return nil, err
	}
	return &det, nil
}

// ListByHolder returns all reservations for the given holder, newest
// first, each with its seat labels and hold-time prices. When no
// reservations exist, an empty slice is returned.
func (r *ReservationRepo) ListByHolder(ctx context.Context, holderID string) ([]ReservationDetail, error) {
	const q = `SELECT id, event_id, state, total_amount_cents, currency, expires_at
			   FROM reservations WHERE holder_id = ? ORDER BY created_at DESC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, holderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]ReservationDetail, 0)
	byID := make(map[string]*ReservationDetail)
	for rows.Next() {
		var d ReservationDetail
		var expiresAt time.Time
		if err := rows.Scan(&d.ID, &d.EventID, &d.State, &d.TotalAmountCents, &d.Currency, &expiresAt); err != nil {
			return nil, err
		}
		d.ExpiresAt = expiresAt.UTC().Format(time.RFC3339)
		d.Seats = []ReservationDetailSeat{}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}
	for i := range details {
		byID[details[i].ID] = &details[i]
	}
	if err := r.fillSeats(ctx, byID); err != nil {
		return nil, err
	}
	return details, nil
}

// fillSeats populates the Seats slice of every detail in one query.
func (r *ReservationRepo) fillSeats(ctx context.Context, byID map[string]*ReservationDetail) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]interface{}, 0, len(byID))
	marks := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
		marks = append(marks, "?")
	}
	q := `SELECT rs.reservation_id, rs.seat_id, se.row_label, se.seat_number, rs.price_cents
		  FROM reservation_seats rs
		  JOIN seats se ON se.id = rs.seat_id
		  WHERE rs.reservation_id IN (` + strings.Join(marks, ",") + `)
		  ORDER BY se.row_label, se.seat_number`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var rid string
		var seat ReservationDetailSeat
		if err := rows.Scan(&rid, &seat.SeatID, &seat.RowLabel, &seat.SeatNumber, &seat.PriceCents); err != nil {
			return err
		}
		if det, ok := byID[rid]; ok {
			det.Seats = append(det.Seats, seat)
		}
	}
	return rows.Err()
}
