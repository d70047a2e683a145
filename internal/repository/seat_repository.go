package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/eventhorizon-tickets/reservation-engine/internal/model"
)

// SeatRepo provides data access to the seats table. It is the only
// component allowed to mutate seat rows; every contended transition
// goes through a per-seat compare-and-swap so that no two reservations
// can ever hold the same seat. All timestamps are stored in UTC.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the provided database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// WithTx runs fn inside a transaction scoped to this repository's
// database handle. Nested calls join the surrounding transaction.
func (r *SeatRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// TryHold attempts to transition every listed seat from AVAILABLE to
// HELD with hold_ref set to reservationID. Each seat is claimed with
// its own compare-and-swap UPDATE, so a seat can never end up in an
// inconsistent intermediate state, but the call is not all-or-nothing
// across the set: seats already HELD, SOLD or BLOCKED come back in
// conflicts and the rest in granted. Seats are processed in ascending
// id order so that overlapping multi-seat requests acquire row locks
// in the same sequence and cannot deadlock.
func (r *SeatRepo) TryHold(ctx context.Context, seatIDs []uint64, reservationID string) (granted, conflicts []uint64, err error) {
	ids := make([]uint64, len(seatIDs))
	copy(ids, seatIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	const q = `UPDATE seats
			   SET status = 'HELD', hold_ref = ?, updated_at = UTC_TIMESTAMP()
			   WHERE id = ? AND status = 'AVAILABLE'`
	ex := conn(ctx, r.db)
	granted = make([]uint64, 0, len(ids))
	conflicts = make([]uint64, 0)
	for _, id := range ids {
		res, execErr := ex.ExecContext(ctx, q, reservationID, id)
		if execErr != nil {
			return nil, nil, execErr
		}
		n, execErr := res.RowsAffected()
		if execErr != nil {
			return nil, nil, execErr
		}
		if n == 1 {
			granted = append(granted, id)
		} else {
			conflicts = append(conflicts, id)
		}
	}
	return granted, conflicts, nil
}

// Release transitions seats whose hold_ref matches reservationID from
// HELD back to AVAILABLE and clears the reference. Seats not held by
// this reservation are silently skipped, which makes double-release
// races (explicit cancel vs. expiry sweep) harmless. The number of
// seats actually released is returned.
func (r *SeatRepo) Release(ctx context.Context, seatIDs []uint64, reservationID string) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	q := `UPDATE seats
		  SET status = 'AVAILABLE', hold_ref = NULL, updated_at = UTC_TIMESTAMP()
		  WHERE id IN (` + placeholders(len(seatIDs)) + `) AND status = 'HELD' AND hold_ref = ?`
	args := make([]interface{}, 0, len(seatIDs)+1)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	args = append(args, reservationID)
	res, err := conn(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ConfirmSold transitions seats held by reservationID from HELD to
// SOLD, clearing hold_ref. Unlike Release this is strict: when any of
// the listed seats is not currently HELD by that reservation the whole
// statement is treated as a failed transition and ErrInvalidTransition
// is returned, so the caller's transaction rolls back.
func (r *SeatRepo) ConfirmSold(ctx context.Context, seatIDs []uint64, reservationID string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	q := `UPDATE seats
		  SET status = 'SOLD', hold_ref = NULL, updated_at = UTC_TIMESTAMP()
		  WHERE id IN (` + placeholders(len(seatIDs)) + `) AND status = 'HELD' AND hold_ref = ?`
	args := make([]interface{}, 0, len(seatIDs)+1)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	args = append(args, reservationID)
	res, err := conn(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(seatIDs)) {
		return ErrInvalidTransition
	}
	return nil
}

// GetByIDs loads the listed seats. Missing ids are not an error; the
// caller compares the result length against the request when existence
// matters. Rows are returned in ascending id order.
func (r *SeatRepo) GetByIDs(ctx context.Context, seatIDs []uint64) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return []model.Seat{}, nil
	}
	q := `SELECT id, venue_id, section_id, row_label, seat_number, status, price_cents, currency, hold_ref, created_at, updated_at
		  FROM seats WHERE id IN (` + placeholders(len(seatIDs)) + `) ORDER BY id`
	args := make([]interface{}, 0, len(seatIDs))
	for _, id := range seatIDs {
		args = append(args, id)
	}
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		var holdRef sql.NullString
		if err := rows.Scan(&s.ID, &s.VenueID, &s.SectionID, &s.RowLabel, &s.SeatNumber, &s.Status, &s.PriceCents, &s.Currency, &holdRef, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if holdRef.Valid {
			ref := holdRef.String
			s.HoldRef = &ref
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// placeholders builds a "?, ?, ?" list of length n for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
