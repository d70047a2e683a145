package repository

import (
	"context"
	"database/sql"
	"errors"
)

// VenueRepo provides read access to venues, sections and the seat map.
// Seat-map reads are plain snapshots: they see the last committed
// transaction and never block writers.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo returns a new VenueRepo bound to the provided database.
func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

// SeatMapSeat is one seat entry in a seat-map section. HoldRef is
// deliberately omitted; clients only need to know whether a seat can
// be requested.
type SeatMapSeat struct {
	ID         uint64 `json:"id"`
	RowLabel   string `json:"row_label"`
	SeatNumber uint32 `json:"seat_number"`
	Status     string `json:"status"`
	PriceCents uint32 `json:"price_cents"`
	Currency   string `json:"currency"`
}

// SeatMapSection groups the seats of one venue section.
type SeatMapSection struct {
	SectionID uint64        `json:"section_id"`
	Name      string        `json:"name"`
	Seats     []SeatMapSeat `json:"seats"`
}

// SeatMap returns every section of the venue with its seats ordered by
// row and number. ErrNotFound is returned when the venue does not
// exist. A venue with no sections yields an empty slice.
func (r *VenueRepo) SeatMap(ctx context.Context, venueID uint64) ([]SeatMapSection, error) {
	var exists uint64
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT id FROM venues WHERE id = ?`, venueID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	const q = `SELECT sec.id, sec.name, se.id, se.row_label, se.seat_number, se.status, se.price_cents, se.currency
			   FROM sections sec
			   LEFT JOIN seats se ON se.section_id = sec.id
			   WHERE sec.venue_id = ?
			   ORDER BY sec.id, se.row_label, se.seat_number`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := make([]SeatMapSection, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var secID uint64
		var secName string
		var seatID sql.NullInt64
		var rowLabel sql.NullString
		var seatNumber sql.NullInt64
		var status sql.NullString
		var priceCents sql.NullInt64
		var currency sql.NullString
		if err := rows.Scan(&secID, &secName, &seatID, &rowLabel, &seatNumber, &status, &priceCents, &currency); err != nil {
			return nil, err
		}
		idx, ok := index[secID]
		if !ok {
			idx = len(sections)
			index[secID] = idx
			sections = append(sections, SeatMapSection{SectionID: secID, Name: secName, Seats: []SeatMapSeat{}})
		}
		// LEFT JOIN yields NULL seat columns for empty sections.
		if seatID.Valid {
			sections[idx].Seats = append(sections[idx].Seats, SeatMapSeat{
				ID:         uint64(seatID.Int64),
				RowLabel:   rowLabel.String,
				SeatNumber: uint32(seatNumber.Int64),
				Status:     status.String,
				PriceCents: uint32(priceCents.Int64),
				Currency:   currency.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sections, nil
}
