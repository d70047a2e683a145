package model

import "time"

// SeatStatus enumerates the lifecycle states of a seat.  The set is
// closed: repositories never write a value outside this list, so an
// illegal transition cannot be persisted.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE" // open for holds
	SeatHeld      SeatStatus = "HELD"      // claimed by an active reservation
	SeatSold      SeatStatus = "SOLD"      // settled; a ticket exists for it
	SeatBlocked   SeatStatus = "BLOCKED"   // disabled by the venue (maintenance etc.)
)

// Seat describes one sellable seat in a venue section.  Seats are
// uniquely identified by their venue, section, row label and seat
// number.  Status and HoldRef must stay consistent: HELD implies a
// live reservation referenced by HoldRef; every other status implies
// HoldRef is nil.
//
// Fields:
//  ID         – primary key identifier.
//  VenueID    – venue to which this seat belongs.
//  SectionID  – section within the venue.
//  RowLabel   – letter or string designating the row.
//  SeatNumber – number of the seat within the row.
//  Status     – availability status (AVAILABLE, HELD, SOLD, BLOCKED).
//  PriceCents – price in cents for this seat.
//  Currency   – ISO 4217 currency code for the price.
//  HoldRef    – reservation currently holding the seat (nullable).
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Seat struct {
	ID         uint64     // seats.id
	VenueID    uint64     // seats.venue_id
	SectionID  uint64     // seats.section_id
	RowLabel   string     // seats.row_label
	SeatNumber uint32     // seats.seat_number
	Status     SeatStatus // seats.status
	PriceCents uint32     // seats.price_cents
	Currency   string     // seats.currency
	HoldRef    *string    // seats.hold_ref (nullable, reservation id)
	CreatedAt  time.Time  // seats.created_at
	UpdatedAt  time.Time  // seats.updated_at
}
