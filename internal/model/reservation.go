package model

import "time"

// ReservationState enumerates the states of a reservation.  ACTIVE is
// the only non-terminal state; CONFIRMED, EXPIRED and RELEASED are
// absorbing and no transition leaves them.
type ReservationState string

const (
	ReservationActive    ReservationState = "ACTIVE"    // holds seats until expiry
	ReservationConfirmed ReservationState = "CONFIRMED" // settlement captured; seats sold
	ReservationExpired   ReservationState = "EXPIRED"   // TTL elapsed; seats released by sweep
	ReservationReleased  ReservationState = "RELEASED"  // holder cancelled; seats released
)

// Terminal reports whether the state is one of the absorbing states.
func (s ReservationState) Terminal() bool {
	return s == ReservationConfirmed || s == ReservationExpired || s == ReservationReleased
}

// Reservation is a time-boxed exclusive claim on a set of seats for an
// event.  It is created atomically with its seats transitioning to
// HELD and is the server-side source of truth for what a holder has
// claimed.  Seats listed under an ACTIVE reservation must all be HELD
// with hold_ref pointing back at it.
//
// Fields:
//  ID               – unique identifier (UUID).
//  EventID          – event the seats belong to.
//  HolderID         – user or session identity that owns the hold.
//  State            – reservation state (ACTIVE, CONFIRMED, EXPIRED, RELEASED).
//  TotalAmountCents – total price in cents across all held seats.
//  Currency         – ISO 4217 currency code.
//  CreatedAt        – creation timestamp.
//  ExpiresAt        – instant at which an unconfirmed hold lapses.
//  UpdatedAt        – last update timestamp.
type Reservation struct {
	ID               string           // reservations.id
	EventID          uint64           // reservations.event_id
	HolderID         string           // reservations.holder_id
	State            ReservationState // reservations.state
	TotalAmountCents uint32           // reservations.total_amount_cents
	Currency         string           // reservations.currency
	CreatedAt        time.Time        // reservations.created_at
	ExpiresAt        time.Time        // reservations.expires_at
	UpdatedAt        time.Time        // reservations.updated_at
}

// ReservationSeat links a reservation to one held seat and records the
// price at hold time.  Together the rows form the reservation's seat
// list.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reference to the reservation.
//  SeatID        – seat claimed by the reservation.
//  PriceCents    – price for this seat in cents at hold time.
//  CreatedAt     – creation timestamp.
type ReservationSeat struct {
	ID            uint64    // reservation_seats.id
	ReservationID string    // reservation_seats.reservation_id
	SeatID        uint64    // reservation_seats.seat_id
	PriceCents    uint32    // reservation_seats.price_cents
	CreatedAt     time.Time // reservation_seats.created_at
}
