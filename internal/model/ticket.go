package model

import "time"

// TicketStatus enumerates the states of an issued ticket.  The only
// allowed transitions are CONFIRMED→USED (gate check-in) and
// CONFIRMED→CANCELLED (refund).
type TicketStatus string

const (
	TicketConfirmed TicketStatus = "CONFIRMED" // valid for entry
	TicketUsed      TicketStatus = "USED"      // scanned at the gate
	TicketCancelled TicketStatus = "CANCELLED" // voided by a refund
)

// Ticket is the durable record of one sold seat.  Tickets are created
// only as a side effect of a captured payment attempt and are
// immutable afterwards except for the status transitions above.
//
// Fields:
//  ID            – unique identifier (UUID).
//  TicketNumber  – human-displayable, checksum-bearing code printed on
//                  the ticket and encoded in its QR.
//  ReservationID – reservation the ticket was issued from.
//  SeatID        – sold seat this ticket is bound to.
//  EventID       – event the ticket admits to.
//  OwnerID       – identity of the purchaser.
//  PriceCents    – price paid for the seat, in cents.
//  Currency      – ISO 4217 currency code.
//  Status        – ticket status (CONFIRMED, USED, CANCELLED).
//  CreatedAt     – issuance timestamp.
//  UpdatedAt     – last update timestamp.
type Ticket struct {
	ID            string       // tickets.id
	TicketNumber  string       // tickets.ticket_number
	ReservationID string       // tickets.reservation_id
	SeatID        uint64       // tickets.seat_id
	EventID       uint64       // tickets.event_id
	OwnerID       string       // tickets.owner_id
	PriceCents    uint32       // tickets.price_cents
	Currency      string       // tickets.currency
	Status        TicketStatus // tickets.status
	CreatedAt     time.Time    // tickets.created_at
	UpdatedAt     time.Time    // tickets.updated_at
}
