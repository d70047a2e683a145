// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketIssuedEvent is published when tickets are minted for a settled
// reservation. It carries enough information for downstream consumers
// to log, notify, or trigger analytics without querying the primary
// database.
type TicketIssuedEvent struct {
	ReservationID    string   `json:"reservation_id"`
	EventID          uint64   `json:"event_id"`
	OwnerID          string   `json:"owner_id"`
	TicketNumbers    []string `json:"ticket_numbers"`
	TotalAmountCents uint32   `json:"total_amount_cents"`
	Currency         string   `json:"currency"`
	IssuedAt         string   `json:"issued_at"`
}
