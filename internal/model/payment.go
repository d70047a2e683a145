package model

import "time"

// PaymentStatus enumerates the states of a payment attempt.
type PaymentStatus string

const (
	PaymentCreated    PaymentStatus = "CREATED"    // provider order obtained, awaiting outcome
	PaymentAuthorized PaymentStatus = "AUTHORIZED" // funds reserved at the provider
	PaymentCaptured   PaymentStatus = "CAPTURED"   // funds taken; reservation confirmed
	PaymentFailed     PaymentStatus = "FAILED"     // declined, cancelled or superseded
	PaymentRefunded   PaymentStatus = "REFUNDED"   // captured funds returned
)

// Terminal reports whether no further provider outcome can move the
// attempt (REFUNDED and FAILED; CAPTURED can still be refunded).
func (s PaymentStatus) Terminal() bool {
	return s == PaymentFailed || s == PaymentRefunded
}

// PaymentAttempt records one try at settling a reservation through the
// external payment provider.  At most one attempt per reservation is
// live at a time; creating a new attempt supersedes older non-terminal
// ones, which are kept for audit.
//
// Fields:
//  ID            – unique identifier (UUID).
//  ReservationID – reservation being settled.
//  AmountCents   – amount charged, in cents.
//  Currency      – ISO 4217 currency code.
//  ProviderRef   – order/intent reference issued by the provider.
//  Status        – attempt status (CREATED, AUTHORIZED, CAPTURED, FAILED, REFUNDED).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type PaymentAttempt struct {
	ID            string        // payment_attempts.id
	ReservationID string        // payment_attempts.reservation_id
	AmountCents   uint32        // payment_attempts.amount_cents
	Currency      string        // payment_attempts.currency
	ProviderRef   string        // payment_attempts.provider_ref
	Status        PaymentStatus // payment_attempts.status
	CreatedAt     time.Time     // payment_attempts.created_at
	UpdatedAt     time.Time     // payment_attempts.updated_at
}
