package service

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the service layer. Handlers translate
// them into HTTP status codes; everything else is treated as an
// internal error.
var (
	// ErrSeatNotFound is returned when a hold request names a seat id
	// that does not exist.
	ErrSeatNotFound = errors.New("seat not found")

	// ErrReservationNotActive is returned when an operation requires
	// an ACTIVE, unexpired reservation and finds anything else.
	ErrReservationNotActive = errors.New("reservation not active")

	// ErrInvalidState is returned when an entity is in the wrong state
	// for the requested transition (e.g. refunding a non-captured
	// payment attempt).
	ErrInvalidState = errors.New("invalid state")

	// ErrAmountMismatch is returned when a client-sent amount or
	// currency disagrees with the server-side total of the
	// reservation.
	ErrAmountMismatch = errors.New("amount mismatch")

	// ErrTicketAlreadyUsed is returned when a ticket is scanned a
	// second time at the gate.
	ErrTicketAlreadyUsed = errors.New("ticket already used")

	// ErrTicketNotConfirmed is returned when check-in is attempted on
	// a cancelled ticket.
	ErrTicketNotConfirmed = errors.New("ticket not confirmed")
)

// SeatConflictError reports which seats of a hold request were not
// available. The whole request is rejected and any partial grant
// released; the caller re-renders the seat map from the conflict list.
type SeatConflictError struct {
	Conflicts []uint64
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats unavailable: %v", e.Conflicts)
}

// ProviderError wraps a failure from the external payment provider.
// The engine never retries these itself; clients may retry until the
// hold TTL lapses.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("payment provider %s: %v", e.Op, e.Err) }

func (e *ProviderError) Unwrap() error { return e.Err }
