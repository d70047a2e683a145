// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios. For example, ErrForbidden indicates that the current
// holder is not authorized to act on a reservation owned by someone
// else, while ErrInvalidTransition signals that a seat or reservation
// row was not in the state the caller expected.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidTransition is returned when a compare-and-set against a
// seat, reservation, payment or ticket row finds the row in a state
// other than the expected one. Callers decide whether this is a
// benign race (expiry sweep losing to a confirm) or an error to
// surface.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrDuplicateTicketNumber is returned when inserting a ticket whose
// generated number collides with an existing one. The issuer retries
// generation on this error instead of failing the batch.
var ErrDuplicateTicketNumber = errors.New("duplicate ticket number")
