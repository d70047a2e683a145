// Package metrics exposes the engine's Prometheus counters. Counters
// are registered on the default registry and served by the /metrics
// route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HoldsGranted counts seats successfully transitioned to HELD.
	HoldsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_seats_held_total",
		Help: "Seats successfully placed on hold.",
	})

	// HoldConflicts counts seats that were requested but unavailable.
	HoldConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_seat_conflicts_total",
		Help: "Requested seats that were already held, sold or blocked.",
	})

	// ReservationsExpired counts reservations swept after their TTL.
	ReservationsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_expired_total",
		Help: "Reservations expired by the reconciler sweep.",
	})

	// PaymentsCaptured counts captured payment attempts.
	PaymentsCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_captured_total",
		Help: "Payment attempts that reached CAPTURED.",
	})

	// PaymentsRefunded counts refunds, including compensating refunds
	// issued when a capture loses the race against expiry.
	PaymentsRefunded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_refunded_total",
		Help: "Payment attempts that were refunded.",
	})

	// TicketsIssued counts tickets minted from captured payments.
	TicketsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_issued_total",
		Help: "Tickets issued from confirmed reservations.",
	})

	// TicketsCheckedIn counts successful gate scans.
	TicketsCheckedIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_checked_in_total",
		Help: "Tickets transitioned to USED at the gate.",
	})
)
