// Package provider defines the capability interface through which the
// engine talks to an external payment gateway. The concrete gateway
// (PayPal, a mobile-money STK push, ...) lives behind this interface;
// the engine only ever creates orders, captures nothing itself, and
// issues refunds.
package provider

import "context"

// OrderRequest describes the charge for which a provider-side order
// should be created. Reference is the engine's payment attempt id and
// is echoed back by well-behaved gateways for correlation.
type OrderRequest struct {
	AmountCents uint32
	Currency    string
	Reference   string
	Description string
}

// Order is the provider's handle for a created order. Ref is the
// provider-side id later seen in callbacks; ApproveURL, when present,
// is where the payer completes the flow.
type Order struct {
	Ref        string
	ApproveURL string
}

// PaymentProvider is the external payment gateway capability. Both
// calls may block on network I/O and must never be made while holding
// seat-level locks; the caller relies on reservation state, not locks,
// to keep seats claimed during the round trip.
type PaymentProvider interface {
	// CreateOrder registers the charge with the gateway and returns
	// its order reference.
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)

	// Refund returns captured funds for the given provider order.
	Refund(ctx context.Context, providerRef string) error
}
