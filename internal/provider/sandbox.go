package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Sandbox is an in-process PaymentProvider for development and tests.
// It issues synthetic order references and remembers refunds; no money
// moves anywhere. The outcome of a sandbox order is whatever the test
// or developer posts to the callback endpoint.
type Sandbox struct {
	mu       sync.Mutex
	orders   map[string]OrderRequest
	refunded map[string]bool
}

// NewSandbox returns an empty sandbox provider.
func NewSandbox() *Sandbox {
	return &Sandbox{
		orders:   make(map[string]OrderRequest),
		refunded: make(map[string]bool),
	}
}

// CreateOrder records the request and returns a synthetic reference.
func (s *Sandbox) CreateOrder(_ context.Context, req OrderRequest) (Order, error) {
	if req.AmountCents == 0 {
		return Order{}, errors.New("sandbox: zero amount")
	}
	ref := "SBX-" + uuid.NewString()
	s.mu.Lock()
	s.orders[ref] = req
	s.mu.Unlock()
	return Order{Ref: ref, ApproveURL: "https://sandbox.invalid/approve/" + ref}, nil
}

// Refund marks the order refunded. Refunding an unknown order is an
// error; refunding twice is not, mirroring gateway idempotency.
func (s *Sandbox) Refund(_ context.Context, providerRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[providerRef]; !ok {
		return errors.New("sandbox: unknown order " + providerRef)
	}
	s.refunded[providerRef] = true
	return nil
}

// Refunded reports whether the order has been refunded. Test helper.
func (s *Sandbox) Refunded(providerRef string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refunded[providerRef]
}
