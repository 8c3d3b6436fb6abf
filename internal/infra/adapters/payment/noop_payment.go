package payment

import (
	"context"
	"strings"
	"sync"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/ports/adapter"
)

var _ adapter.PaymentVerifier = (*NoopPaymentVerifier)(nil)

// NoopPaymentVerifier settles references registered with Settle, for local
// runs and tests. Unregistered references starting with "noop_" are accepted
// for any amount so the demo flow works without setup.
type NoopPaymentVerifier struct {
	mu      sync.Mutex
	settled map[string]int64 // reference -> amount
}

func NewNoopPaymentVerifier() *NoopPaymentVerifier {
	return &NoopPaymentVerifier{settled: make(map[string]int64)}
}

func (v *NoopPaymentVerifier) Name() string { return "noop" }

// Settle records that reference paid amount.
func (v *NoopPaymentVerifier) Settle(reference string, amount int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.settled[reference] = amount
}

func (v *NoopPaymentVerifier) Verify(_ context.Context, reference string, amount int64) error {
	v.mu.Lock()
	paid, ok := v.settled[reference]
	v.mu.Unlock()

	result := "verified"
	defer func() { observe(v.Name(), result, 0) }()

	switch {
	case ok && paid >= amount:
		return nil
	case !ok && strings.HasPrefix(reference, "noop_"):
		return nil
	default:
		result = "rejected"
		return domain.ErrPaymentNotVerified
	}
}
