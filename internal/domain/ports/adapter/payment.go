package adapter

import "context"

// PaymentVerifier is the port for the external payment processor. Card capture
// happens there; this side only confirms a reference settled the amount due.
type PaymentVerifier interface {
	Name() string
	// Verify returns domain.ErrPaymentNotVerified when reference did not settle
	// at least amount (minor units).
	Verify(ctx context.Context, reference string, amount int64) error
}
