package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrLocked               = errors.New("resource is locked")

	// Entitlement errors
	ErrPaymentRequired    = errors.New("payment required")
	ErrPaymentNotVerified = errors.New("payment could not be verified")
	ErrInvalidPromoCode   = errors.New("promo code is invalid or exhausted")

	// Scoring errors
	ErrInvalidQuiz    = errors.New("quiz definition is invalid")
	ErrInvalidAnswers = errors.New("answers are invalid")

	// Storage errors
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)

// PaymentRequiredError reports the amount still due for an item.
type PaymentRequiredError struct {
	Amount int64
}

func (e *PaymentRequiredError) Error() string {
	return fmt.Sprintf("payment required: %d due", e.Amount)
}

func (e *PaymentRequiredError) Unwrap() error { return ErrPaymentRequired }
