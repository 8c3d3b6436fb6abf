package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/ports/adapter"
	"content-entitlement/internal/infra/logging"
	"content-entitlement/internal/infra/metrics"
)

var _ adapter.PaymentVerifier = (*StripeVerifier)(nil)

type intentGetter func(ctx context.Context, id string) (*stripe.PaymentIntent, error)

// StripeVerifier accepts a PaymentIntent id as the payment reference. The
// intent must have succeeded and received at least the amount due in the
// configured currency.
type StripeVerifier struct {
	getIntent intentGetter
	currency  string
	log       *zerolog.Logger
}

func NewStripeVerifier(secretKey, currency string, logger *zerolog.Logger) (*StripeVerifier, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("stripe secret key empty")
	}
	sc := client.New(secretKey, nil)
	get := func(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
		params := &stripe.PaymentIntentParams{}
		params.Context = ctx
		return sc.PaymentIntents.Get(id, params)
	}
	return newStripeVerifier(get, currency, logger), nil
}

func newStripeVerifier(get intentGetter, currency string, logger *zerolog.Logger) *StripeVerifier {
	l := logger.With().Str("component", "StripeVerifier").Logger()
	return &StripeVerifier{getIntent: get, currency: strings.ToLower(currency), log: &l}
}

func (v *StripeVerifier) Name() string { return "stripe" }

func (v *StripeVerifier) Verify(ctx context.Context, reference string, amount int64) error {
	start := time.Now()
	result := "verified"
	defer func() { observe(v.Name(), result, time.Since(start).Seconds()) }()

	log := logging.With(ctx, v.log).With().Str("reference", logging.Redact(reference, false)).Logger()

	if !strings.HasPrefix(reference, "pi_") {
		result = "rejected"
		return fmt.Errorf("%w: not a payment intent id", domain.ErrPaymentNotVerified)
	}

	pi, err := v.getIntent(ctx, reference)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode >= http.StatusBadRequest && se.HTTPStatusCode < http.StatusInternalServerError && se.HTTPStatusCode != http.StatusTooManyRequests {
			result = "rejected"
			log.Info().Str("code", string(se.Code)).Msg("payment intent lookup refused")
			return domain.ErrPaymentNotVerified
		}
		result = "error"
		log.Error().Err(err).Msg("payment intent lookup failed")
		return fmt.Errorf("stripe: %w: %v", domain.ErrStoreUnavailable, err)
	}

	switch {
	case pi.Status != stripe.PaymentIntentStatusSucceeded:
		result = "rejected"
		log.Info().Str("status", string(pi.Status)).Msg("payment intent not settled")
		return domain.ErrPaymentNotVerified
	case pi.AmountReceived < amount:
		result = "rejected"
		log.Info().Int64("received", pi.AmountReceived).Int64("due", amount).Msg("payment intent underpaid")
		return domain.ErrPaymentNotVerified
	case v.currency != "" && !strings.EqualFold(string(pi.Currency), v.currency):
		result = "rejected"
		log.Info().Str("currency", string(pi.Currency)).Msg("payment intent currency mismatch")
		return domain.ErrPaymentNotVerified
	}

	metrics.AddPaymentRevenue(string(pi.Currency), pi.AmountReceived)
	return nil
}

func observe(provider, result string, seconds float64) {
	metrics.ObservePaymentVerification(provider, result, seconds)
}
