package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/infra/metrics"
)

// Expirer is the slice of the quota use case the worker drives.
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error)
}

// ExpiryWorker periodically expires subscriptions past their end date and
// refreshes the subscription gauges.
type ExpiryWorker struct {
	interval time.Duration
	quota    Expirer
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, quota Expirer, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		quota:    quota,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single expiry pass.
func (w *ExpiryWorker) RunOnce(ctx context.Context) {
	n, err := w.quota.ExpireDue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry worker error")
		return
	}
	if n > 0 {
		metrics.IncSubscriptionsExpired(n)
		w.log.Info().Int("count", n).Msg("subscriptions expired")
	}

	counts, err := w.quota.CountByStatus(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("subscription count failed")
		return
	}
	metrics.SetSubscriptionsTotal(counts)
}
