package usecase

import (
	"context"
	"errors"
	"time"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/domain/ports/repository"
	"content-entitlement/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// QuotaUseCase tracks per-cycle subscription allowances.
type QuotaUseCase interface {
	// Remaining returns the unused count for kind; 0 without an active subscription.
	Remaining(ctx context.Context, requesterID string, kind model.AllowanceKind) (int, error)

	// Consume takes one unit of kind. false means the allowance is exhausted
	// (or there is no active subscription) and nothing changed.
	Consume(ctx context.Context, tx repository.Tx, requesterID string, kind model.AllowanceKind) (bool, error)

	// ResetIfCycleElapsed zeroes the counters and advances the cycle when it has
	// ended. It returns the current subscription, or nil when there is none.
	ResetIfCycleElapsed(ctx context.Context, tx repository.Tx, requesterID string) (*model.Subscription, error)

	// Current returns the subscription as stored, or nil when there is none.
	Current(ctx context.Context, tx repository.Tx, requesterID string) (*model.Subscription, error)

	Usage(ctx context.Context, requesterID string) (*model.Usage, error)

	// Upsert grants limits to a requester and starts a new cycle now.
	Upsert(ctx context.Context, requesterID string, limits model.AllowanceLimits, expiresAt *time.Time) (*model.Subscription, error)
	Cancel(ctx context.Context, requesterID string) error
	ExpireDue(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error)
}

var _ QuotaUseCase = (*quotaUC)(nil)

type quotaUC struct {
	subs repository.SubscriptionRepository
	tx   repository.TransactionManager
	log  *zerolog.Logger
	now  func() time.Time
}

func NewQuotaUseCase(subs repository.SubscriptionRepository, tx repository.TransactionManager, logger *zerolog.Logger) QuotaUseCase {
	l := logger.With().Str("component", "QuotaUseCase").Logger()
	return &quotaUC{subs: subs, tx: tx, log: &l, now: time.Now}
}

func (u *quotaUC) Current(ctx context.Context, tx repository.Tx, requesterID string) (*model.Subscription, error) {
	s, err := u.subs.FindByRequester(ctx, tx, requesterID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (u *quotaUC) Remaining(ctx context.Context, requesterID string, kind model.AllowanceKind) (int, error) {
	if requesterID == "" {
		return 0, nil
	}
	s, err := u.Current(ctx, repository.NoTX, requesterID)
	if err != nil || s == nil {
		return 0, err
	}
	return s.Remaining(kind, u.now()), nil
}

func (u *quotaUC) Consume(ctx context.Context, tx repository.Tx, requesterID string, kind model.AllowanceKind) (bool, error) {
	if requesterID == "" || kind == model.AllowanceNone {
		return false, nil
	}
	ok, err := u.subs.Consume(ctx, tx, requesterID, kind)
	if err != nil {
		return false, err
	}
	if !ok {
		logging.With(ctx, u.log).Debug().Str("allowance", string(kind)).Msg("allowance exhausted")
	}
	return ok, nil
}

func (u *quotaUC) ResetIfCycleElapsed(ctx context.Context, tx repository.Tx, requesterID string) (*model.Subscription, error) {
	s, err := u.Current(ctx, tx, requesterID)
	if err != nil || s == nil {
		return s, err
	}
	now := u.now()
	if !s.CycleElapsed(now) {
		return s, nil
	}

	start, end := s.AdvanceCycle(now)
	applied, err := u.subs.AdvanceCycle(ctx, tx, requesterID, s.CycleEnd, start, end)
	if err != nil {
		return nil, err
	}
	if applied {
		logging.With(ctx, u.log).Info().
			Time("cycle_start", start).
			Time("cycle_end", end).
			Msg("billing cycle reset")
	}
	// Another writer may have advanced it first; either way the stored row is current.
	return u.Current(ctx, tx, requesterID)
}

func (u *quotaUC) Usage(ctx context.Context, requesterID string) (*model.Usage, error) {
	if requesterID == "" {
		return nil, domain.ErrInvalidArgument
	}
	s, err := u.Current(ctx, repository.NoTX, requesterID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrNoActiveSubscription
	}

	now := u.now()
	out := &model.Usage{
		RequesterID: requesterID,
		Status:      s.Status,
		ExpiresAt:   s.ExpiresAt,
		CycleEnd:    s.CycleEnd,
	}
	if s.Status == model.SubscriptionStatusActive && !s.IsActive(now) {
		out.Status = model.SubscriptionStatusExpired
	}
	if s.CycleElapsed(now) {
		_, out.CycleEnd = s.AdvanceCycle(now)
	}
	remainingOf := func(kind model.AllowanceKind, a model.Allowance) model.Allowance {
		left := s.Remaining(kind, now)
		return model.Allowance{Limit: a.Limit, Used: a.Limit - left}
	}
	out.Free = remainingOf(model.AllowanceFree, s.Free)
	out.Discounted = remainingOf(model.AllowanceDiscounted, s.Discounted)
	out.PremiumArticles = remainingOf(model.AllowancePremiumArticle, s.PremiumArticles)
	return out, nil
}

func (u *quotaUC) Upsert(ctx context.Context, requesterID string, limits model.AllowanceLimits, expiresAt *time.Time) (*model.Subscription, error) {
	s, err := model.NewSubscription(requesterID, limits, u.now(), expiresAt)
	if err != nil {
		return nil, err
	}
	err = u.tx.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		existing, err := u.Current(ctx, tx, requesterID)
		if err != nil {
			return err
		}
		if existing != nil {
			s.CreatedAt = existing.CreatedAt
		}
		return u.subs.Save(ctx, tx, s)
	})
	if err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().
		Str("requester_id", requesterID).
		Int("free", limits.FreeItems).
		Int("discounted", limits.DiscountedItems).
		Int("premium_articles", limits.PremiumArticles).
		Msg("subscription granted")
	return s, nil
}

func (u *quotaUC) Cancel(ctx context.Context, requesterID string) error {
	if requesterID == "" {
		return domain.ErrInvalidArgument
	}
	return u.subs.UpdateStatus(ctx, repository.NoTX, requesterID, model.SubscriptionStatusCancelled)
}

func (u *quotaUC) ExpireDue(ctx context.Context) (int, error) {
	return u.subs.ExpireDue(ctx, repository.NoTX, u.now())
}

func (u *quotaUC) CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	return u.subs.CountByStatus(ctx, repository.NoTX)
}
