package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/domain/ports/repository"
	"content-entitlement/internal/infra/logging"
)

// LedgerUseCase is the record of permanent per-item entitlements.
type LedgerUseCase interface {
	HasPurchased(ctx context.Context, tx repository.Tx, requesterID string, kind model.ItemKind, itemID string) (bool, error)
	// Find returns nil, nil when there is no record.
	Find(ctx context.Context, tx repository.Tx, requesterID string, kind model.ItemKind, itemID string) (*model.PurchaseRecord, error)
	// Record appends rec. A duplicate yields domain.ErrAlreadyExists.
	// It performs no payment capture.
	Record(ctx context.Context, tx repository.Tx, rec *model.PurchaseRecord) (*model.PurchaseRecord, error)
	List(ctx context.Context, f model.PurchaseFilter) ([]*model.PurchaseRecord, error)
	CountByMethod(ctx context.Context) (map[model.PaymentMethod]int, error)
}

var _ LedgerUseCase = (*ledgerUC)(nil)

type ledgerUC struct {
	purchases repository.PurchaseRepository
	log       *zerolog.Logger
	now       func() time.Time
}

func NewLedgerUseCase(purchases repository.PurchaseRepository, logger *zerolog.Logger) LedgerUseCase {
	l := logger.With().Str("component", "LedgerUseCase").Logger()
	return &ledgerUC{purchases: purchases, log: &l, now: time.Now}
}

func (u *ledgerUC) HasPurchased(ctx context.Context, tx repository.Tx, requesterID string, kind model.ItemKind, itemID string) (bool, error) {
	rec, err := u.Find(ctx, tx, requesterID, kind, itemID)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

func (u *ledgerUC) Find(ctx context.Context, tx repository.Tx, requesterID string, kind model.ItemKind, itemID string) (*model.PurchaseRecord, error) {
	if requesterID == "" {
		return nil, nil
	}
	rec, err := u.purchases.Find(ctx, tx, requesterID, kind, itemID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (u *ledgerUC) Record(ctx context.Context, tx repository.Tx, rec *model.PurchaseRecord) (*model.PurchaseRecord, error) {
	if rec == nil || rec.RequesterID == "" || rec.ItemID == "" || rec.PricePaid < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = u.now().UTC()
	}
	if rec.Allowance == "" {
		rec.Allowance = model.AllowanceNone
	}
	rec.DiscountApplied = rec.BasePrice - rec.PricePaid
	if err := u.purchases.Insert(ctx, tx, rec); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			logging.With(ctx, u.log).Debug().
				Str("requester", rec.RequesterID).
				Str("item", rec.ItemID).
				Msg("purchase already recorded")
		}
		return nil, err
	}
	return rec, nil
}

func (u *ledgerUC) List(ctx context.Context, f model.PurchaseFilter) ([]*model.PurchaseRecord, error) {
	return u.purchases.List(ctx, repository.NoTX, normalizePage(f))
}

func (u *ledgerUC) CountByMethod(ctx context.Context) (map[model.PaymentMethod]int, error) {
	return u.purchases.CountByMethod(ctx, repository.NoTX)
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func normalizePage(f model.PurchaseFilter) model.PurchaseFilter {
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)
	return f
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
