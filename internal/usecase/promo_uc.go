package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/domain/ports/repository"
	"content-entitlement/internal/infra/logging"
)

// PromoUseCase validates and redeems promotional discount codes.
type PromoUseCase interface {
	// Validate returns the code when it is active, has uses left and has not
	// expired; otherwise domain.ErrInvalidPromoCode.
	Validate(ctx context.Context, code string) (*model.PromoCode, error)
	// Redeem atomically takes one use. false means the code became unusable.
	Redeem(ctx context.Context, tx repository.Tx, code string) (bool, error)

	Create(ctx context.Context, code string, percent int, validUntil time.Time, maxUses int) (*model.PromoCode, error)
	Deactivate(ctx context.Context, code string) error
	List(ctx context.Context) ([]*model.PromoCode, error)
}

var _ PromoUseCase = (*promoUC)(nil)

type promoUC struct {
	promos repository.PromoCodeRepository
	log    *zerolog.Logger
	now    func() time.Time
}

func NewPromoUseCase(promos repository.PromoCodeRepository, logger *zerolog.Logger) PromoUseCase {
	l := logger.With().Str("component", "PromoUseCase").Logger()
	return &promoUC{promos: promos, log: &l, now: time.Now}
}

func (u *promoUC) Validate(ctx context.Context, code string) (*model.PromoCode, error) {
	code = model.NormalizePromoCode(code)
	if code == "" {
		return nil, domain.ErrInvalidPromoCode
	}
	p, err := u.promos.FindByCode(ctx, repository.NoTX, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidPromoCode
	}
	if err != nil {
		return nil, err
	}
	if !p.Usable(u.now()) {
		return nil, domain.ErrInvalidPromoCode
	}
	return p, nil
}

func (u *promoUC) Redeem(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	code = model.NormalizePromoCode(code)
	if code == "" {
		return false, nil
	}
	ok, err := u.promos.Redeem(ctx, tx, code, u.now())
	if err != nil {
		return false, err
	}
	if !ok {
		logging.With(ctx, u.log).Info().Str("code", code).Msg("promo redemption lost the race")
	}
	return ok, nil
}

func (u *promoUC) Create(ctx context.Context, code string, percent int, validUntil time.Time, maxUses int) (*model.PromoCode, error) {
	p, err := model.NewPromoCode(code, percent, validUntil, maxUses, u.now())
	if err != nil {
		return nil, err
	}
	if err := u.promos.Insert(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *promoUC) Deactivate(ctx context.Context, code string) error {
	code = model.NormalizePromoCode(code)
	if code == "" {
		return domain.ErrInvalidArgument
	}
	return u.promos.Deactivate(ctx, repository.NoTX, code)
}

func (u *promoUC) List(ctx context.Context) ([]*model.PromoCode, error) {
	return u.promos.List(ctx, repository.NoTX)
}
