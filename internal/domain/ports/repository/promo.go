package repository

import (
	"context"
	"time"

	"content-entitlement/internal/domain/model"
)

type PromoCodeRepository interface {
	FindByCode(ctx context.Context, tx Tx, code string) (*model.PromoCode, error)
	// Insert returns domain.ErrAlreadyExists for a duplicate code.
	Insert(ctx context.Context, tx Tx, p *model.PromoCode) error
	// Redeem increments current_uses only while the code is usable at now.
	Redeem(ctx context.Context, tx Tx, code string, now time.Time) (bool, error)
	Deactivate(ctx context.Context, tx Tx, code string) error
	List(ctx context.Context, tx Tx) ([]*model.PromoCode, error)
}
