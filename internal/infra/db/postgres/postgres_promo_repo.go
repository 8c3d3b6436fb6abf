package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/domain/ports/repository"
	"content-entitlement/internal/infra/metrics"
)

var _ repository.PromoCodeRepository = (*promoRepo)(nil)

type promoRepo struct {
	pool *pgxpool.Pool
}

func NewPromoRepo(pool *pgxpool.Pool) *promoRepo {
	return &promoRepo{pool: pool}
}

const promoColumns = `code, discount_percentage, valid_until, max_uses, current_uses, is_active, created_at`

func (r *promoRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	q := `SELECT ` + promoColumns + ` FROM promo_codes WHERE code=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, model.NormalizePromoCode(code))
	if err != nil {
		return nil, err
	}
	p, err := scanPromo(row)
	if err != nil {
		return nil, mapErr("promo_codes", err)
	}
	return p, nil
}

func (r *promoRepo) Insert(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	const q = `
INSERT INTO promo_codes (code, discount_percentage, valid_until, max_uses, current_uses, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.Code, p.DiscountPercentage, p.ValidUntil, p.MaxUses, p.CurrentUses, p.IsActive, p.CreatedAt,
	)
	return mapErr("promo_codes", err)
}

// Redeem is a conditional UPDATE so max_uses holds under concurrent redemption.
func (r *promoRepo) Redeem(ctx context.Context, tx repository.Tx, code string, now time.Time) (bool, error) {
	const q = `
UPDATE promo_codes
   SET current_uses = current_uses + 1
 WHERE code=$1 AND is_active AND current_uses < max_uses AND valid_until > $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, model.NormalizePromoCode(code), now)
	if err != nil {
		return false, mapErr("promo_codes", err)
	}
	ok := tag.RowsAffected() == 1
	metrics.IncPromoRedemption(ok)
	return ok, nil
}

func (r *promoRepo) Deactivate(ctx context.Context, tx repository.Tx, code string) error {
	const q = `UPDATE promo_codes SET is_active=FALSE WHERE code=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, model.NormalizePromoCode(code))
	if err != nil {
		return mapErr("promo_codes", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *promoRepo) List(ctx context.Context, tx repository.Tx) ([]*model.PromoCode, error) {
	q := `SELECT ` + promoColumns + ` FROM promo_codes ORDER BY created_at DESC, code;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapErr("promo_codes", err)
	}
	defer rows.Close()

	var out []*model.PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanPromo(row pgx.Row) (*model.PromoCode, error) {
	var p model.PromoCode
	if err := row.Scan(&p.Code, &p.DiscountPercentage, &p.ValidUntil, &p.MaxUses, &p.CurrentUses, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
