package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*purchaseRepo)(nil)

type purchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *purchaseRepo {
	return &purchaseRepo{pool: pool}
}

const purchaseColumns = `
id, requester_id, item_type, item_id, base_price, price_paid, discount_applied,
payment_method, allowance, promo_code, payment_reference, created_at`

func (r *purchaseRepo) Find(ctx context.Context, tx repository.Tx, requesterID string, kind model.ItemKind, itemID string) (*model.PurchaseRecord, error) {
	q := `SELECT ` + purchaseColumns + `
  FROM purchases
 WHERE requester_id=$1 AND item_type=$2 AND item_id=$3;`
	row, err := pickRow(ctx, r.pool, tx, q, requesterID, string(kind), itemID)
	if err != nil {
		return nil, err
	}
	p, err := scanPurchase(row)
	if err != nil {
		return nil, mapErr("purchases", err)
	}
	return p, nil
}

// Insert relies on the unique index; a conflicting row is reported as
// ErrAlreadyExists and nothing is written.
func (r *purchaseRepo) Insert(ctx context.Context, tx repository.Tx, p *model.PurchaseRecord) error {
	const q = `
INSERT INTO purchases (
  id, requester_id, item_type, item_id, base_price, price_paid, discount_applied,
  payment_method, allowance, promo_code, payment_reference, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (requester_id, item_type, item_id) DO NOTHING
RETURNING id;`

	row, err := pickRow(ctx, r.pool, tx, q,
		p.ID, p.RequesterID, string(p.ItemType), p.ItemID, p.BasePrice, p.PricePaid, p.DiscountApplied,
		string(p.PaymentMethod), string(p.Allowance), p.PromoCode, p.PaymentReference, p.CreatedAt,
	)
	if err != nil {
		return err
	}
	var id string
	if err := row.Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrAlreadyExists
		}
		return mapErr("purchases", err)
	}
	return nil
}

func (r *purchaseRepo) List(ctx context.Context, tx repository.Tx, f model.PurchaseFilter) ([]*model.PurchaseRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.RequesterID != "" {
		add("requester_id=$%d", f.RequesterID)
	}
	if f.ItemType != "" {
		add("item_type=$%d", string(f.ItemType))
	}
	if f.Method != "" {
		add("payment_method=$%d", string(f.Method))
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}

	q := `SELECT ` + purchaseColumns + ` FROM purchases`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d;`, len(args)-1, len(args))

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapErr("purchases", err)
	}
	defer rows.Close()

	var out []*model.PurchaseRecord
	for rows.Next() {
		p, err := scanPurchase(rows)
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

func (r *purchaseRepo) CountByMethod(ctx context.Context, tx repository.Tx) (map[model.PaymentMethod]int, error) {
	const q = `SELECT payment_method, COUNT(*) FROM purchases GROUP BY payment_method;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapErr("purchases", err)
	}
	defer rows.Close()

	out := make(map[model.PaymentMethod]int)
	for rows.Next() {
		var (
			method string
			n      int
		)
		if err := rows.Scan(&method, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.PaymentMethod(method)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanPurchase(row pgx.Row) (*model.PurchaseRecord, error) {
	var (
		p                         model.PurchaseRecord
		itemType, method, allowed string
	)
	if err := row.Scan(
		&p.ID, &p.RequesterID, &itemType, &p.ItemID, &p.BasePrice, &p.PricePaid, &p.DiscountApplied,
		&method, &allowed, &p.PromoCode, &p.PaymentReference, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.ItemType = model.ItemKind(itemType)
	p.PaymentMethod = model.PaymentMethod(method)
	p.Allowance = model.AllowanceKind(allowed)
	return &p, nil
}
