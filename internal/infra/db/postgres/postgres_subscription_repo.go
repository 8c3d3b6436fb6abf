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

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `
requester_id, status, cycle_start, cycle_end, expires_at,
free_items_limit, free_items_used,
discounted_items_limit, discounted_items_used,
premium_articles_limit, premium_articles_used,
created_at, updated_at`

func (r *subscriptionRepo) FindByRequester(ctx context.Context, tx repository.Tx, requesterID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE requester_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, requesterID)
	if err != nil {
		return nil, err
	}
	s, err := scanSubscription(row)
	if err != nil {
		return nil, mapErr("subscriptions", err)
	}
	return s, nil
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  requester_id, status, cycle_start, cycle_end, expires_at,
  free_items_limit, free_items_used,
  discounted_items_limit, discounted_items_used,
  premium_articles_limit, premium_articles_used,
  created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW())
ON CONFLICT (requester_id) DO UPDATE SET
  status=$2, cycle_start=$3, cycle_end=$4, expires_at=$5,
  free_items_limit=$6, free_items_used=$7,
  discounted_items_limit=$8, discounted_items_used=$9,
  premium_articles_limit=$10, premium_articles_used=$11,
  updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.RequesterID, string(s.Status), s.CycleStart, s.CycleEnd, s.ExpiresAt,
		s.Free.Limit, s.Free.Used,
		s.Discounted.Limit, s.Discounted.Used,
		s.PremiumArticles.Limit, s.PremiumArticles.Used,
		s.CreatedAt,
	)
	return mapErr("subscriptions", err)
}

// Consume is a single conditional UPDATE; concurrent callers can never push
// used past limit.
func (r *subscriptionRepo) Consume(ctx context.Context, tx repository.Tx, requesterID string, kind model.AllowanceKind) (bool, error) {
	var q string
	switch kind {
	case model.AllowanceFree:
		q = `UPDATE subscriptions SET free_items_used = free_items_used + 1, updated_at = NOW()
 WHERE requester_id=$1 AND status='active' AND free_items_used < free_items_limit;`
	case model.AllowanceDiscounted:
		q = `UPDATE subscriptions SET discounted_items_used = discounted_items_used + 1, updated_at = NOW()
 WHERE requester_id=$1 AND status='active' AND discounted_items_used < discounted_items_limit;`
	case model.AllowancePremiumArticle:
		q = `UPDATE subscriptions SET premium_articles_used = premium_articles_used + 1, updated_at = NOW()
 WHERE requester_id=$1 AND status='active' AND premium_articles_used < premium_articles_limit;`
	default:
		return false, domain.ErrInvalidArgument
	}

	tag, err := execSQL(ctx, r.pool, tx, q, requesterID)
	if err != nil {
		return false, mapErr("subscriptions", err)
	}
	taken := tag.RowsAffected() == 1
	metrics.IncAllowanceConsume(kind, taken)
	return taken, nil
}

func (r *subscriptionRepo) AdvanceCycle(ctx context.Context, tx repository.Tx, requesterID string, prevEnd, start, end time.Time) (bool, error) {
	const q = `
UPDATE subscriptions
   SET cycle_start=$3, cycle_end=$4,
       free_items_used=0, discounted_items_used=0, premium_articles_used=0,
       updated_at=NOW()
 WHERE requester_id=$1 AND cycle_end=$2;`
	tag, err := execSQL(ctx, r.pool, tx, q, requesterID, prevEnd, start, end)
	if err != nil {
		return false, mapErr("subscriptions", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, requesterID string, status model.SubscriptionStatus) error {
	const q = `UPDATE subscriptions SET status=$2, updated_at=NOW() WHERE requester_id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, requesterID, string(status))
	if err != nil {
		return mapErr("subscriptions", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
UPDATE subscriptions
   SET status='expired', updated_at=NOW()
 WHERE status='active' AND expires_at IS NOT NULL AND expires_at <= $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, mapErr("subscriptions", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM subscriptions GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapErr("subscriptions", err)
	}
	defer rows.Close()

	out := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.SubscriptionStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var (
		s      model.Subscription
		status string
	)
	if err := row.Scan(
		&s.RequesterID, &status, &s.CycleStart, &s.CycleEnd, &s.ExpiresAt,
		&s.Free.Limit, &s.Free.Used,
		&s.Discounted.Limit, &s.Discounted.Used,
		&s.PremiumArticles.Limit, &s.PremiumArticles.Used,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.Status = model.SubscriptionStatus(status)
	return &s, nil
}
