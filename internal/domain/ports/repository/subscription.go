package repository

import (
	"context"
	"time"

	"content-entitlement/internal/domain/model"
)

// SubscriptionRepository is the port for per-requester allowance counters.
type SubscriptionRepository interface {
	// FindByRequester returns domain.ErrNotFound when the requester never subscribed.
	FindByRequester(ctx context.Context, tx Tx, requesterID string) (*model.Subscription, error)

	// Save inserts or replaces the requester's subscription row.
	Save(ctx context.Context, tx Tx, s *model.Subscription) error

	// Consume increments the used counter for kind by one only while it is below
	// its limit and the subscription is active. It reports whether a unit was taken.
	Consume(ctx context.Context, tx Tx, requesterID string, kind model.AllowanceKind) (bool, error)

	// AdvanceCycle zeroes all counters and moves the cycle to [start,end) only if
	// the stored cycle still ends at prevEnd. It reports whether this call applied it.
	AdvanceCycle(ctx context.Context, tx Tx, requesterID string, prevEnd, start, end time.Time) (bool, error)

	UpdateStatus(ctx context.Context, tx Tx, requesterID string, status model.SubscriptionStatus) error

	// ExpireDue marks active subscriptions whose plan ended before now as expired.
	ExpireDue(ctx context.Context, tx Tx, now time.Time) (int, error)

	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
