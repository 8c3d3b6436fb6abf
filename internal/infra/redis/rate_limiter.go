package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter shared across instances.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

func RequesterActionKey(requesterID, action string) string {
	return fmt.Sprintf("rate_limit:%s:%s", requesterID, action)
}

// ActionLimiter applies one window to a single action for every requester.
type ActionLimiter struct {
	rl     *RateLimiter
	action string
	limit  int
	window time.Duration
}

func (r *RateLimiter) ForAction(action string, limit int, window time.Duration) *ActionLimiter {
	return &ActionLimiter{rl: r, action: action, limit: limit, window: window}
}

func (a *ActionLimiter) Allow(ctx context.Context, requesterID string) (bool, error) {
	return a.rl.Allow(ctx, RequesterActionKey(requesterID, a.action), a.limit, a.window)
}
