package model

import (
	"strings"
	"time"

	"content-entitlement/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// AllowanceKind names the per-cycle counter an access was charged against.
type AllowanceKind string

const (
	AllowanceNone           AllowanceKind = "none"
	AllowanceFree           AllowanceKind = "free"
	AllowanceDiscounted     AllowanceKind = "discounted"
	AllowancePremiumArticle AllowanceKind = "premium_article"
)

func ParseAllowanceKind(s string) (AllowanceKind, error) {
	switch AllowanceKind(strings.ToLower(strings.TrimSpace(s))) {
	case AllowanceFree:
		return AllowanceFree, nil
	case AllowanceDiscounted:
		return AllowanceDiscounted, nil
	case AllowancePremiumArticle:
		return AllowancePremiumArticle, nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

type Allowance struct {
	Limit int `json:"limit"`
	Used  int `json:"used"`
}

func (a Allowance) Remaining() int {
	if a.Used >= a.Limit {
		return 0
	}
	return a.Limit - a.Used
}

// AllowanceLimits is the per-cycle grant attached to a plan.
type AllowanceLimits struct {
	FreeItems       int `json:"freeItems"`
	DiscountedItems int `json:"discountedItems"`
	PremiumArticles int `json:"premiumArticles"`
}

// Subscription holds a requester's allowance counters for the current billing cycle.
// One row per requester.
type Subscription struct {
	RequesterID     string
	Status          SubscriptionStatus
	CycleStart      time.Time
	CycleEnd        time.Time
	ExpiresAt       *time.Time // nil renews indefinitely
	Free            Allowance
	Discounted      Allowance
	PremiumArticles Allowance
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewSubscription starts a fresh cycle at now with all counters at zero.
func NewSubscription(requesterID string, limits AllowanceLimits, now time.Time, expiresAt *time.Time) (*Subscription, error) {
	if strings.TrimSpace(requesterID) == "" ||
		limits.FreeItems < 0 || limits.DiscountedItems < 0 || limits.PremiumArticles < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, domain.ErrInvalidArgument
	}
	now = now.UTC().Truncate(time.Microsecond)
	return &Subscription{
		RequesterID:     requesterID,
		Status:          SubscriptionStatusActive,
		CycleStart:      now,
		CycleEnd:        NextBillingBoundary(now),
		ExpiresAt:       expiresAt,
		Free:            Allowance{Limit: limits.FreeItems},
		Discounted:      Allowance{Limit: limits.DiscountedItems},
		PremiumArticles: Allowance{Limit: limits.PremiumArticles},
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsActive reports whether the subscription grants allowances at now.
func (s *Subscription) IsActive(now time.Time) bool {
	if s == nil || s.Status != SubscriptionStatusActive {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

func (s *Subscription) CycleElapsed(now time.Time) bool {
	return s != nil && now.After(s.CycleEnd)
}

func (s *Subscription) allowance(kind AllowanceKind) *Allowance {
	switch kind {
	case AllowanceFree:
		return &s.Free
	case AllowanceDiscounted:
		return &s.Discounted
	case AllowancePremiumArticle:
		return &s.PremiumArticles
	default:
		return nil
	}
}

// Remaining returns the unused count for kind as seen at now. An elapsed cycle
// reports the full limit because the counters are due for a reset.
func (s *Subscription) Remaining(kind AllowanceKind, now time.Time) int {
	if !s.IsActive(now) {
		return 0
	}
	a := s.allowance(kind)
	if a == nil {
		return 0
	}
	if s.CycleElapsed(now) {
		return a.Limit
	}
	return a.Remaining()
}

func (s *Subscription) Limits() AllowanceLimits {
	return AllowanceLimits{
		FreeItems:       s.Free.Limit,
		DiscountedItems: s.Discounted.Limit,
		PremiumArticles: s.PremiumArticles.Limit,
	}
}

// AdvanceCycle returns the cycle that contains now, stepping whole billing
// periods forward from the current cycle end on the cycle's anchor day.
func (s *Subscription) AdvanceCycle(now time.Time) (start, end time.Time) {
	start, end = s.CycleStart, s.CycleEnd
	anchor := anchorDay(start, end)
	for now.After(end) {
		start = end
		end = AddBillingMonth(start, anchor)
	}
	return start, end
}

// NextBillingBoundary is one calendar month after t, anchored on t's day.
func NextBillingBoundary(t time.Time) time.Time { return AddBillingMonth(t, t.Day()) }

// AddBillingMonth moves t to the next month on the given day, clamped to the
// length of that month. The time of day is kept.
func AddBillingMonth(t time.Time, day int) time.Time {
	y, m, _ := t.Date()
	if last := daysIn(y, m+1, t.Location()); day > last {
		day = last
	}
	return time.Date(y, m+1, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// anchorDay recovers the billing day from one cycle. A cycle spans adjacent
// months and at most one of its ends is clamped, so the larger day is the anchor.
func anchorDay(start, end time.Time) int {
	if d := end.Day(); d > start.Day() {
		return d
	}
	return start.Day()
}

// Usage is the read model served to requesters.
type Usage struct {
	RequesterID     string             `json:"requesterId"`
	Status          SubscriptionStatus `json:"status"`
	Free            Allowance          `json:"freeItems"`
	Discounted      Allowance          `json:"discountedItems"`
	PremiumArticles Allowance          `json:"premiumArticles"`
	CycleEnd        time.Time          `json:"resetsAt"`
	ExpiresAt       *time.Time         `json:"expiresAt,omitempty"`
}
