package usecase

import (
	"time"

	"content-entitlement/internal/domain/model"
)

// DefaultSubscriberDiscountPercent applies to quizzes bought against the
// discounted allowance when config does not override it.
const DefaultSubscriberDiscountPercent = 50

// PricingResolver computes the price a requester would pay for an item given
// their subscription state. It has no side effects.
type PricingResolver struct {
	discountPercent int
}

func NewPricingResolver(discountPercent int) *PricingResolver {
	if discountPercent <= 0 || discountPercent > 100 {
		discountPercent = DefaultSubscriberDiscountPercent
	}
	return &PricingResolver{discountPercent: discountPercent}
}

// Resolve applies the allowance rules in order, first match wins:
//  1. no active subscription: base price
//  2. quiz with free items left, or article with premium articles left: 0
//  3. quiz with discounted items left: base less the subscriber discount
//  4. otherwise: base price
func (p *PricingResolver) Resolve(sub *model.Subscription, kind model.ItemKind, basePrice int64, now time.Time) model.PriceQuote {
	q := model.PriceQuote{BasePrice: basePrice, Price: basePrice, Allowance: model.AllowanceNone}
	if basePrice <= 0 {
		q.Price = 0
		return q
	}
	if !sub.IsActive(now) {
		return q
	}

	switch kind {
	case model.ItemKindQuiz:
		if sub.Remaining(model.AllowanceFree, now) > 0 {
			q.Price, q.Allowance = 0, model.AllowanceFree
			return q
		}
		if sub.Remaining(model.AllowanceDiscounted, now) > 0 {
			q.Price, q.Allowance = ApplyPercentOff(basePrice, p.discountPercent), model.AllowanceDiscounted
			return q
		}
	case model.ItemKindArticle:
		if sub.Remaining(model.AllowancePremiumArticle, now) > 0 {
			q.Price, q.Allowance = 0, model.AllowancePremiumArticle
			return q
		}
	}
	return q
}

// ApplyPercentOff reduces price by percent, rounding half up in minor units.
// The result is never negative.
func ApplyPercentOff(price int64, percent int) int64 {
	if price <= 0 {
		return 0
	}
	if percent <= 0 {
		return price
	}
	if percent >= 100 {
		return 0
	}
	return (price*int64(100-percent) + 50) / 100
}
