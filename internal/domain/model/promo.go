package model

import (
	"strings"
	"time"

	"content-entitlement/internal/domain"
)

type PromoCode struct {
	Code               string    `json:"code"`
	DiscountPercentage int       `json:"discountPercentage"`
	ValidUntil         time.Time `json:"validUntil"`
	MaxUses            int       `json:"maxUses"`
	CurrentUses        int       `json:"currentUses"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
}

// NormalizePromoCode is the canonical (upper-case, trimmed) form codes are stored in.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NewPromoCode(code string, percent int, validUntil time.Time, maxUses int, now time.Time) (*PromoCode, error) {
	code = NormalizePromoCode(code)
	if code == "" || percent < 1 || percent > 100 || maxUses < 1 || !validUntil.After(now) {
		return nil, domain.ErrInvalidArgument
	}
	return &PromoCode{
		Code:               code,
		DiscountPercentage: percent,
		ValidUntil:         validUntil.UTC(),
		MaxUses:            maxUses,
		IsActive:           true,
		CreatedAt:          now.UTC(),
	}, nil
}

// Usable reports whether the code may be applied at now.
func (p *PromoCode) Usable(now time.Time) bool {
	return p != nil && p.IsActive && p.CurrentUses < p.MaxUses && p.ValidUntil.After(now)
}
