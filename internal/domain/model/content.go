package model

import (
	"strings"

	"content-entitlement/internal/domain"
)

// ItemKind discriminates the two sellable content kinds.
type ItemKind string

const (
	ItemKindQuiz    ItemKind = "quiz"
	ItemKindArticle ItemKind = "article"
)

func ParseItemKind(s string) (ItemKind, error) {
	switch ItemKind(strings.ToLower(strings.TrimSpace(s))) {
	case ItemKindQuiz:
		return ItemKindQuiz, nil
	case ItemKindArticle:
		return ItemKindArticle, nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

// ItemMeta carries the fields every content item exposes to entitlement logic.
// Prices are in minor currency units.
type ItemMeta struct {
	Slug      string `yaml:"slug" json:"slug"`
	Title     string `yaml:"title" json:"title"`
	BasePrice int64  `yaml:"base_price" json:"basePrice"`
	IsPaid    bool   `yaml:"is_paid" json:"isPaid"`
}

// Charged reports whether access to the item costs anything.
// A paid item priced at zero is treated as free.
func (m ItemMeta) Charged() bool { return m.IsPaid && m.BasePrice > 0 }

// ContentItem is the read-only view of a catalog entry.
type ContentItem interface {
	Kind() ItemKind
	Meta() ItemMeta
}

type Article struct {
	ItemMeta `yaml:",inline"`
	Author   string `yaml:"author" json:"author,omitempty"`
}

func (a *Article) Kind() ItemKind { return ItemKindArticle }
func (a *Article) Meta() ItemMeta { return a.ItemMeta }

var (
	_ ContentItem = (*Article)(nil)
	_ ContentItem = (*Quiz)(nil)
)
