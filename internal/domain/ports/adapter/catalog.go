package adapter

import (
	"context"

	"content-entitlement/internal/domain/model"
)

// Catalog is the read-only content lookup. Missing items yield domain.ErrNotFound.
type Catalog interface {
	Item(ctx context.Context, kind model.ItemKind, slug string) (model.ContentItem, error)
	Quiz(ctx context.Context, slug string) (*model.Quiz, error)
}
