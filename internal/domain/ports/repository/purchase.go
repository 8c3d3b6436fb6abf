package repository

import (
	"context"

	"content-entitlement/internal/domain/model"
)

// PurchaseRepository is the append-only ledger port.
type PurchaseRepository interface {
	Find(ctx context.Context, tx Tx, requesterID string, kind model.ItemKind, itemID string) (*model.PurchaseRecord, error)
	// Insert returns domain.ErrAlreadyExists when a record for the same
	// (requester, item type, item id) is already present.
	Insert(ctx context.Context, tx Tx, p *model.PurchaseRecord) error
	List(ctx context.Context, tx Tx, f model.PurchaseFilter) ([]*model.PurchaseRecord, error)
	CountByMethod(ctx context.Context, tx Tx) (map[model.PaymentMethod]int, error)
}
