package model

import "time"

type PaymentMethod string

const (
	PaymentMethodFree         PaymentMethod = "free"
	PaymentMethodSubscription PaymentMethod = "subscription"
	PaymentMethodDirect       PaymentMethod = "direct"
)

// PurchaseRecord is an append-only ledger entry granting permanent access to one
// item. At most one exists per (requester, item type, item id).
type PurchaseRecord struct {
	ID               string        `json:"id"`
	RequesterID      string        `json:"requesterId"`
	ItemType         ItemKind      `json:"itemType"`
	ItemID           string        `json:"itemId"`
	BasePrice        int64         `json:"basePrice"`
	PricePaid        int64         `json:"pricePaid"`
	DiscountApplied  int64         `json:"discountApplied"`
	PaymentMethod    PaymentMethod `json:"paymentMethod"`
	Allowance        AllowanceKind `json:"allowance"`
	PromoCode        *string       `json:"promoCode,omitempty"`
	PaymentReference *string       `json:"paymentReference,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// PurchaseRequest is the input of a purchase attempt.
type PurchaseRequest struct {
	RequesterID      string
	Kind             ItemKind
	Slug             string
	PromoCode        string
	PaymentReference string
}

type PurchaseFilter struct {
	RequesterID string
	ItemType    ItemKind
	Method      PaymentMethod
	From, To    *time.Time
	Limit       int
	Offset      int
}
