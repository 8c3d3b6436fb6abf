package model

// AccessDecision is computed per request and never cached.
type AccessDecision struct {
	Exists       bool  `json:"exists"`
	HasAccess    bool  `json:"hasAccess"`
	IsPaid       bool  `json:"isPaid"`
	BasePrice    int64 `json:"basePrice"`
	FinalPrice   int64 `json:"finalPrice"`
	IsSubscriber bool  `json:"isSubscriber"`
	Purchased    bool  `json:"purchased"`
}

// PriceQuote is the pricing resolver's answer: what the requester would pay
// and which allowance, if any, makes it so.
type PriceQuote struct {
	BasePrice int64
	Price     int64
	Allowance AllowanceKind
}
