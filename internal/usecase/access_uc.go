package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/domain/ports/adapter"
	"content-entitlement/internal/domain/ports/repository"
	"content-entitlement/internal/infra/logging"
)

// AccessUseCase is the single entry point for access checks and purchases.
type AccessUseCase interface {
	// GetAccess reports whether requesterID may open the item and at what price.
	// It is read-only except for one case: when an allowance makes the item free,
	// the allowance is consumed and a ledger record written in one transaction.
	// Unknown items yield Exists=false and no error.
	GetAccess(ctx context.Context, requesterID string, kind model.ItemKind, slug string) (*model.AccessDecision, error)

	// Purchase grants permanent access. It is idempotent per
	// (requester, item): a repeated call returns the existing record untouched.
	// A positive price requires a payment reference the verifier accepts,
	// otherwise *domain.PaymentRequiredError carries the amount due.
	Purchase(ctx context.Context, req model.PurchaseRequest) (*model.PurchaseRecord, error)
}

var _ AccessUseCase = (*accessUC)(nil)

type accessUC struct {
	catalog  adapter.Catalog
	quota    QuotaUseCase
	ledger   LedgerUseCase
	promos   PromoUseCase
	pricing  *PricingResolver
	payments adapter.PaymentVerifier
	locker   repository.RequesterLocker
	tx       repository.TransactionManager
	log      *zerolog.Logger
	now      func() time.Time
}

func NewAccessUseCase(
	catalog adapter.Catalog,
	quota QuotaUseCase,
	ledger LedgerUseCase,
	promos PromoUseCase,
	pricing *PricingResolver,
	payments adapter.PaymentVerifier,
	locker repository.RequesterLocker,
	tx repository.TransactionManager,
	logger *zerolog.Logger,
) AccessUseCase {
	l := logger.With().Str("component", "AccessUseCase").Logger()
	return &accessUC{
		catalog:  catalog,
		quota:    quota,
		ledger:   ledger,
		promos:   promos,
		pricing:  pricing,
		payments: payments,
		locker:   locker,
		tx:       tx,
		log:      &l,
		now:      time.Now,
	}
}

func (u *accessUC) GetAccess(ctx context.Context, requesterID string, kind model.ItemKind, slug string) (*model.AccessDecision, error) {
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "AccessUC.GetAccess")()

	item, err := u.catalog.Item(ctx, kind, slug)
	if errors.Is(err, domain.ErrNotFound) {
		return &model.AccessDecision{}, nil
	}
	if err != nil {
		return nil, err
	}
	meta := item.Meta()
	d := &model.AccessDecision{Exists: true, IsPaid: meta.Charged(), BasePrice: meta.BasePrice}

	if !meta.Charged() {
		d.HasAccess = true
		return d, nil
	}
	if requesterID == "" {
		d.FinalPrice = meta.BasePrice
		return d, nil
	}

	rec, err := u.ledger.Find(ctx, repository.NoTX, requesterID, kind, meta.Slug)
	if err != nil {
		return nil, err
	}
	sub, err := u.quota.Current(ctx, repository.NoTX, requesterID)
	if err != nil {
		return nil, err
	}
	now := u.now()
	d.IsSubscriber = sub.IsActive(now)

	if rec != nil {
		d.HasAccess, d.Purchased = true, true
		return d, nil
	}

	quote := u.pricing.Resolve(sub, kind, meta.BasePrice, now)
	if quote.Price > 0 || quote.Allowance == model.AllowanceNone {
		d.FinalPrice = quote.Price
		return d, nil
	}

	rec, quote, err = u.claim(ctx, requesterID, kind, meta)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		d.FinalPrice = quote.Price
		return d, nil
	}
	d.HasAccess, d.Purchased = true, true
	return d, nil
}

// claim consumes the allowance that makes an item free and records it. It
// returns a nil record, with the price that now applies, when the allowance is
// gone by the time the lock is held.
func (u *accessUC) claim(ctx context.Context, requesterID string, kind model.ItemKind, meta model.ItemMeta) (*model.PurchaseRecord, model.PriceQuote, error) {
	var (
		rec   *model.PurchaseRecord
		quote model.PriceQuote
	)
	err := u.tx.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.locker.LockRequester(ctx, tx, requesterID); err != nil {
			return err
		}
		existing, err := u.ledger.Find(ctx, tx, requesterID, kind, meta.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			rec = existing
			return nil
		}

		quote, err = u.settleAllowance(ctx, tx, requesterID, kind, meta.BasePrice, true)
		if err != nil {
			return err
		}
		if quote.Price > 0 || quote.Allowance == model.AllowanceNone {
			return nil
		}
		rec, err = u.ledger.Record(ctx, tx, &model.PurchaseRecord{
			RequesterID:   requesterID,
			ItemType:      kind,
			ItemID:        meta.Slug,
			BasePrice:     meta.BasePrice,
			PricePaid:     0,
			PaymentMethod: model.PaymentMethodSubscription,
			Allowance:     quote.Allowance,
		})
		return err
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		existing, ferr := u.ledger.Find(ctx, repository.NoTX, requesterID, kind, meta.Slug)
		if ferr != nil {
			return nil, quote, ferr
		}
		if existing != nil {
			return existing, quote, nil
		}
	}
	if err != nil {
		return nil, quote, err
	}
	if rec != nil && rec.PaymentMethod == model.PaymentMethodSubscription {
		logging.With(ctx, u.log).Info().
			Str("item", meta.Slug).
			Str("allowance", string(rec.Allowance)).
			Msg("allowance claimed")
	}
	return rec, quote, nil
}

// settleAllowance resolves the price inside tx after the lazy cycle reset and
// consumes the allowance behind it. With onlyWhenFree set, an allowance that
// merely discounts is left untouched. A unit that vanished between read and
// consume is retried against refreshed counters; after that the base price applies.
func (u *accessUC) settleAllowance(ctx context.Context, tx repository.Tx, requesterID string, kind model.ItemKind, basePrice int64, onlyWhenFree bool) (model.PriceQuote, error) {
	sub, err := u.quota.ResetIfCycleElapsed(ctx, tx, requesterID)
	if err != nil {
		return model.PriceQuote{}, err
	}
	for attempt := 0; attempt < 2; attempt++ {
		quote := u.pricing.Resolve(sub, kind, basePrice, u.now())
		if quote.Allowance == model.AllowanceNone || (onlyWhenFree && quote.Price > 0) {
			return quote, nil
		}
		ok, err := u.quota.Consume(ctx, tx, requesterID, quote.Allowance)
		if err != nil {
			return model.PriceQuote{}, err
		}
		if ok {
			return quote, nil
		}
		if sub, err = u.quota.Current(ctx, tx, requesterID); err != nil {
			return model.PriceQuote{}, err
		}
	}
	return model.PriceQuote{BasePrice: basePrice, Price: basePrice, Allowance: model.AllowanceNone}, nil
}

func (u *accessUC) Purchase(ctx context.Context, req model.PurchaseRequest) (*model.PurchaseRecord, error) {
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "AccessUC.Purchase")()

	if strings.TrimSpace(req.RequesterID) == "" || strings.TrimSpace(req.Slug) == "" {
		return nil, domain.ErrInvalidArgument
	}
	item, err := u.catalog.Item(ctx, req.Kind, req.Slug)
	if err != nil {
		return nil, err
	}
	meta := item.Meta()
	// Free items are recorded at zero and leave allowances and promos alone.
	basePrice := meta.BasePrice
	if !meta.Charged() {
		basePrice = 0
	}

	var promo *model.PromoCode
	if basePrice > 0 && strings.TrimSpace(req.PromoCode) != "" {
		p, err := u.promos.Validate(ctx, req.PromoCode)
		switch {
		case err == nil:
			promo = p
		case errors.Is(err, domain.ErrInvalidPromoCode):
			log.Info().Str("code", req.PromoCode).Msg("ignoring unusable promo code")
		default:
			return nil, err
		}
	}

	var rec *model.PurchaseRecord
	err = u.tx.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.locker.LockRequester(ctx, tx, req.RequesterID); err != nil {
			return err
		}
		existing, err := u.ledger.Find(ctx, tx, req.RequesterID, req.Kind, meta.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			rec = existing
			return nil
		}

		quote := model.PriceQuote{Allowance: model.AllowanceNone}
		if basePrice > 0 {
			if quote, err = u.settleAllowance(ctx, tx, req.RequesterID, req.Kind, basePrice, false); err != nil {
				return err
			}
		}

		price := quote.Price
		var promoCode *string
		if promo != nil && price > 0 {
			redeemed, err := u.promos.Redeem(ctx, tx, promo.Code)
			if err != nil {
				return err
			}
			// A code exhausted by a concurrent buyer falls back to the pre-promo price.
			if redeemed {
				price = ApplyPercentOff(price, promo.DiscountPercentage)
				code := promo.Code
				promoCode = &code
			}
		}

		var ref *string
		if price > 0 {
			reference := strings.TrimSpace(req.PaymentReference)
			if reference == "" {
				return &domain.PaymentRequiredError{Amount: price}
			}
			if u.payments == nil {
				return domain.ErrPaymentNotVerified
			}
			if err := u.payments.Verify(ctx, reference, price); err != nil {
				return err
			}
			ref = &reference
		}

		rec, err = u.ledger.Record(ctx, tx, &model.PurchaseRecord{
			RequesterID:      req.RequesterID,
			ItemType:         req.Kind,
			ItemID:           meta.Slug,
			BasePrice:        basePrice,
			PricePaid:        price,
			PaymentMethod:    paymentMethodFor(quote, price),
			Allowance:        quote.Allowance,
			PromoCode:        promoCode,
			PaymentReference: ref,
		})
		return err
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Lost to a concurrent purchase of the same item; our writes were rolled back.
		existing, ferr := u.ledger.Find(ctx, repository.NoTX, req.RequesterID, req.Kind, meta.Slug)
		if ferr != nil {
			return nil, ferr
		}
		if existing != nil {
			return existing, nil
		}
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("purchase_id", rec.ID).
		Str("item", rec.ItemID).
		Str("method", string(rec.PaymentMethod)).
		Int64("price_paid", rec.PricePaid).
		Msg("purchase recorded")
	return rec, nil
}

func paymentMethodFor(quote model.PriceQuote, price int64) model.PaymentMethod {
	switch {
	case price > 0:
		return model.PaymentMethodDirect
	case quote.Price == 0 && quote.Allowance != model.AllowanceNone:
		return model.PaymentMethodSubscription
	default:
		return model.PaymentMethodFree
	}
}
