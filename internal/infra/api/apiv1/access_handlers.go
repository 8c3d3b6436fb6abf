package apiv1

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/infra/logging"
	"content-entitlement/internal/infra/metrics"
)

func (s *Server) getAccess(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	slug, err := queryString(r, "slug")
	if err != nil {
		writeError(w, log, err)
		return
	}
	typ, err := queryString(r, "type")
	if err != nil {
		writeError(w, log, err)
		return
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		writeError(w, log, fmt.Errorf("%w: slug is required", domain.ErrInvalidArgument))
		return
	}
	kind, err := model.ParseItemKind(typ)
	if err != nil {
		writeError(w, log, fmt.Errorf("%w: type must be quiz or article", domain.ErrInvalidArgument))
		return
	}

	decision, err := s.access.GetAccess(r.Context(), logging.RequesterID(r.Context()), kind, slug)
	if err != nil {
		writeError(w, log, err)
		return
	}
	metrics.IncAccessDecision(string(kind), accessOutcome(decision))
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, decision)
}

type purchaseRequest struct {
	Slug             string `json:"slug"`
	Type             string `json:"type"`
	PromoCode        string `json:"promoCode,omitempty"`
	PaymentReference string `json:"paymentReference,omitempty"`
}

type purchaseResponse struct {
	OK       bool                  `json:"ok"`
	Purchase *model.PurchaseRecord `json:"purchase"`
}

func (s *Server) postPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)

	requesterID := logging.RequesterID(ctx)
	if requesterID == "" {
		writeError(w, log, errUnauthorized)
		return
	}

	var body purchaseRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, log, err)
		return
	}
	kind, err := model.ParseItemKind(body.Type)
	if err != nil {
		writeError(w, log, fmt.Errorf("%w: type must be quiz or article", domain.ErrInvalidArgument))
		return
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, requesterID)
		switch {
		case err != nil:
			// fail open
			log.Warn().Err(err).Msg("purchase limiter unavailable")
		case !ok:
			metrics.IncRateLimitTriggered("purchase")
			writeError(w, log, errRateLimited)
			return
		}
	}

	rec, err := s.access.Purchase(ctx, model.PurchaseRequest{
		RequesterID:      requesterID,
		Kind:             kind,
		Slug:             strings.TrimSpace(body.Slug),
		PromoCode:        body.PromoCode,
		PaymentReference: strings.TrimSpace(body.PaymentReference),
	})
	if err != nil {
		writeError(w, log, err)
		return
	}
	metrics.IncPurchase(string(rec.ItemType), string(rec.PaymentMethod))
	writeJSON(w, http.StatusOK, purchaseResponse{OK: true, Purchase: rec})
}

type promoValidation struct {
	Valid              bool       `json:"valid"`
	Code               string     `json:"code"`
	DiscountPercentage int        `json:"discountPercentage,omitempty"`
	ValidUntil         *time.Time `json:"validUntil,omitempty"`
}

// validatePromo answers 200 either way; an unusable code is valid=false.
func (s *Server) validatePromo(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	code := model.NormalizePromoCode(chi.URLParam(r, "code"))

	p, err := s.promos.Validate(r.Context(), code)
	if errors.Is(err, domain.ErrInvalidPromoCode) {
		writeJSON(w, http.StatusOK, promoValidation{Valid: false, Code: code})
		return
	}
	if err != nil {
		writeError(w, log, err)
		return
	}
	until := p.ValidUntil
	writeJSON(w, http.StatusOK, promoValidation{
		Valid:              true,
		Code:               p.Code,
		DiscountPercentage: p.DiscountPercentage,
		ValidUntil:         &until,
	})
}

func (s *Server) myUsage(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	requesterID := logging.RequesterID(r.Context())
	if requesterID == "" {
		writeError(w, log, errUnauthorized)
		return
	}
	usage, err := s.quota.Usage(r.Context(), requesterID)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (s *Server) myPurchases(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	requesterID := logging.RequesterID(r.Context())
	if requesterID == "" {
		writeError(w, log, errUnauthorized)
		return
	}
	limit, offset, err := queryPage(r)
	if err != nil {
		writeError(w, log, err)
		return
	}
	recs, err := s.ledger.List(r.Context(), model.PurchaseFilter{RequesterID: requesterID, Limit: limit, Offset: offset})
	if err != nil {
		writeError(w, log, err)
		return
	}
	if recs == nil {
		recs = []*model.PurchaseRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": recs, "limit": limit, "offset": offset})
}

func accessOutcome(d *model.AccessDecision) string {
	switch {
	case !d.Exists:
		return "unknown"
	case d.HasAccess:
		return "granted"
	default:
		return "priced"
	}
}
