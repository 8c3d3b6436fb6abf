package apiv1

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/infra/logging"
	"content-entitlement/internal/infra/report"
)

type page struct {
	Items  interface{} `json:"items"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

func (s *Server) adminPurchases(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	var (
		f   model.PurchaseFilter
		err error
	)
	if f.Limit, f.Offset, err = queryPage(r); err != nil {
		writeError(w, log, err)
		return
	}
	if f.RequesterID, err = queryString(r, "requesterId"); err != nil {
		writeError(w, log, err)
		return
	}
	typ, err := queryString(r, "type")
	if err != nil {
		writeError(w, log, err)
		return
	}
	if typ != "" {
		if f.ItemType, err = model.ParseItemKind(typ); err != nil {
			writeError(w, log, fmt.Errorf("%w: type must be quiz or article", domain.ErrInvalidArgument))
			return
		}
	}
	method, err := queryString(r, "method")
	if err != nil {
		writeError(w, log, err)
		return
	}
	switch m := model.PaymentMethod(strings.ToLower(method)); m {
	case "":
	case model.PaymentMethodFree, model.PaymentMethodSubscription, model.PaymentMethodDirect:
		f.Method = m
	default:
		writeError(w, log, fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidArgument, method))
		return
	}
	if f.From, err = queryTime(r, "from"); err != nil {
		writeError(w, log, err)
		return
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		writeError(w, log, err)
		return
	}

	recs, err := s.ledger.List(r.Context(), f)
	if err != nil {
		writeError(w, log, err)
		return
	}
	if recs == nil {
		recs = []*model.PurchaseRecord{}
	}
	writeJSON(w, http.StatusOK, page{Items: recs, Limit: f.Limit, Offset: f.Offset})
}

func (s *Server) adminQuizRuns(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	var (
		f   model.QuizRunFilter
		err error
	)
	if f.Limit, f.Offset, err = queryPage(r); err != nil {
		writeError(w, log, err)
		return
	}
	if f.QuizSlug, err = queryString(r, "quiz"); err != nil {
		writeError(w, log, err)
		return
	}
	if f.RequesterID, err = queryString(r, "requesterId"); err != nil {
		writeError(w, log, err)
		return
	}
	if f.From, err = queryTime(r, "from"); err != nil {
		writeError(w, log, err)
		return
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		writeError(w, log, err)
		return
	}

	runs, err := s.quiz.List(r.Context(), f)
	if err != nil {
		writeError(w, log, err)
		return
	}
	if runs == nil {
		runs = []*model.QuizRun{}
	}
	writeJSON(w, http.StatusOK, page{Items: runs, Limit: f.Limit, Offset: f.Offset})
}

func (s *Server) adminBands(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	quiz, err := queryString(r, "quiz")
	if err != nil {
		writeError(w, log, err)
		return
	}
	bands, err := s.quiz.BandDistribution(r.Context(), quiz)
	if err != nil {
		writeError(w, log, err)
		return
	}
	if bands == nil {
		bands = []model.BandCount{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"quiz": quiz, "bands": bands})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// adminExport builds the workbook in memory so a failure can still be
// reported as JSON.
func (s *Server) adminExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)

	quiz, err := queryString(r, "quiz")
	if err != nil {
		writeError(w, log, err)
		return
	}
	sum := report.Summary{GeneratedAt: s.now()}
	if sum.Bands, err = s.quiz.BandDistribution(ctx, quiz); err != nil {
		writeError(w, log, err)
		return
	}
	if sum.Purchases, err = s.ledger.CountByMethod(ctx); err != nil {
		writeError(w, log, err)
		return
	}
	if sum.Subscriptions, err = s.quota.CountByStatus(ctx); err != nil {
		writeError(w, log, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, sum); err != nil {
		writeError(w, log, err)
		return
	}
	name := fmt.Sprintf("entitlements_%s.xlsx", sum.GeneratedAt.UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) adminListPromos(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	codes, err := s.promos.List(r.Context())
	if err != nil {
		writeError(w, log, err)
		return
	}
	if codes == nil {
		codes = []*model.PromoCode{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": codes})
}

type promoCreateRequest struct {
	Code               string    `json:"code"`
	DiscountPercentage int       `json:"discountPercentage"`
	ValidUntil         time.Time `json:"validUntil"`
	MaxUses            int       `json:"maxUses"`
}

func (s *Server) adminCreatePromo(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	var body promoCreateRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, log, err)
		return
	}
	p, err := s.promos.Create(r.Context(), body.Code, body.DiscountPercentage, body.ValidUntil, body.MaxUses)
	if err != nil {
		writeError(w, log, err)
		return
	}
	log.Info().Str("code", p.Code).Int("percent", p.DiscountPercentage).Msg("promo code created")
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) adminDeactivatePromo(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	code := chi.URLParam(r, "code")
	if err := s.promos.Deactivate(r.Context(), code); err != nil {
		writeError(w, log, err)
		return
	}
	log.Info().Str("code", model.NormalizePromoCode(code)).Msg("promo code deactivated")
	w.WriteHeader(http.StatusNoContent)
}

type subscriptionRequest struct {
	FreeItems       int        `json:"freeItems"`
	DiscountedItems int        `json:"discountedItems"`
	PremiumArticles int        `json:"premiumArticles"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
}

type subscriptionView struct {
	RequesterID     string                   `json:"requesterId"`
	Status          model.SubscriptionStatus `json:"status"`
	CycleStart      time.Time                `json:"cycleStart"`
	CycleEnd        time.Time                `json:"cycleEnd"`
	ExpiresAt       *time.Time               `json:"expiresAt,omitempty"`
	Free            model.Allowance          `json:"freeItems"`
	Discounted      model.Allowance          `json:"discountedItems"`
	PremiumArticles model.Allowance          `json:"premiumArticles"`
}

func viewSubscription(sub *model.Subscription) subscriptionView {
	return subscriptionView{
		RequesterID:     sub.RequesterID,
		Status:          sub.Status,
		CycleStart:      sub.CycleStart,
		CycleEnd:        sub.CycleEnd,
		ExpiresAt:       sub.ExpiresAt,
		Free:            sub.Free,
		Discounted:      sub.Discounted,
		PremiumArticles: sub.PremiumArticles,
	}
}

func (s *Server) adminUpsertSubscription(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	requesterID := chi.URLParam(r, "requesterId")

	var body subscriptionRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, log, err)
		return
	}
	sub, err := s.quota.Upsert(r.Context(), requesterID, model.AllowanceLimits{
		FreeItems:       body.FreeItems,
		DiscountedItems: body.DiscountedItems,
		PremiumArticles: body.PremiumArticles,
	}, body.ExpiresAt)
	if err != nil {
		writeError(w, log, err)
		return
	}
	log.Info().Str("subscriber", requesterID).Msg("subscription granted")
	writeJSON(w, http.StatusOK, viewSubscription(sub))
}

func (s *Server) adminCancelSubscription(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	requesterID := chi.URLParam(r, "requesterId")
	if err := s.quota.Cancel(r.Context(), requesterID); err != nil {
		writeError(w, log, err)
		return
	}
	log.Info().Str("subscriber", requesterID).Msg("subscription cancelled")
	w.WriteHeader(http.StatusNoContent)
}
