// Package apiv1 exposes the entitlement use cases over JSON/HTTP.
package apiv1

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"content-entitlement/internal/usecase"
)

// RequesterLimiter throttles one action per requester.
type RequesterLimiter interface {
	Allow(ctx context.Context, requesterID string) (bool, error)
}

type Deps struct {
	Access usecase.AccessUseCase
	Quiz   usecase.QuizUseCase
	Promos usecase.PromoUseCase
	Quota  usecase.QuotaUseCase
	Ledger usecase.LedgerUseCase

	// PurchaseLimiter may be nil, which disables purchase throttling.
	PurchaseLimiter RequesterLimiter
}

type Server struct {
	access  usecase.AccessUseCase
	quiz    usecase.QuizUseCase
	promos  usecase.PromoUseCase
	quota   usecase.QuotaUseCase
	ledger  usecase.LedgerUseCase
	limiter RequesterLimiter
	log     *zerolog.Logger
	now     func() time.Time
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "apiv1").Logger()
	return &Server{
		access:  d.Access,
		quiz:    d.Quiz,
		promos:  d.Promos,
		quota:   d.Quota,
		ledger:  d.Ledger,
		limiter: d.PurchaseLimiter,
		log:     &l,
		now:     time.Now,
	}
}

// RegisterPublic mounts the requester-facing routes. Identity must already be
// resolved into the request context.
func RegisterPublic(r chi.Router, s *Server) {
	r.Get("/api/v1/access", s.getAccess)
	r.Post("/api/v1/purchases", s.postPurchase)
	r.Post("/api/v1/quizzes/{slug}/submit", s.submitQuiz)
	r.Get("/api/v1/quiz-runs/{runId}", s.getQuizRun)
	r.Get("/api/v1/promo-codes/{code}", s.validatePromo)
	r.Get("/api/v1/me/usage", s.myUsage)
	r.Get("/api/v1/me/purchases", s.myPurchases)
}

// RegisterAdmin mounts operator routes; callers wrap them with admin auth.
func RegisterAdmin(r chi.Router, s *Server) {
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Get("/purchases", s.adminPurchases)
		r.Get("/quiz-runs", s.adminQuizRuns)
		r.Get("/reports/bands", s.adminBands)
		r.Get("/reports/export.xlsx", s.adminExport)
		r.Get("/promo-codes", s.adminListPromos)
		r.Post("/promo-codes", s.adminCreatePromo)
		r.Delete("/promo-codes/{code}", s.adminDeactivatePromo)
		r.Put("/subscriptions/{requesterId}", s.adminUpsertSubscription)
		r.Delete("/subscriptions/{requesterId}", s.adminCancelSubscription)
	})
}
