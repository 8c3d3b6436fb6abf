// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"content-entitlement/internal/config"
	"content-entitlement/internal/domain/ports/adapter"
	aiAdapters "content-entitlement/internal/infra/adapters/ai"
	payAdapters "content-entitlement/internal/infra/adapters/payment"
	"content-entitlement/internal/infra/api"
	"content-entitlement/internal/infra/api/apiv1"
	"content-entitlement/internal/infra/catalog"
	pg "content-entitlement/internal/infra/db/postgres"
	"content-entitlement/internal/infra/logging"
	"content-entitlement/internal/infra/metrics"
	red "content-entitlement/internal/infra/redis"
	"content-entitlement/internal/infra/sched"
	"content-entitlement/internal/infra/worker"
	"content-entitlement/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted references)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("application stopped")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	// ---- Postgres ----
	if cfg.Database.Migrate {
		if err := pg.Migrate(ctx, cfg.Database.URL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	go pg.ObservePool(ctx, pool, 15*time.Second, logger)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()
	locker := red.NewLocker(redisClient)
	purchaseLimiter := red.NewRateLimiter(redisClient).ForAction("purchase", cfg.Limits.PurchasesPerMinute, time.Minute)

	// ---- Catalog ----
	files, err := catalog.LoadFile(cfg.Catalog.Path, logger)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	items := catalog.NewCacheDecorator(files, redisClient, cfg.Catalog.CacheTTL, logger)

	// ---- Payments ----
	var payments adapter.PaymentVerifier
	switch cfg.Payment.Provider {
	case "stripe":
		payments, err = payAdapters.NewStripeVerifier(cfg.Payment.StripeSecretKey, cfg.Payment.Currency, logger)
		if err != nil {
			return fmt.Errorf("stripe verifier: %w", err)
		}
	default:
		logger.Warn().Msg("payment provider is noop; only noop_ references are accepted")
		payments = payAdapters.NewNoopPaymentVerifier()
	}

	// ---- Repositories ----
	subRepo := pg.NewSubscriptionRepo(pool)
	purchaseRepo := pg.NewPurchaseRepo(pool)
	promoRepo := pg.NewPromoRepo(pool)
	runRepo := pg.NewQuizRunRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Use cases ----
	quotaUC := usecase.NewQuotaUseCase(subRepo, txm, logger)
	ledgerUC := usecase.NewLedgerUseCase(purchaseRepo, logger)
	promoUC := usecase.NewPromoUseCase(promoRepo, logger)
	pricing := usecase.NewPricingResolver(cfg.Pricing.SubscriberDiscountPercent)
	accessUC := usecase.NewAccessUseCase(items, quotaUC, ledgerUC, promoUC, pricing, payments, pg.NewAdvisoryLocker(), txm, logger)

	// ---- Analysis (optional) ----
	var (
		analysisUC usecase.AnalysisUseCase
		processor  *worker.AnalysisProcessor
		jobs       *worker.Pool
	)
	analyst, err := buildAnalyst(ctx, cfg.Analysis, logger)
	if err != nil {
		return err
	}
	if analyst != nil {
		analysisUC = usecase.NewAnalysisUseCase(runRepo, items, analyst, locker, logger)
		jobs = worker.NewPool(cfg.Analysis.Workers, logger)
		jobs.Start(ctx)
		defer jobs.Stop()
		processor = worker.NewAnalysisProcessor(runRepo, analysisUC, jobs, logger)
		go processor.Start(ctx)
	}
	var submitter usecase.TaskSubmitter
	if processor != nil {
		submitter = processor
	}
	quizUC := usecase.NewQuizUseCase(items, ledgerUC, runRepo, analysisUC, submitter, logger)

	// ---- Background jobs ----
	expiry := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, quotaUC, logger)
	go func() {
		if err := expiry.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("expiry worker stopped")
		}
	}()

	// ---- HTTP ----
	v1 := apiv1.NewServer(apiv1.Deps{
		Access:          accessUC,
		Quiz:            quizUC,
		Promos:          promoUC,
		Quota:           quotaUC,
		Ledger:          ledgerUC,
		PurchaseLimiter: purchaseLimiter,
	}, logger)
	ipLimiter := api.NewIPLimiter(cfg.HTTP.IPRate, cfg.HTTP.IPBurst)
	go ipLimiter.Run(ctx)

	handler := api.NewRouter(api.Options{
		HTTP:        cfg.HTTP,
		JWTSecret:   cfg.Auth.JWTSecret,
		AdminAPIKey: cfg.Auth.AdminAPIKey,
		Checks: map[string]api.HealthCheck{
			"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
			"redis":    redisClient.Ping,
		},
	}, v1, ipLimiter, logger)

	server := api.NewHTTPServer(fmt.Sprintf(":%d", cfg.HTTP.Port), handler, cfg.HTTP)
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("payments", cfg.Payment.Provider).
			Str("analysis", cfg.Analysis.Provider).Msg("http api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	return nil
}

// buildAnalyst returns nil when analysis is disabled. Every provider with a
// key is registered so the configured one can fall back to the others.
func buildAnalyst(ctx context.Context, cfg config.AnalysisConfig, logger *zerolog.Logger) (adapter.ResultAnalyst, error) {
	if cfg.Provider == "none" {
		return nil, nil
	}
	prompts := aiAdapters.NewPromptBuilder(aiAdapters.NewTokenCounter(), cfg.MaxPromptTokens)
	modelFor := func(provider string) string {
		if provider == cfg.Provider {
			return cfg.Model
		}
		return ""
	}

	byProvider := map[string]adapter.ResultAnalyst{}
	if cfg.OpenAIKey != "" {
		a, err := aiAdapters.NewOpenAIAnalyst(cfg.OpenAIKey, cfg.OpenAIBaseURL, modelFor("openai"), prompts, logger)
		if err != nil {
			return nil, fmt.Errorf("openai analyst: %w", err)
		}
		byProvider["openai"] = a
	}
	if cfg.GeminiKey != "" {
		a, err := aiAdapters.NewGeminiAnalyst(ctx, cfg.GeminiKey, cfg.GeminiURL, modelFor("gemini"), prompts, logger)
		if err != nil {
			return nil, fmt.Errorf("gemini analyst: %w", err)
		}
		byProvider["gemini"] = a
	}
	if _, ok := byProvider[cfg.Provider]; !ok {
		logger.Warn().Str("provider", cfg.Provider).Msg("analysis provider has no api key; analysis disabled")
		return nil, nil
	}

	multi := aiAdapters.NewMultiAnalyst(cfg.Provider, byProvider, logger)
	logger.Info().Str("provider", multi.Name()).Str("model", cfg.Model).Int("providers", len(byProvider)).Msg("analysis enabled")
	return aiAdapters.NewLimitedAnalyst(multi, cfg.ConcurrentLimit), nil
}
