package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/rs/zerolog"

	"content-entitlement/internal/config"
	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/infra/api"
	pg "content-entitlement/internal/infra/db/postgres"
	"content-entitlement/internal/usecase"
)

// Seeds promo codes and a demo subscriber, then prints a bearer token for it.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	requester := flag.String("requester", "demo-subscriber", "requester id of the demo subscriber")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := zerolog.Nop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pg.Migrate(ctx, cfg.Database.URL); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	pool, err := pg.Connect(ctx, config.DatabaseConfig{URL: cfg.Database.URL, MaxConns: 4})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	promoUC := usecase.NewPromoUseCase(pg.NewPromoRepo(pool), &logger)
	quotaUC := usecase.NewQuotaUseCase(pg.NewSubscriptionRepo(pool), pg.NewTxManager(pool), &logger)

	// Promo codes are left alone when they already exist.
	validUntil := time.Now().AddDate(0, 3, 0)
	seed := []struct {
		Code    string
		Percent int
		Uses    int
	}{
		{"WELCOME10", 10, 1000},
		{"SPRING25", 25, 200},
		{"FRIENDS50", 50, 20},
	}
	for _, s := range seed {
		p, err := promoUC.Create(ctx, s.Code, s.Percent, validUntil, s.Uses)
		if errors.Is(err, domain.ErrAlreadyExists) {
			fmt.Printf("promo %s already present\n", s.Code)
			continue
		}
		if err != nil {
			log.Fatalf("create promo %q: %v", s.Code, err)
		}
		fmt.Printf("seeded promo: %s (-%d%%, max uses %d, until %s)\n", p.Code, p.DiscountPercentage, p.MaxUses, p.ValidUntil.Format(time.DateOnly))
	}

	sub, err := quotaUC.Upsert(ctx, *requester, model.AllowanceLimits{FreeItems: 3, DiscountedItems: 5, PremiumArticles: 2}, nil)
	if err != nil {
		log.Fatalf("upsert subscription: %v", err)
	}
	fmt.Printf("subscription: %s free=%d discounted=%d premium=%d cycle ends %s\n",
		sub.RequesterID, sub.Free.Limit, sub.Discounted.Limit, sub.PremiumArticles.Limit, sub.CycleEnd.Format(time.RFC3339))

	token, err := api.NewIdentity(cfg.Auth.JWTSecret, &logger).Issue(*requester, 24*time.Hour, time.Now())
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Printf("bearer token (24h) for %s:\n%s\n", *requester, token)
	fmt.Println("Seeding complete.")
}
