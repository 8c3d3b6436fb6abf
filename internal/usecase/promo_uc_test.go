//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/ports/repository"
	"content-entitlement/internal/usecase"
)

func TestPromoUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("should validate case-insensitively", func(t *testing.T) {
		f := newFixture()
		f.addPromo("SPRING20", 20, 5)
		uc := usecase.NewPromoUseCase(f.promos, testLogger())

		p, err := uc.Validate(ctx, "  spring20 ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.DiscountPercentage != 20 {
			t.Errorf("expected 20%%, got %d", p.DiscountPercentage)
		}
	})

	t.Run("should reject exhausted, inactive, expired and unknown codes", func(t *testing.T) {
		f := newFixture()
		f.addPromo("USED", 10, 1)
		f.addPromo("OFF", 10, 5)
		f.addPromo("OLD", 10, 5)
		f.store.mu.Lock()
		used := f.store.promos["USED"]
		used.CurrentUses = 1
		f.store.promos["USED"] = used
		off := f.store.promos["OFF"]
		off.IsActive = false
		f.store.promos["OFF"] = off
		old := f.store.promos["OLD"]
		old.ValidUntil = time.Now().Add(-time.Minute)
		f.store.promos["OLD"] = old
		f.store.mu.Unlock()
		uc := usecase.NewPromoUseCase(f.promos, testLogger())

		for _, code := range []string{"USED", "OFF", "OLD", "NOPE", ""} {
			if _, err := uc.Validate(ctx, code); !errors.Is(err, domain.ErrInvalidPromoCode) {
				t.Errorf("%q: expected ErrInvalidPromoCode, got %v", code, err)
			}
		}
	})

	t.Run("should redeem up to max uses", func(t *testing.T) {
		f := newFixture()
		f.addPromo("ONCE", 50, 1)
		uc := usecase.NewPromoUseCase(f.promos, testLogger())

		ok, err := uc.Redeem(ctx, repository.NoTX, "once")
		if err != nil || !ok {
			t.Fatalf("first redeem: ok=%v err=%v", ok, err)
		}
		ok, err = uc.Redeem(ctx, repository.NoTX, "ONCE")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected second redeem to fail")
		}
		if got := f.promo("ONCE").CurrentUses; got != 1 {
			t.Errorf("expected currentUses=1, got %d", got)
		}
	})

	t.Run("should create normalized codes and refuse duplicates", func(t *testing.T) {
		f := newFixture()
		uc := usecase.NewPromoUseCase(f.promos, testLogger())
		until := time.Now().Add(48 * time.Hour)

		p, err := uc.Create(ctx, "launch", 25, until, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Code != "LAUNCH" || !p.IsActive {
			t.Errorf("unexpected promo %+v", p)
		}
		if _, err := uc.Create(ctx, "LAUNCH", 25, until, 10); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
		if _, err := uc.Create(ctx, "BAD", 0, until, 10); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}

		if err := uc.Deactivate(ctx, "launch"); err != nil {
			t.Fatalf("deactivate: %v", err)
		}
		if _, err := uc.Validate(ctx, "LAUNCH"); !errors.Is(err, domain.ErrInvalidPromoCode) {
			t.Errorf("expected deactivated code to be invalid, got %v", err)
		}
	})
}
