//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfig(t *testing.T) {
	t.Run("should fill defaults and keep file values", func(t *testing.T) {
		p := writeConfig(t, `
database:
  url: postgres://localhost/app
redis:
  url: redis://localhost:6379
auth:
  jwt_secret: s3cret
http:
  port: 9090
  request_timeout: 3s
scheduler:
  expiry_interval: 10m
`)
		cfg, err := LoadConfig(p, true)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if cfg.HTTP.Port != 9090 || cfg.HTTP.RequestTimeout != 3*time.Second {
			t.Errorf("unexpected http config %+v", cfg.HTTP)
		}
		if cfg.Scheduler.ExpiryInterval != 10*time.Minute {
			t.Errorf("expected 10m expiry interval, got %v", cfg.Scheduler.ExpiryInterval)
		}
		if cfg.Pricing.SubscriberDiscountPercent != 50 || cfg.Payment.Provider != "noop" || cfg.Analysis.Provider != "none" {
			t.Errorf("unexpected defaults %+v %+v %+v", cfg.Pricing, cfg.Payment, cfg.Analysis)
		}
		if !cfg.Runtime.Dev {
			t.Error("expected dev flag to be carried")
		}
	})

	t.Run("should let the environment override secrets", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "from-env")
		t.Setenv("DATABASE_URL", "postgres://env/app")
		p := writeConfig(t, `
database:
  url: postgres://file/app
redis:
  url: redis://localhost:6379
`)
		cfg, err := LoadConfig(p, false)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if cfg.Auth.JWTSecret != "from-env" || cfg.Database.URL != "postgres://env/app" {
			t.Errorf("expected env overrides, got %q %q", cfg.Auth.JWTSecret, cfg.Database.URL)
		}
	})

	t.Run("should reject incomplete or unknown settings", func(t *testing.T) {
		cases := map[string]string{
			"missing database": "redis:\n  url: redis://x\nauth:\n  jwt_secret: s\n",
			"stripe without key": "database:\n  url: postgres://x\nredis:\n  url: redis://x\nauth:\n  jwt_secret: s\n" +
				"payment:\n  provider: stripe\n",
			"unknown analyst": "database:\n  url: postgres://x\nredis:\n  url: redis://x\nauth:\n  jwt_secret: s\n" +
				"analysis:\n  provider: llama\n",
		}
		for name, body := range cases {
			t.Setenv("DATABASE_URL", "")
			t.Setenv("STRIPE_SECRET_KEY", "")
			if _, err := LoadConfig(writeConfig(t, body), false); err == nil {
				t.Errorf("%s: expected an error", name)
			}
		}
	})
}
