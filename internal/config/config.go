// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	IPRate         float64       `yaml:"ip_rate"`  // requests per second per client IP
	IPBurst        int           `yaml:"ip_burst"` // bucket size
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"` // apply migrations on startup
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	AdminAPIKey string `yaml:"admin_api_key"`
}

type PricingConfig struct {
	SubscriberDiscountPercent int `yaml:"subscriber_discount_percent"`
}

type CatalogConfig struct {
	Path     string        `yaml:"path"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type PaymentConfig struct {
	Provider        string `yaml:"provider"` // stripe | noop
	StripeSecretKey string `yaml:"stripe_secret_key"`
	Currency        string `yaml:"currency"`
}

type AnalysisConfig struct {
	Provider        string `yaml:"provider"` // openai | gemini | none
	OpenAIKey       string `yaml:"openai_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"` // any OpenAI-compatible gateway
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	Model           string `yaml:"model"`
	MaxPromptTokens int    `yaml:"max_prompt_tokens"`
	Workers         int    `yaml:"workers"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI calls
}

type LimitsConfig struct {
	PurchasesPerMinute int `yaml:"purchases_per_minute"`
}

type SchedulerConfig struct {
	ExpiryInterval time.Duration `yaml:"expiry_interval"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Payment   PaymentConfig   `yaml:"payment"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Limits    LimitsConfig    `yaml:"limits"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies environment overrides for
// secrets (a .env next to the binary is loaded first when present) and fills
// defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.Redis.URL, "REDIS_URL")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
	override(&cfg.Auth.AdminAPIKey, "ADMIN_API_KEY")
	override(&cfg.Payment.StripeSecretKey, "STRIPE_SECRET_KEY")
	override(&cfg.Analysis.OpenAIKey, "OPENAI_API_KEY")
	override(&cfg.Analysis.GeminiKey, "GEMINI_API_KEY")
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 10 * time.Second
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Second
	}
	if cfg.HTTP.IPRate <= 0 {
		cfg.HTTP.IPRate = 5
	}
	if cfg.HTTP.IPBurst <= 0 {
		cfg.HTTP.IPBurst = 30
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Pricing.SubscriberDiscountPercent <= 0 || cfg.Pricing.SubscriberDiscountPercent > 100 {
		cfg.Pricing.SubscriberDiscountPercent = 50
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "catalog.yaml"
	}
	if cfg.Catalog.CacheTTL <= 0 {
		cfg.Catalog.CacheTTL = 5 * time.Minute
	}
	if cfg.Payment.Provider == "" {
		cfg.Payment.Provider = "noop"
	}
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "usd"
	}
	if cfg.Analysis.Provider == "" {
		cfg.Analysis.Provider = "none"
	}
	if cfg.Analysis.Model == "" {
		switch cfg.Analysis.Provider {
		case "gemini":
			cfg.Analysis.Model = "gemini-2.0-flash"
		default:
			cfg.Analysis.Model = "gpt-4o-mini"
		}
	}
	if cfg.Analysis.MaxPromptTokens <= 0 {
		cfg.Analysis.MaxPromptTokens = 1500
	}
	if cfg.Analysis.Workers <= 0 {
		cfg.Analysis.Workers = 4
	}
	if cfg.Analysis.ConcurrentLimit <= 0 {
		cfg.Analysis.ConcurrentLimit = 4
	}
	if cfg.Limits.PurchasesPerMinute <= 0 {
		cfg.Limits.PurchasesPerMinute = 10
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = time.Hour
	}
}

// Minimal validation
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	switch c.Payment.Provider {
	case "noop":
	case "stripe":
		if c.Payment.StripeSecretKey == "" {
			return errors.New("payment.stripe_secret_key is required for the stripe provider")
		}
	default:
		return fmt.Errorf("unknown payment.provider %q", c.Payment.Provider)
	}
	switch c.Analysis.Provider {
	case "none", "openai", "gemini":
	default:
		return fmt.Errorf("unknown analysis.provider %q", c.Analysis.Provider)
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
