package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"content-entitlement/internal/config"
	"content-entitlement/internal/infra/api/apiv1"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	HTTP        config.HTTPConfig
	JWTSecret   string
	AdminAPIKey string
	// Checks run on /health keyed by dependency name.
	Checks map[string]HealthCheck
}

// NewRouter assembles the HTTP surface: shared middlewares, health and
// metrics endpoints, public routes behind identity and admin routes behind
// the API key.
func NewRouter(opts Options, v1 *apiv1.Server, limiter *IPLimiter, logger *zerolog.Logger) http.Handler {
	l := logger.With().Str("component", "http").Logger()
	identity := NewIdentity(opts.JWTSecret, &l)

	r := chi.NewRouter()
	r.Use(TraceID(), Recover(&l), RequestLog(&l))
	if limiter != nil {
		r.Use(limiter.Middleware())
	}
	r.Use(Timeout(opts.HTTP.RequestTimeout))

	r.Get("/health", healthHandler(opts.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware())
		apiv1.RegisterPublic(r, v1)
	})
	r.Group(func(r chi.Router) {
		r.Use(AdminOnly(opts.AdminAPIKey, &l))
		apiv1.RegisterAdmin(r, v1)
	})

	origins := opts.HTTP.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", requestIDHeader}),
		handlers.ExposedHeaders([]string{"Content-Length", requestIDHeader}),
	)
	return Chain(r, handlers.ProxyHeaders, cors)
}

// NewHTTPServer wraps h with the configured timeouts.
func NewHTTPServer(addr string, h http.Handler, cfg config.HTTPConfig) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		out := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				out[name] = err.Error()
				continue
			}
			out[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": status == http.StatusOK, "checks": out})
	}
}
