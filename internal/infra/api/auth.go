package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"content-entitlement/internal/infra/logging"
	"content-entitlement/internal/infra/metrics"
)

var errInvalidToken = errors.New("invalid token")

// Identity turns a bearer JWT into a requester id. Tokens are issued
// elsewhere; the subject claim is the requester id.
type Identity struct {
	secret []byte
	log    *zerolog.Logger
}

func NewIdentity(secret string, logger *zerolog.Logger) *Identity {
	l := logger.With().Str("component", "Identity").Logger()
	return &Identity{secret: []byte(secret), log: &l}
}

// Issue mints an HS256 token for subject. Used by seeding and tests.
func (a *Identity) Issue(subject string, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Identity) parse(tok string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// Middleware leaves requests without a bearer token anonymous and rejects
// malformed or expired tokens with 401. With no secret configured every
// request is anonymous.
func (a *Identity) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := bearer(r)
			if !ok || len(a.secret) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			sub, err := a.parse(tok)
			if err != nil {
				l := logging.With(r.Context(), a.log)
				l.Debug().Err(err).Msg("rejected bearer token")
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := logging.WithRequesterID(r.Context(), sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly guards admin routes with a static bearer API key.
func AdminOnly(apiKey string, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				logger.Error().Msg("Admin API key is not configured")
				metrics.IncAdminRequest("unauthorized")
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			tok, ok := bearer(r)
			if !ok {
				metrics.IncAdminRequest("unauthorized")
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if subtle.ConstantTimeCompare([]byte(tok), []byte(apiKey)) != 1 {
				metrics.IncAdminRequest("unauthorized")
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			metrics.IncAdminRequest("authorized")
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(hdr[7:])
	return tok, tok != ""
}
