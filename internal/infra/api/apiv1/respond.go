package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"
	"github.com/rs/zerolog"

	"content-entitlement/internal/domain"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxBodyBytes    = 1 << 20
)

var (
	errRateLimited  = errors.New("too many requests")
	errUnauthorized = errors.New("authentication required")
)

type errorBody struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	AmountDue *int64 `json:"amountDue,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPaymentRequired), errors.Is(err, domain.ErrPaymentNotVerified):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoActiveSubscription):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidPromoCode),
		errors.Is(err, domain.ErrInvalidQuiz),
		errors.Is(err, domain.ErrInvalidAnswers):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrLocked):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto a status and a JSON body. Server-side failures are
// logged and their detail is kept out of the response.
func writeError(w http.ResponseWriter, log *zerolog.Logger, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var due *domain.PaymentRequiredError
	if errors.As(err, &due) {
		amount := due.Amount
		body.AmountDue = &amount
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("request failed")
		body.Error = http.StatusText(status)
		if errors.Is(err, context.DeadlineExceeded) {
			body.Error = "request timed out"
		}
	}
	writeJSON(w, status, body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: body: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

// queryString binds an optional string parameter; absent yields "".
func queryString(r *http.Request, name string) (string, error) {
	var v *string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidArgument, name)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw, err := queryString(r, name)
	if err != nil || raw == "" {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrInvalidArgument, name)
	}
	return &t, nil
}

func queryPage(r *http.Request) (limit, offset int, err error) {
	var l, o *int
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &l); err != nil {
		return 0, 0, fmt.Errorf("%w: limit", domain.ErrInvalidArgument)
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", q, &o); err != nil {
		return 0, 0, fmt.Errorf("%w: offset", domain.ErrInvalidArgument)
	}
	limit = defaultPageSize
	if l != nil {
		limit = *l
	}
	if limit <= 0 || limit > maxPageSize {
		return 0, 0, fmt.Errorf("%w: limit must be 1..%d", domain.ErrInvalidArgument, maxPageSize)
	}
	if o != nil {
		offset = *o
	}
	if offset < 0 {
		return 0, 0, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidArgument)
	}
	return limit, offset, nil
}
