// File: internal/infra/adapters/ai/multi_adapter.go
package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"content-entitlement/internal/domain/ports/adapter"
)

var _ adapter.ResultAnalyst = (*MultiAnalyst)(nil)

// MultiAnalyst tries the default provider first and falls back to the other
// configured providers in order.
type MultiAnalyst struct {
	order []adapter.ResultAnalyst
	log   *zerolog.Logger
}

func NewMultiAnalyst(defaultProvider string, byProvider map[string]adapter.ResultAnalyst, logger *zerolog.Logger) *MultiAnalyst {
	l := logger.With().Str("component", "MultiAnalyst").Logger()
	m := &MultiAnalyst{log: &l}
	def := strings.ToLower(defaultProvider)
	if a := byProvider[def]; a != nil {
		m.order = append(m.order, a)
	}
	// fallbacks run in a fixed order
	for _, name := range []string{"openai", "gemini"} {
		if name == def {
			continue
		}
		if a := byProvider[name]; a != nil {
			m.order = append(m.order, a)
		}
	}
	return m
}

func (m *MultiAnalyst) Name() string {
	if len(m.order) == 0 {
		return "none"
	}
	return m.order[0].Name()
}

func (m *MultiAnalyst) Analyze(ctx context.Context, req adapter.AnalysisRequest) (*adapter.Analysis, error) {
	if len(m.order) == 0 {
		return nil, nil
	}
	var errs []error
	for _, a := range m.order {
		out, err := a.Analyze(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.log.Warn().Err(err).Str("provider", a.Name()).Msg("analysis provider failed")
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}
