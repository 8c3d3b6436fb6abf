package ai

import (
	"context"

	"content-entitlement/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.ResultAnalyst = (*limitedAnalyst)(nil)

type limitedAnalyst struct {
	inner adapter.ResultAnalyst
	sem   chan struct{}
}

// NewLimitedAnalyst caps concurrent calls to inner. Waiting callers give up
// when their context ends.
func NewLimitedAnalyst(inner adapter.ResultAnalyst, maxConcurrent int) adapter.ResultAnalyst {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAnalyst{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAnalyst) Name() string { return l.inner.Name() }

func (l *limitedAnalyst) Analyze(ctx context.Context, req adapter.AnalysisRequest) (*adapter.Analysis, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Analyze(ctx, req)
}
