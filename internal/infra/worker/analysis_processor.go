package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"content-entitlement/internal/domain/ports/repository"
	"content-entitlement/internal/infra/metrics"
)

// Enricher attaches analysis to one stored quiz run.
type Enricher interface {
	Enrich(ctx context.Context, runID string) error
}

// AnalysisProcessor queues analysis tasks on a Pool with a per-task timeout and
// periodically re-queues runs whose analysis never landed.
type AnalysisProcessor struct {
	runs     repository.QuizRunRepository
	enricher Enricher
	pool     *Pool
	timeout  time.Duration
	interval time.Duration
	grace    time.Duration
	batch    int
	log      *zerolog.Logger
	now      func() time.Time
}

func NewAnalysisProcessor(
	runs repository.QuizRunRepository,
	enricher Enricher,
	pool *Pool,
	log *zerolog.Logger,
) *AnalysisProcessor {
	l := log.With().Str("component", "AnalysisProcessor").Logger()
	return &AnalysisProcessor{
		runs:     runs,
		enricher: enricher,
		pool:     pool,
		timeout:  45 * time.Second,
		interval: time.Minute,
		grace:    2 * time.Minute,
		batch:    50,
		log:      &l,
		now:      time.Now,
	}
}

// Submit wraps task with the job timeout and status metrics. It never blocks.
func (p *AnalysisProcessor) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	err := p.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if err := task(ctx); err != nil {
			metrics.IncAnalysisJob("failed")
			return err
		}
		metrics.IncAnalysisJob("completed")
		return nil
	})
	if err != nil {
		metrics.IncAnalysisJob("dropped")
		return err
	}
	metrics.IncAnalysisJob("queued")
	return nil
}

// Start runs the sweep loop until ctx is done.
// This should be run in a goroutine.
func (p *AnalysisProcessor) Start(ctx context.Context) {
	p.log.Info().Dur("interval", p.interval).Msg("analysis sweeper started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("analysis sweeper stopped")
			return
		case <-ticker.C:
			if _, err := p.Sweep(ctx); err != nil {
				p.log.Error().Err(err).Msg("analysis sweep failed")
			}
		}
	}
}

// Sweep queues runs older than the grace period that still lack analysis and
// returns how many were queued. It stops early once the pool is saturated.
func (p *AnalysisProcessor) Sweep(ctx context.Context) (int, error) {
	ids, err := p.runs.ListPendingAnalysis(ctx, repository.NoTX, p.now().Add(-p.grace), p.batch)
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, id := range ids {
		runID := id
		if err := p.Submit(func(ctx context.Context) error {
			return p.enricher.Enrich(ctx, runID)
		}); err != nil {
			p.log.Debug().Err(err).Int("queued", queued).Msg("sweep stopped early")
			break
		}
		queued++
	}
	if queued > 0 {
		p.log.Info().Int("queued", queued).Msg("re-queued pending analyses")
	}
	return queued, nil
}
