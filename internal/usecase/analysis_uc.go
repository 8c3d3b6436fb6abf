package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/domain/ports/adapter"
	"content-entitlement/internal/domain/ports/repository"
	"content-entitlement/internal/infra/logging"
)

// AnalysisUseCase attaches an optional narrative to a stored quiz run.
type AnalysisUseCase interface {
	Enrich(ctx context.Context, runID string) error
}

var _ AnalysisUseCase = (*analysisUC)(nil)

type analysisUC struct {
	runs    repository.QuizRunRepository
	catalog adapter.Catalog
	analyst adapter.ResultAnalyst
	locker  adapter.Locker
	lockTTL time.Duration
	log     *zerolog.Logger
	now     func() time.Time
}

// NewAnalysisUseCase builds the enricher. locker may be nil on single-instance
// deployments.
func NewAnalysisUseCase(
	runs repository.QuizRunRepository,
	catalog adapter.Catalog,
	analyst adapter.ResultAnalyst,
	locker adapter.Locker,
	logger *zerolog.Logger,
) AnalysisUseCase {
	l := logger.With().Str("component", "AnalysisUseCase").Logger()
	return &analysisUC{
		runs:    runs,
		catalog: catalog,
		analyst: analyst,
		locker:  locker,
		lockTTL: 2 * time.Minute,
		log:     &l,
		now:     time.Now,
	}
}

func analysisLockKey(runID string) string { return "quiz_run:analysis:" + runID }

func (u *analysisUC) Enrich(ctx context.Context, runID string) error {
	log := u.log.With().Str("run_id", runID).Logger()
	defer logging.TraceDuration(&log, "AnalysisUC.Enrich")()

	if u.locker != nil {
		token, err := u.locker.TryLock(ctx, analysisLockKey(runID), u.lockTTL)
		if errors.Is(err, domain.ErrLocked) {
			log.Debug().Msg("analysis already in progress elsewhere")
			return nil
		}
		if err != nil {
			return err
		}
		defer func() {
			if err := u.locker.Unlock(context.Background(), analysisLockKey(runID), token); err != nil {
				log.Warn().Err(err).Msg("unlock failed")
			}
		}()
	}

	run, err := u.runs.FindByID(ctx, repository.NoTX, runID)
	if err != nil {
		return err
	}
	if run.Analysis != nil {
		return nil
	}
	quiz, err := u.catalog.Quiz(ctx, run.QuizSlug)
	if err != nil {
		return err
	}

	a, err := u.analyst.Analyze(ctx, buildAnalysisRequest(quiz, run))
	if err != nil {
		return fmt.Errorf("analyze run %s: %w", runID, err)
	}
	if a == nil || a.Text == "" {
		return nil
	}
	if _, err := u.runs.AttachAnalysis(ctx, repository.NoTX, runID, a.Text, u.now().UTC()); err != nil {
		return err
	}
	log.Info().
		Str("provider", a.Provider).
		Str("model", a.Model).
		Int("tokens", a.Usage.TotalTokens).
		Msg("analysis attached")
	return nil
}

func buildAnalysisRequest(quiz *model.Quiz, run *model.QuizRun) adapter.AnalysisRequest {
	req := adapter.AnalysisRequest{
		QuizTitle:  quiz.Title,
		TotalScore: run.TotalScore,
		MaxScore:   run.MaxScore,
		Percentage: run.Percentage,
		BandLabel:  run.BandLabel,
		Advice:     run.Advice,
	}
	for _, q := range quiz.Questions {
		v, ok := run.Answers[q.ID]
		if !ok || v == nil {
			continue
		}
		req.Answers = append(req.Answers, adapter.AnsweredQuestion{Question: q.Text, Answer: fmt.Sprint(v)})
	}
	return req
}
