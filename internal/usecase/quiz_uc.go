package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/domain/ports/adapter"
	"content-entitlement/internal/domain/ports/repository"
	"content-entitlement/internal/infra/logging"
	"content-entitlement/internal/infra/worker"
)

// TaskSubmitter queues background work; *worker.Pool satisfies it.
type TaskSubmitter interface {
	Submit(task worker.Task) error
}

// QuizUseCase scores submissions and keeps the resulting runs.
type QuizUseCase interface {
	// Submit scores answers for the quiz and stores the run. Paid quizzes
	// require a ledger record for the requester.
	Submit(ctx context.Context, requesterID, slug string, answers model.Answers) (*model.QuizRun, error)
	Get(ctx context.Context, runID string) (*model.QuizRun, error)
	List(ctx context.Context, f model.QuizRunFilter) ([]*model.QuizRun, error)
	BandDistribution(ctx context.Context, quizSlug string) ([]model.BandCount, error)
}

var _ QuizUseCase = (*quizUC)(nil)

type quizUC struct {
	catalog  adapter.Catalog
	ledger   LedgerUseCase
	runs     repository.QuizRunRepository
	analysis AnalysisUseCase
	pool     TaskSubmitter
	log      *zerolog.Logger
	now      func() time.Time
}

// NewQuizUseCase wires scoring. analysis and pool may be nil, which disables
// the post-submit enrichment.
func NewQuizUseCase(
	catalog adapter.Catalog,
	ledger LedgerUseCase,
	runs repository.QuizRunRepository,
	analysis AnalysisUseCase,
	pool TaskSubmitter,
	logger *zerolog.Logger,
) QuizUseCase {
	l := logger.With().Str("component", "QuizUseCase").Logger()
	return &quizUC{
		catalog:  catalog,
		ledger:   ledger,
		runs:     runs,
		analysis: analysis,
		pool:     pool,
		log:      &l,
		now:      time.Now,
	}
}

func (u *quizUC) Submit(ctx context.Context, requesterID, slug string, answers model.Answers) (*model.QuizRun, error) {
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "QuizUC.Submit")()

	quiz, err := u.catalog.Quiz(ctx, slug)
	if err != nil {
		return nil, err
	}
	if quiz.Charged() {
		if requesterID == "" {
			return nil, &domain.PaymentRequiredError{Amount: quiz.BasePrice}
		}
		ok, err := u.ledger.HasPurchased(ctx, repository.NoTX, requesterID, model.ItemKindQuiz, quiz.Slug)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: quiz %q not purchased", domain.ErrPaymentRequired, quiz.Slug)
		}
	}

	res, err := Score(quiz, answers)
	if err != nil {
		return nil, err
	}

	run := &model.QuizRun{
		RunID:       ulid.Make().String(),
		QuizSlug:    quiz.Slug,
		RequesterID: requesterID,
		Answers:     answers,
		TotalScore:  res.TotalScore,
		MaxScore:    res.MaxScore,
		Percentage:  res.Percentage,
		BandLabel:   res.Band.Label,
		Advice:      res.Band.Advice,
		CreatedAt:   u.now().UTC(),
	}
	if err := u.runs.Save(ctx, repository.NoTX, run); err != nil {
		return nil, err
	}
	log.Info().
		Str("run_id", run.RunID).
		Str("quiz", run.QuizSlug).
		Int("percentage", run.Percentage).
		Str("band", run.BandLabel).
		Msg("quiz run stored")

	if u.analysis != nil && u.pool != nil {
		runID := run.RunID
		if err := u.pool.Submit(func(ctx context.Context) error {
			return u.analysis.Enrich(ctx, runID)
		}); err != nil {
			log.Warn().Err(err).Str("run_id", runID).Msg("analysis not queued")
		}
	}
	return run, nil
}

func (u *quizUC) Get(ctx context.Context, runID string) (*model.QuizRun, error) {
	if runID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.runs.FindByID(ctx, repository.NoTX, runID)
}

func (u *quizUC) List(ctx context.Context, f model.QuizRunFilter) ([]*model.QuizRun, error) {
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)
	return u.runs.List(ctx, repository.NoTX, f)
}

func (u *quizUC) BandDistribution(ctx context.Context, quizSlug string) ([]model.BandCount, error) {
	return u.runs.BandCounts(ctx, repository.NoTX, quizSlug)
}
