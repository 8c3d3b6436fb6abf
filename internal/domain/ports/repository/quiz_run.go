package repository

import (
	"context"
	"time"

	"content-entitlement/internal/domain/model"
)

type QuizRunRepository interface {
	Save(ctx context.Context, tx Tx, run *model.QuizRun) error
	FindByID(ctx context.Context, tx Tx, runID string) (*model.QuizRun, error)
	// AttachAnalysis sets the analysis text once; it never touches score fields.
	AttachAnalysis(ctx context.Context, tx Tx, runID, analysis string, at time.Time) (bool, error)
	List(ctx context.Context, tx Tx, f model.QuizRunFilter) ([]*model.QuizRun, error)
	BandCounts(ctx context.Context, tx Tx, quizSlug string) ([]model.BandCount, error)
	// ListPendingAnalysis returns ids of runs created before the cutoff that
	// still have no analysis, oldest first.
	ListPendingAnalysis(ctx context.Context, tx Tx, createdBefore time.Time, limit int) ([]string, error)
}
