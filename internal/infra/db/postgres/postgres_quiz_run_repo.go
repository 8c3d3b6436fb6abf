package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/domain/ports/repository"
	"content-entitlement/internal/infra/metrics"
)

var _ repository.QuizRunRepository = (*quizRunRepo)(nil)

type quizRunRepo struct {
	pool *pgxpool.Pool
}

func NewQuizRunRepo(pool *pgxpool.Pool) *quizRunRepo {
	return &quizRunRepo{pool: pool}
}

const quizRunColumns = `
run_id, quiz_slug, requester_id, answers, total_score, max_score, percentage,
band_label, advice, analysis, analysis_at, created_at`

func (r *quizRunRepo) Save(ctx context.Context, tx repository.Tx, run *model.QuizRun) error {
	answers, err := json.Marshal(run.Answers)
	if err != nil {
		return fmt.Errorf("%w: answers: %v", domain.ErrInvalidArgument, err)
	}
	var requester *string
	if run.RequesterID != "" {
		requester = &run.RequesterID
	}

	const q = `
INSERT INTO quiz_runs (
  run_id, quiz_slug, requester_id, answers, total_score, max_score, percentage,
  band_label, advice, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err = execSQL(ctx, r.pool, tx, q,
		run.RunID, run.QuizSlug, requester, answers, run.TotalScore, run.MaxScore, run.Percentage,
		run.BandLabel, run.Advice, run.CreatedAt,
	)
	if err != nil {
		return mapErr("quiz_runs", err)
	}
	metrics.IncQuizRun(run.QuizSlug, run.BandLabel)
	return nil
}

func (r *quizRunRepo) FindByID(ctx context.Context, tx repository.Tx, runID string) (*model.QuizRun, error) {
	q := `SELECT ` + quizRunColumns + ` FROM quiz_runs WHERE run_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, runID)
	if err != nil {
		return nil, err
	}
	run, err := scanQuizRun(row)
	if err != nil {
		return nil, mapErr("quiz_runs", err)
	}
	return run, nil
}

// AttachAnalysis writes only while analysis is still empty.
func (r *quizRunRepo) AttachAnalysis(ctx context.Context, tx repository.Tx, runID, analysis string, at time.Time) (bool, error) {
	const q = `UPDATE quiz_runs SET analysis=$2, analysis_at=$3 WHERE run_id=$1 AND analysis IS NULL;`
	tag, err := execSQL(ctx, r.pool, tx, q, runID, analysis, at)
	if err != nil {
		return false, mapErr("quiz_runs", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *quizRunRepo) List(ctx context.Context, tx repository.Tx, f model.QuizRunFilter) ([]*model.QuizRun, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.QuizSlug != "" {
		add("quiz_slug=$%d", f.QuizSlug)
	}
	if f.RequesterID != "" {
		add("requester_id=$%d", f.RequesterID)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}

	q := `SELECT ` + quizRunColumns + ` FROM quiz_runs`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(` ORDER BY created_at DESC, run_id LIMIT $%d OFFSET $%d;`, len(args)-1, len(args))

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapErr("quiz_runs", err)
	}
	defer rows.Close()

	var out []*model.QuizRun
	for rows.Next() {
		run, err := scanQuizRun(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *quizRunRepo) BandCounts(ctx context.Context, tx repository.Tx, quizSlug string) ([]model.BandCount, error) {
	q := `SELECT quiz_slug, band_label, COUNT(*) FROM quiz_runs`
	var args []interface{}
	if quizSlug != "" {
		q += ` WHERE quiz_slug=$1`
		args = append(args, quizSlug)
	}
	q += ` GROUP BY quiz_slug, band_label ORDER BY quiz_slug, band_label;`

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapErr("quiz_runs", err)
	}
	defer rows.Close()

	var out []model.BandCount
	for rows.Next() {
		var bc model.BandCount
		if err := rows.Scan(&bc.QuizSlug, &bc.Label, &bc.Count); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, bc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *quizRunRepo) ListPendingAnalysis(ctx context.Context, tx repository.Tx, createdBefore time.Time, limit int) ([]string, error) {
	const q = `
SELECT run_id FROM quiz_runs
 WHERE analysis IS NULL AND created_at < $1
 ORDER BY created_at
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, createdBefore, limit)
	if err != nil {
		return nil, mapErr("quiz_runs", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return ids, nil
}

func scanQuizRun(row pgx.Row) (*model.QuizRun, error) {
	var (
		run       model.QuizRun
		requester *string
		answers   []byte
	)
	if err := row.Scan(
		&run.RunID, &run.QuizSlug, &requester, &answers, &run.TotalScore, &run.MaxScore, &run.Percentage,
		&run.BandLabel, &run.Advice, &run.Analysis, &run.AnalysisAt, &run.CreatedAt,
	); err != nil {
		return nil, err
	}
	if requester != nil {
		run.RequesterID = *requester
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &run.Answers); err != nil {
			return nil, err
		}
	}
	return &run, nil
}
