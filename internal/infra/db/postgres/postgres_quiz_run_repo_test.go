//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/domain/ports/repository"
)

func newRun(id, quiz, requester, band string, pct int) *model.QuizRun {
	return &model.QuizRun{
		RunID:       id,
		QuizSlug:    quiz,
		RequesterID: requester,
		Answers:     model.Answers{"q1": float64(3), "q3": true, "q4": "tired"},
		TotalScore:  pct / 10,
		MaxScore:    10,
		Percentage:  pct,
		BandLabel:   band,
		Advice:      "rest more",
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestQuizRunRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewQuizRunRepo(testPool)
	ctx := context.Background()

	t.Run("should save and read back answers", func(t *testing.T) {
		cleanup(t)
		run := newRun("run-1", "burnout", "", "high", 80)
		if err := repo.Save(ctx, repository.NoTX, run); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repo.FindByID(ctx, repository.NoTX, "run-1")
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.RequesterID != "" || got.BandLabel != "high" || got.Percentage != 80 {
			t.Errorf("unexpected run: %+v", got)
		}
		if got.Answers["q1"] != float64(3) || got.Answers["q3"] != true || got.Answers["q4"] != "tired" {
			t.Errorf("unexpected answers: %v", got.Answers)
		}
		if got.Analysis != nil {
			t.Errorf("expected no analysis yet, got %q", *got.Analysis)
		}

		if _, err := repo.FindByID(ctx, repository.NoTX, "ghost"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("should attach analysis once without touching the score", func(t *testing.T) {
		cleanup(t)
		_ = repo.Save(ctx, repository.NoTX, newRun("run-2", "burnout", "req-1", "medium", 50))

		ok, err := repo.AttachAnalysis(ctx, repository.NoTX, "run-2", "first", time.Now())
		if err != nil || !ok {
			t.Fatalf("expected first attach to succeed, got ok=%v err=%v", ok, err)
		}
		ok, err = repo.AttachAnalysis(ctx, repository.NoTX, "run-2", "second", time.Now())
		if err != nil || ok {
			t.Errorf("expected second attach to be ignored, got ok=%v err=%v", ok, err)
		}

		got, _ := repo.FindByID(ctx, repository.NoTX, "run-2")
		if got.Analysis == nil || *got.Analysis != "first" || got.AnalysisAt == nil {
			t.Errorf("expected first analysis to stick, got %+v", got)
		}
		if got.Percentage != 50 || got.BandLabel != "medium" {
			t.Errorf("expected score fields unchanged, got %+v", got)
		}
	})

	t.Run("should list runs and count bands", func(t *testing.T) {
		cleanup(t)
		for _, r := range []*model.QuizRun{
			newRun("r1", "burnout", "req-1", "high", 90),
			newRun("r2", "burnout", "req-2", "high", 70),
			newRun("r3", "burnout", "req-2", "low", 10),
			newRun("r4", "warmup", "", "low", 0),
		} {
			if err := repo.Save(ctx, repository.NoTX, r); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
		}

		runs, err := repo.List(ctx, repository.NoTX, model.QuizRunFilter{QuizSlug: "burnout", RequesterID: "req-2", Limit: 10})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("expected 2 runs, got %d", len(runs))
		}

		counts, err := repo.BandCounts(ctx, repository.NoTX, "burnout")
		if err != nil {
			t.Fatalf("BandCounts failed: %v", err)
		}
		want := map[string]int{"high": 2, "low": 1}
		if len(counts) != len(want) {
			t.Fatalf("expected %d bands, got %v", len(want), counts)
		}
		for _, c := range counts {
			if want[c.Label] != c.Count {
				t.Errorf("band %s: expected %d, got %d", c.Label, want[c.Label], c.Count)
			}
		}

		all, _ := repo.BandCounts(ctx, repository.NoTX, "")
		if len(all) != 3 {
			t.Errorf("expected 3 quiz/band rows across quizzes, got %d", len(all))
		}

		_, _ = repo.AttachAnalysis(ctx, repository.NoTX, "r1", "done", time.Now())
		pending, err := repo.ListPendingAnalysis(ctx, repository.NoTX, time.Now().Add(time.Minute), 10)
		if err != nil {
			t.Fatalf("ListPendingAnalysis failed: %v", err)
		}
		if len(pending) != 3 {
			t.Errorf("expected 3 runs without analysis, got %v", pending)
		}
		pending, _ = repo.ListPendingAnalysis(ctx, repository.NoTX, time.Now().Add(-time.Hour), 10)
		if len(pending) != 0 {
			t.Errorf("expected nothing before the cutoff, got %v", pending)
		}
	})
}
