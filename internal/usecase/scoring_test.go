//go:build !integration

package usecase_test

import (
	"encoding/json"
	"errors"
	"testing"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/usecase"
)

func TestScore(t *testing.T) {
	quiz := burnoutQuiz(900) // max = 4 + 4 + 1 = 9

	t.Run("should sum scale and yes/no answers and round the percentage", func(t *testing.T) {
		res, err := usecase.Score(quiz, model.Answers{"q1": 3, "q2": 2, "q3": true, "q4": "tired"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 6 / 9 = 66.67 -> 67
		if res.TotalScore != 6 || res.MaxScore != 9 || res.Percentage != 67 {
			t.Errorf("got %+v", res)
		}
		if res.Band.Label != "high" {
			t.Errorf("expected band high, got %q", res.Band.Label)
		}
	})

	t.Run("should accept JSON-decoded numbers and yes/no strings", func(t *testing.T) {
		var answers model.Answers
		if err := json.Unmarshal([]byte(`{"q1": 1, "q2": 2, "q3": "no"}`), &answers); err != nil {
			t.Fatal(err)
		}
		res, err := usecase.Score(quiz, answers)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 3 / 9 = 33.3 -> 33
		if res.TotalScore != 3 || res.Percentage != 33 || res.Band.Label != "low" {
			t.Errorf("got %+v", res)
		}
	})

	t.Run("should pick the first band containing the percentage", func(t *testing.T) {
		q := &model.Quiz{
			ItemMeta:  model.ItemMeta{Slug: "bands"},
			Questions: []model.Question{{ID: "a", Type: model.QuestionTypeScale, Min: 0, Max: 100}},
			Bands: []model.Band{
				{Min: 0, Max: 30, Label: "Low"},
				{Min: 31, Max: 70, Label: "Moderate"},
				{Min: 71, Max: 100, Label: "High"},
			},
		}
		res, err := usecase.Score(q, model.Answers{"a": 65})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Percentage != 65 || res.Band.Label != "Moderate" {
			t.Errorf("got %+v", res)
		}
	})

	t.Run("should fall back to the last band when none matches", func(t *testing.T) {
		q := &model.Quiz{
			ItemMeta:  model.ItemMeta{Slug: "gaps"},
			Questions: []model.Question{{ID: "a", Type: model.QuestionTypeScale, Min: 0, Max: 10}},
			Bands:     []model.Band{{Min: 0, Max: 10, Label: "bottom"}, {Min: 90, Max: 100, Label: "top"}},
		}
		res, err := usecase.Score(q, model.Answers{"a": 5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Band.Label != "top" {
			t.Errorf("expected fallback band top, got %q", res.Band.Label)
		}
	})

	t.Run("should score past a band whose range is inverted", func(t *testing.T) {
		q := percentQuiz([]model.Band{
			{Min: 0, Max: 50, Label: "Low"},
			{Min: 80, Max: 60, Label: "Broken"},
			{Min: 51, Max: 100, Label: "High"},
		})
		res, err := usecase.Score(q, model.Answers{"a": 10})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Percentage != 10 || res.Band.Label != "Low" {
			t.Errorf("got %+v", res)
		}
		res, err = usecase.Score(q, model.Answers{"a": 70})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Band.Label != "High" {
			t.Errorf("expected band High, got %q", res.Band.Label)
		}
	})

	t.Run("should report zero percent when nothing can score", func(t *testing.T) {
		q := &model.Quiz{
			ItemMeta:  model.ItemMeta{Slug: "notes"},
			Questions: []model.Question{{ID: "a", Type: model.QuestionTypeText}},
			Bands:     []model.Band{{Min: 0, Max: 100, Label: "any"}},
		}
		res, err := usecase.Score(q, model.Answers{"a": "hello"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.MaxScore != 0 || res.Percentage != 0 {
			t.Errorf("got %+v", res)
		}
	})

	errCases := []struct {
		name    string
		answers model.Answers
	}{
		{"unknown question", model.Answers{"q1": 1, "q2": 1, "q3": true, "zz": 1}},
		{"missing required answer", model.Answers{"q1": 1, "q3": true}},
		{"scale out of range", model.Answers{"q1": 5, "q2": 1, "q3": true}},
		{"fractional scale value", model.Answers{"q1": 1.5, "q2": 1, "q3": true}},
		{"unparseable yes/no", model.Answers{"q1": 1, "q2": 1, "q3": "maybe"}},
		{"non-text for text question", model.Answers{"q1": 1, "q2": 1, "q3": true, "q4": 7}},
	}
	for _, c := range errCases {
		t.Run("should reject "+c.name, func(t *testing.T) {
			_, err := usecase.Score(quiz, c.answers)
			if !errors.Is(err, domain.ErrInvalidAnswers) {
				t.Errorf("expected ErrInvalidAnswers, got %v", err)
			}
		})
	}

	t.Run("should reject a quiz without bands", func(t *testing.T) {
		q := &model.Quiz{ItemMeta: model.ItemMeta{Slug: "broken"}, Questions: quiz.Questions}
		if _, err := usecase.Score(q, model.Answers{}); !errors.Is(err, domain.ErrInvalidQuiz) {
			t.Errorf("expected ErrInvalidQuiz, got %v", err)
		}
	})
}

// percentQuiz has a single 0..100 scale question, so the answer is the percentage.
func percentQuiz(bands []model.Band) *model.Quiz {
	return &model.Quiz{
		ItemMeta:  model.ItemMeta{Slug: "percent"},
		Questions: []model.Question{{ID: "a", Type: model.QuestionTypeScale, Min: 0, Max: 100}},
		Bands:     bands,
	}
}

func TestScore_BandAssignmentIsTotal(t *testing.T) {
	configs := map[string][]model.Band{
		"gapped": {
			{Min: 0, Max: 20, Label: "low"},
			{Min: 40, Max: 60, Label: "mid"},
			{Min: 80, Max: 90, Label: "high"},
		},
		"overlapping": {
			{Min: 0, Max: 60, Label: "first"},
			{Min: 40, Max: 100, Label: "second"},
			{Min: 50, Max: 55, Label: "shadowed"},
		},
		"inverted": {
			{Min: 70, Max: 30, Label: "never"},
			{Min: 0, Max: 49, Label: "lower"},
			{Min: 100, Max: 50, Label: "broken-last"},
		},
		"single band": {
			{Min: 10, Max: 20, Label: "only"},
		},
	}

	for name, bands := range configs {
		t.Run("should assign a band to every percentage for "+name+" bands", func(t *testing.T) {
			q := percentQuiz(bands)
			for pct := 0; pct <= 100; pct++ {
				res, err := usecase.Score(q, model.Answers{"a": pct})
				if err != nil {
					t.Fatalf("pct %d: unexpected error: %v", pct, err)
				}
				if res.Percentage != pct {
					t.Fatalf("pct %d: scored as %d", pct, res.Percentage)
				}
				want := bands[len(bands)-1]
				for _, b := range bands {
					if b.Min <= pct && pct <= b.Max {
						want = b
						break
					}
				}
				if res.Band != want {
					t.Errorf("pct %d: expected band %q, got %q", pct, want.Label, res.Band.Label)
				}
			}
		})
	}
}
