package usecase

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
)

// Score computes the total, maximum, percentage and band for a set of answers.
// It is deterministic and touches no state.
//
// Scale answers contribute their raw value, yes/no answers 1 or 0, text answers
// nothing. The percentage is round(100*total/max), 0 when max is 0. The band is
// the first whose inclusive range contains the percentage, else the last band.
func Score(quiz *model.Quiz, answers model.Answers) (*model.ScoreResult, error) {
	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	for id := range answers {
		if _, ok := quiz.Question(id); !ok {
			return nil, fmt.Errorf("%w: unknown question %q", domain.ErrInvalidAnswers, id)
		}
	}

	var total, max int
	for _, q := range quiz.Questions {
		max += q.MaxContribution()

		raw, ok := answers[q.ID]
		if !ok || raw == nil {
			if !q.Optional && q.Type != model.QuestionTypeText {
				return nil, fmt.Errorf("%w: question %q is unanswered", domain.ErrInvalidAnswers, q.ID)
			}
			continue
		}

		switch q.Type {
		case model.QuestionTypeScale:
			v, err := scaleValue(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: question %q: %v", domain.ErrInvalidAnswers, q.ID, err)
			}
			if v < q.Min || v > q.Max {
				return nil, fmt.Errorf("%w: question %q: %d outside [%d,%d]", domain.ErrInvalidAnswers, q.ID, v, q.Min, q.Max)
			}
			total += v
		case model.QuestionTypeYesNo:
			yes, err := yesNoValue(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: question %q: %v", domain.ErrInvalidAnswers, q.ID, err)
			}
			if yes {
				total++
			}
		case model.QuestionTypeText:
			if _, ok := raw.(string); !ok {
				return nil, fmt.Errorf("%w: question %q expects text", domain.ErrInvalidAnswers, q.ID)
			}
		}
	}

	pct := 0
	if max > 0 {
		pct = int(math.Round(100 * float64(total) / float64(max)))
	}
	return &model.ScoreResult{
		TotalScore: total,
		MaxScore:   max,
		Percentage: pct,
		Band:       pickBand(quiz.Bands, pct),
	}, nil
}

func pickBand(bands []model.Band, pct int) model.Band {
	for _, b := range bands {
		if b.Min <= pct && pct <= b.Max {
			return b
		}
	}
	return bands[len(bands)-1]
}

func scaleValue(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", v.String())
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected %T", raw)
	}
}

func yesNoValue(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "true", "y":
			return true, nil
		case "no", "false", "n":
			return false, nil
		}
		return false, fmt.Errorf("%q is not yes or no", v)
	default:
		return false, fmt.Errorf("unexpected %T", raw)
	}
}
