package model

import (
	"fmt"
	"strings"
	"time"

	"content-entitlement/internal/domain"
)

type QuestionType string

const (
	QuestionTypeScale QuestionType = "scale"
	QuestionTypeYesNo QuestionType = "yes_no"
	QuestionTypeText  QuestionType = "text"
)

type Question struct {
	ID       string       `yaml:"id" json:"id"`
	Text     string       `yaml:"text" json:"text"`
	Type     QuestionType `yaml:"type" json:"type"`
	Min      int          `yaml:"min" json:"min,omitempty"`
	Max      int          `yaml:"max" json:"max,omitempty"`
	Optional bool         `yaml:"optional" json:"optional,omitempty"`
}

// MaxContribution is the largest score the question can add to a run.
func (q Question) MaxContribution() int {
	switch q.Type {
	case QuestionTypeScale:
		return q.Max
	case QuestionTypeYesNo:
		return 1
	default:
		return 0
	}
}

// Band maps an inclusive percentage range to a label and advice text.
type Band struct {
	Min    int    `yaml:"min" json:"min"`
	Max    int    `yaml:"max" json:"max"`
	Label  string `yaml:"label" json:"label"`
	Advice string `yaml:"advice" json:"advice"`
}

type Quiz struct {
	ItemMeta  `yaml:",inline"`
	Questions []Question `yaml:"questions" json:"questions"`
	Bands     []Band     `yaml:"bands" json:"bands"`
}

func (q *Quiz) Kind() ItemKind { return ItemKindQuiz }
func (q *Quiz) Meta() ItemMeta { return q.ItemMeta }

// Question returns the question with the given id.
func (q *Quiz) Question(id string) (Question, bool) {
	for _, qq := range q.Questions {
		if qq.ID == id {
			return qq, true
		}
	}
	return Question{}, false
}

// Validate checks the definition is scorable.
func (q *Quiz) Validate() error {
	if q == nil || strings.TrimSpace(q.Slug) == "" {
		return fmt.Errorf("%w: missing slug", domain.ErrInvalidQuiz)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: %s has no questions", domain.ErrInvalidQuiz, q.Slug)
	}
	if len(q.Bands) == 0 {
		return fmt.Errorf("%w: %s has no bands", domain.ErrInvalidQuiz, q.Slug)
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for _, qq := range q.Questions {
		if qq.ID == "" {
			return fmt.Errorf("%w: %s has a question without id", domain.ErrInvalidQuiz, q.Slug)
		}
		if _, dup := seen[qq.ID]; dup {
			return fmt.Errorf("%w: duplicate question %q", domain.ErrInvalidQuiz, qq.ID)
		}
		seen[qq.ID] = struct{}{}
		switch qq.Type {
		case QuestionTypeScale:
			if qq.Min > qq.Max || qq.Min < 0 {
				return fmt.Errorf("%w: question %q has range [%d,%d]", domain.ErrInvalidQuiz, qq.ID, qq.Min, qq.Max)
			}
		case QuestionTypeYesNo, QuestionTypeText:
		default:
			return fmt.Errorf("%w: question %q has unknown type %q", domain.ErrInvalidQuiz, qq.ID, qq.Type)
		}
	}
	// Bands are not range-checked: one that can never match is skipped when scoring.
	return nil
}

// Answers maps question id to the submitted value (number, bool or string).
type Answers map[string]any

// ScoreResult is the outcome of scoring one set of answers.
type ScoreResult struct {
	TotalScore int  `json:"totalScore"`
	MaxScore   int  `json:"maxScore"`
	Percentage int  `json:"percentage"`
	Band       Band `json:"band"`
}

// QuizRun is a stored scoring result. Score fields never change after insert;
// Analysis is filled in later by the enrichment worker.
type QuizRun struct {
	RunID       string     `json:"runId"`
	QuizSlug    string     `json:"quizSlug"`
	RequesterID string     `json:"requesterId,omitempty"`
	Answers     Answers    `json:"answers"`
	TotalScore  int        `json:"totalScore"`
	MaxScore    int        `json:"maxScore"`
	Percentage  int        `json:"percentage"`
	BandLabel   string     `json:"band"`
	Advice      string     `json:"advice"`
	Analysis    *string    `json:"analysis,omitempty"`
	AnalysisAt  *time.Time `json:"analysisAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// BandCount is one row of the band distribution report.
type BandCount struct {
	QuizSlug string `json:"quizSlug"`
	Label    string `json:"band"`
	Count    int    `json:"count"`
}

type QuizRunFilter struct {
	QuizSlug    string
	RequesterID string
	From, To    *time.Time
	Limit       int
	Offset      int
}
