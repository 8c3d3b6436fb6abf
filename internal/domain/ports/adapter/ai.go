package adapter

import "context"

// Usage for a single analysis call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type AnsweredQuestion struct {
	Question string
	Answer   string
}

// AnalysisRequest describes a scored quiz run to narrate.
type AnalysisRequest struct {
	QuizTitle  string
	TotalScore int
	MaxScore   int
	Percentage int
	BandLabel  string
	Advice     string
	Answers    []AnsweredQuestion
}

type Analysis struct {
	Text     string
	Provider string
	Model    string
	Usage    Usage
}

// ResultAnalyst produces an optional narrative for a quiz run. It never
// influences the score.
type ResultAnalyst interface {
	Name() string
	Analyze(ctx context.Context, req AnalysisRequest) (*Analysis, error)
}
