package ai

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"content-entitlement/internal/domain/ports/adapter"
)

const systemPrompt = `You are a supportive coach. Given a self-assessment result, write a short
(max 120 words) plain-text reflection for the person who took it. Do not change or
restate the numeric score as a different value, do not diagnose, and keep the tone kind.`

// TokenCounter returns the token length of s.
type TokenCounter func(s string) int

// NewTokenCounter uses the cl100k_base encoding when it can be loaded and a
// four-characters-per-token estimate otherwise.
func NewTokenCounter() TokenCounter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return EstimateTokens
	}
	return func(s string) int { return len(enc.Encode(s, nil, nil)) }
}

func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// PromptBuilder renders an AnalysisRequest into a user prompt that fits within
// maxTokens. Answers are dropped from the end first; the score summary is
// always kept.
type PromptBuilder struct {
	count     TokenCounter
	maxTokens int
}

func NewPromptBuilder(count TokenCounter, maxTokens int) *PromptBuilder {
	if count == nil {
		count = EstimateTokens
	}
	return &PromptBuilder{count: count, maxTokens: maxTokens}
}

// Build returns the user prompt and whether answers were trimmed to fit.
func (b *PromptBuilder) Build(req adapter.AnalysisRequest) (string, bool) {
	var head strings.Builder
	fmt.Fprintf(&head, "Assessment: %s\n", req.QuizTitle)
	fmt.Fprintf(&head, "Score: %d of %d (%d%%)\n", req.TotalScore, req.MaxScore, req.Percentage)
	fmt.Fprintf(&head, "Result band: %s\n", req.BandLabel)
	if req.Advice != "" {
		fmt.Fprintf(&head, "Standard advice: %s\n", req.Advice)
	}

	lines := make([]string, 0, len(req.Answers))
	for _, a := range req.Answers {
		lines = append(lines, fmt.Sprintf("- %s: %s", a.Question, a.Answer))
	}

	render := func(n int) string {
		if n == 0 {
			return head.String()
		}
		return head.String() + "Answers:\n" + strings.Join(lines[:n], "\n") + "\n"
	}

	n := len(lines)
	prompt := render(n)
	if b.maxTokens <= 0 {
		return prompt, false
	}
	budget := b.maxTokens - b.count(systemPrompt)
	for n > 0 && b.count(prompt) > budget {
		n--
		prompt = render(n)
	}
	return prompt, n < len(lines)
}
