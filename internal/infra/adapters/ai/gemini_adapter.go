// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"content-entitlement/internal/domain/ports/adapter"
	"content-entitlement/internal/infra/metrics"
)

var _ adapter.ResultAnalyst = (*GeminiAnalyst)(nil)

type contentGenerator func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

type GeminiAnalyst struct {
	generate contentGenerator
	model    string
	maxOut   int
	prompts  *PromptBuilder
	log      *zerolog.Logger
}

// NewGeminiAnalyst creates a Gemini analyst using the official SDK.
func NewGeminiAnalyst(ctx context.Context, apiKey, baseURL, model string, prompts *PromptBuilder, logger *zerolog.Logger) (*GeminiAnalyst, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return newGeminiAnalyst(c.Models.GenerateContent, model, prompts, logger), nil
}

func newGeminiAnalyst(generate contentGenerator, model string, prompts *PromptBuilder, logger *zerolog.Logger) *GeminiAnalyst {
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.0-flash"
	}
	l := logger.With().Str("component", "GeminiAnalyst").Logger()
	return &GeminiAnalyst{generate: generate, model: model, maxOut: 300, prompts: prompts, log: &l}
}

func (g *GeminiAnalyst) Name() string { return "gemini" }

func (g *GeminiAnalyst) Analyze(ctx context.Context, req adapter.AnalysisRequest) (*adapter.Analysis, error) {
	prompt, trimmed := g.prompts.Build(req)
	if trimmed {
		metrics.PromptTrimmed(g.Name())
	}

	start := time.Now()
	resp, err := g.generate(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		MaxOutputTokens:   int32(g.maxOut),
	})
	latency := int(time.Since(start).Milliseconds())
	if err != nil {
		metrics.ObserveAnalysisUsage(g.Name(), g.model, 0, 0, 0, latency, false)
		return nil, err
	}

	// Usage (if present)
	u := adapter.Usage{}
	if resp != nil && resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	metrics.ObserveAnalysisUsage(g.Name(), g.model, u.PromptTokens, u.CompletionTokens, u.TotalTokens, latency, true)

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		text = strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	}
	if text == "" {
		return nil, errors.New("gemini: empty candidate")
	}
	return &adapter.Analysis{Text: text, Provider: g.Name(), Model: g.model, Usage: u}, nil
}
