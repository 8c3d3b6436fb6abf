package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog"

	"content-entitlement/internal/domain/ports/adapter"
	"content-entitlement/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ResultAnalyst = (*OpenAIAnalyst)(nil)

type chatCompleter func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)

// OpenAIAnalyst narrates quiz results through the Chat Completions API. A
// custom base URL points it at any OpenAI-compatible gateway.
type OpenAIAnalyst struct {
	complete chatCompleter
	model    string
	maxOut   int64
	prompts  *PromptBuilder
	log      *zerolog.Logger
}

func NewOpenAIAnalyst(apiKey, baseURL, model string, prompts *PromptBuilder, logger *zerolog.Logger) (*OpenAIAnalyst, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(30 * time.Second),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	client := openai.NewClient(opts...)
	complete := func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
		return client.Chat.Completions.New(ctx, params)
	}
	return newOpenAIAnalyst(complete, model, prompts, logger), nil
}

func newOpenAIAnalyst(complete chatCompleter, model string, prompts *PromptBuilder, logger *zerolog.Logger) *OpenAIAnalyst {
	if model == "" {
		model = "gpt-4o-mini"
	}
	l := logger.With().Str("component", "OpenAIAnalyst").Logger()
	return &OpenAIAnalyst{complete: complete, model: model, maxOut: 300, prompts: prompts, log: &l}
}

func (o *OpenAIAnalyst) Name() string { return "openai" }

func (o *OpenAIAnalyst) Analyze(ctx context.Context, req adapter.AnalysisRequest) (*adapter.Analysis, error) {
	prompt, trimmed := o.prompts.Build(req)
	if trimmed {
		metrics.PromptTrimmed(o.Name())
	}

	start := time.Now()
	resp, err := o.complete(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(o.maxOut),
	})
	latency := int(time.Since(start).Milliseconds())
	if err != nil {
		metrics.ObserveAnalysisUsage(o.Name(), o.model, 0, 0, 0, latency, false)
		return nil, err
	}

	usage := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	metrics.ObserveAnalysisUsage(o.Name(), o.model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, latency, true)

	for _, c := range resp.Choices {
		if text := strings.TrimSpace(c.Message.Content); text != "" {
			return &adapter.Analysis{Text: text, Provider: o.Name(), Model: o.model, Usage: usage}, nil
		}
	}
	return nil, errors.New("openai: no choice content")
}
