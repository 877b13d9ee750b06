package services

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// OpenAIProvider talks to any OpenAI compatible endpoint through langchaingo.
type OpenAIProvider struct {
	llm   llms.Model
	model string
	log   *zap.Logger
}

func NewOpenAIProvider(token, baseURL, model string, log *zap.Logger) (*OpenAIProvider, error) {
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}
	return newOpenAIProvider(llm, model, log), nil
}

func newOpenAIProvider(llm llms.Model, model string, log *zap.Logger) *OpenAIProvider {
	return &OpenAIProvider{llm: llm, model: model, log: log.Named("openai")}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) Configured() bool { return p.llm != nil }

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.log.Debug("generate", zap.String("model", p.model), zap.Int("prompt_len", len(prompt)))
	out, err := llms.GenerateFromSinglePrompt(ctx, p.llm, prompt)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func (p *OpenAIProvider) GenerateStream(ctx context.Context, prompt string, onDelta func(string)) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, p.llm, prompt,
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if onDelta != nil && len(chunk) > 0 {
				onDelta(string(chunk))
			}
			return nil
		}),
	)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
