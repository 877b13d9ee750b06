package services

import (
	"context"
	"errors"
	"fmt"

	"GemChat/pkg/config"

	"go.uber.org/zap"
)

var (
	ErrProviderDisabled = errors.New("ai provider is disabled via config")
	ErrAPIKeyMissing    = errors.New("api key is not configured")
	ErrEmptyResponse    = errors.New("provider returned no text")
)

// TextProvider turns a prompt into text. Implementations do not retry.
type TextProvider interface {
	Name() string
	Model() string
	Configured() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// StreamingProvider can push partial output while generating.
type StreamingProvider interface {
	TextProvider
	GenerateStream(ctx context.Context, prompt string, onDelta func(string)) (string, error)
}

// StatusError is a non-2xx answer from an upstream HTTP API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// NewProvider builds the provider selected in cfg. A disabled or keyless
// provider is still returned; its calls fail with a descriptive error.
func NewProvider(cfg *config.Config, log *zap.Logger) (TextProvider, error) {
	model := cfg.AIModel()
	if !cfg.IsAIEnabled {
		log.Warn("ai provider disabled", zap.String("provider", cfg.AIProvider))
		return offlineProvider{name: cfg.AIProvider, model: model, err: ErrProviderDisabled}, nil
	}
	if !cfg.AIKeyConfigured() {
		log.Warn("ai provider has no api key", zap.String("provider", cfg.AIProvider))
		return offlineProvider{name: cfg.AIProvider, model: model, err: ErrAPIKeyMissing}, nil
	}

	switch cfg.AIProvider {
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, log)
	case "gemini":
		return NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, log), nil
	}
	return nil, fmt.Errorf("unknown ai provider %q", cfg.AIProvider)
}

// offlineProvider stands in when no upstream can be called.
type offlineProvider struct {
	name  string
	model string
	err   error
}

func (p offlineProvider) Name() string { return p.name }
func (p offlineProvider) Model() string { return p.model }
func (p offlineProvider) Configured() bool { return false }

func (p offlineProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("%s: %w", p.name, p.err)
}
