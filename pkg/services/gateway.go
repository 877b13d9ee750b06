package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"GemChat/models"
	"GemChat/pkg/cache"

	"go.uber.org/zap"
)

// MaxHistoryTurns bounds the history sent upstream with a text prompt.
const MaxHistoryTurns = 10

// Stable caller facing failures of text generation.
var (
	ErrQuotaExceeded    = errors.New("API quota exceeded. Please try again later.")
	ErrInvalidAPIKey    = errors.New("Invalid API key. Please check your configuration.")
	ErrInvalidRequest   = errors.New("Invalid request. Please check your input.")
	ErrGenerationFailed = errors.New("Failed to generate response. Please try again.")
)

// GenerationError pairs one of the stable failures with the upstream cause.
// Error() only exposes the stable message.
type GenerationError struct {
	Kind  error
	Cause error
}

func (e *GenerationError) Error() string { return e.Kind.Error() }
func (e *GenerationError) Unwrap() []error { return []error{e.Kind, e.Cause} }

// HTTPStatus maps the failure kind onto a response code.
func (e *GenerationError) HTTPStatus() int {
	switch e.Kind {
	case ErrQuotaExceeded:
		return http.StatusTooManyRequests
	case ErrInvalidRequest:
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

// Classify maps an upstream error onto one of the stable failures.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var se *StatusError
	if errors.As(err, &se) {
		body := strings.ToLower(se.Body)
		switch {
		case se.Code == http.StatusTooManyRequests:
			return ErrQuotaExceeded
		case se.Code == http.StatusUnauthorized, se.Code == http.StatusForbidden:
			return ErrInvalidAPIKey
		case se.Code == http.StatusBadRequest && mentionsBadKey(body):
			return ErrInvalidAPIKey
		case se.Code == http.StatusBadRequest:
			return ErrInvalidRequest
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "quota"), strings.Contains(msg, "resource_exhausted"):
		return ErrQuotaExceeded
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"), mentionsBadKey(msg):
		return ErrInvalidAPIKey
	case strings.Contains(msg, "400"):
		return ErrInvalidRequest
	}
	return ErrGenerationFailed
}

func mentionsBadKey(s string) bool {
	return strings.Contains(s, "api_key_invalid") || strings.Contains(s, "api key not valid")
}

// BuildPrompt renders the most recent history turns as "role: content" lines
// followed by the new user prompt and an open assistant turn.
func BuildPrompt(prompt string, history []models.Turn) string {
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}
	var b strings.Builder
	for _, t := range history {
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	b.WriteString("user: ")
	b.WriteString(prompt)
	b.WriteString("\nassistant:")
	return b.String()
}

// Gateway turns prompts into generated content.
type Gateway struct {
	provider    TextProvider
	imageSource ImageSource
	captions    *cache.Cache[string]
	captionTTL  time.Duration
	log         *zap.Logger
	now         func() time.Time
}

type GatewayOption func(*Gateway)

// WithImageSource selects where image references point to.
func WithImageSource(src ImageSource) GatewayOption {
	return func(g *Gateway) { g.imageSource = src }
}

// WithCaptionCache keeps successful captions for ttl.
func WithCaptionCache(c *cache.Cache[string], ttl time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.captions = c
		g.captionTTL = ttl
	}
}

func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

func NewGateway(p TextProvider, log *zap.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		provider:    p,
		imageSource: SourcePicsum,
		log:         log.Named("gateway"),
		now:         time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gateway) Provider() TextProvider { return g.provider }

// GenerateText sends the prompt with bounded history upstream. Failures come
// back as *GenerationError and are never retried here.
func (g *Gateway) GenerateText(ctx context.Context, prompt string, history []models.Turn) (string, error) {
	full := BuildPrompt(prompt, history)
	text, err := g.provider.Generate(ctx, full)
	if err != nil {
		return "", g.fail("generate text", err)
	}
	return text, nil
}

// StreamText behaves like GenerateText but forwards partial output to onDelta
// when the provider can stream. The returned text is whatever was produced,
// even when err is set.
func (g *Gateway) StreamText(ctx context.Context, prompt string, history []models.Turn, onDelta func(string)) (string, error) {
	sp, ok := g.provider.(StreamingProvider)
	if !ok {
		text, err := g.GenerateText(ctx, prompt, history)
		if err == nil && onDelta != nil {
			onDelta(text)
		}
		return text, err
	}

	var partial strings.Builder
	text, err := sp.GenerateStream(ctx, BuildPrompt(prompt, history), func(s string) {
		partial.WriteString(s)
		if onDelta != nil {
			onDelta(s)
		}
	})
	if err != nil {
		return partial.String(), g.fail("stream text", err)
	}
	return text, nil
}

func (g *Gateway) fail(op string, err error) error {
	kind := Classify(err)
	g.log.Warn(op+" failed",
		zap.String("provider", g.provider.Name()),
		zap.String("kind", kind.Error()),
		zap.Error(err),
	)
	return &GenerationError{Kind: kind, Cause: err}
}

type HealthServices struct {
	Text            bool `json:"text"`
	ImageGeneration bool `json:"image_generation"`
}

type HealthReport struct {
	Status           string         `json:"status"`
	Timestamp        time.Time      `json:"timestamp"`
	APIKeyConfigured bool           `json:"api_key_configured"`
	Provider         string         `json:"provider"`
	Model            string         `json:"model"`
	Services         HealthServices `json:"services"`
}

// Health never calls upstream. Image generation is always available
// because it has a local fallback.
func (g *Gateway) Health() HealthReport {
	configured := g.provider.Configured()
	return HealthReport{
		Status:           "healthy",
		Timestamp:        g.now().UTC(),
		APIKeyConfigured: configured,
		Provider:         g.provider.Name(),
		Model:            g.provider.Model(),
		Services:         HealthServices{Text: configured, ImageGeneration: true},
	}
}

type TestResult struct {
	Success   bool      `json:"success"`
	Response  string    `json:"response,omitempty"`
	Model     string    `json:"model,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Test sends a tiny prompt upstream and reports the raw outcome.
func (g *Gateway) Test(ctx context.Context, message string) TestResult {
	res := TestResult{Timestamp: g.now().UTC()}
	if !g.provider.Configured() {
		res.Error = fmt.Sprintf("%s API key not configured", g.provider.Name())
		return res
	}
	out, err := g.provider.Generate(ctx, "Please respond briefly to: "+message)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.Response = out
	res.Model = g.provider.Model()
	return res
}
