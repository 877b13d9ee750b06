package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiProvider calls the Gemini generateContent REST API.
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewGeminiProvider(apiKey, model, baseURL string, log *zap.Logger) *GeminiProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 90 * time.Second},
		log:     log.Named("gemini"),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// text concatenates the parts of the first candidate.
func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func (g *GeminiProvider) Name() string { return "gemini" }
func (g *GeminiProvider) Model() string { return g.model }
func (g *GeminiProvider) Configured() bool { return strings.TrimSpace(g.apiKey) != "" }

func (g *GeminiProvider) newRequest(ctx context.Context, method, prompt string) (*http.Request, error) {
	if !g.Configured() {
		return nil, fmt.Errorf("gemini: %w", ErrAPIKeyMissing)
	}
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 2048,
			TopK:            40,
			TopP:            0.95,
		},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:%s", g.baseURL, g.model, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)
	return req, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	req, err := g.newRequest(ctx, "generateContent", prompt)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	g.log.Debug("generateContent", zap.String("model", g.model), zap.Int("prompt_len", len(prompt)))

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBytes))}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("decode error: %w", err)
	}
	text := parsed.text()
	if strings.TrimSpace(text) == "" {
		if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, parsed.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}
	return text, nil
}

// GenerateStream uses the SSE flavour of streamGenerateContent and calls
// onDelta for every text chunk.
func (g *GeminiProvider) GenerateStream(ctx context.Context, prompt string, onDelta func(string)) (string, error) {
	req, err := g.newRequest(ctx, "streamGenerateContent?alt=sse", prompt)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/event-stream")
	g.log.Debug("streamGenerateContent", zap.String("model", g.model), zap.Int("prompt_len", len(prompt)))

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var chunk geminiResponse
		if err := json.Unmarshal([]byte(strings.TrimSpace(line[5:])), &chunk); err != nil {
			continue
		}
		if txt := chunk.text(); txt != "" {
			full.WriteString(txt)
			if onDelta != nil {
				onDelta(txt)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("stream read error: %w", err)
	}
	if strings.TrimSpace(full.String()) == "" {
		return "", ErrEmptyResponse
	}
	return full.String(), nil
}
