package services

import (
	"context"
	"strings"
	"sync"
)

// stubProvider records prompts and answers from a script.
type stubProvider struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
	chunks  []string
	noKey   bool
}

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) Model() string { return "stub-1" }
func (s *stubProvider) Configured() bool { return !s.noKey }

func (s *stubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.reply == nil {
		return "ok", nil
	}
	return s.reply(prompt)
}

func (s *stubProvider) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func (s *stubProvider) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

// streamingStub streams its chunks and can fail after them.
type streamingStub struct {
	stubProvider
	failAfter error
}

func (s *streamingStub) GenerateStream(ctx context.Context, prompt string, onDelta func(string)) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	var b strings.Builder
	for _, c := range s.chunks {
		b.WriteString(c)
		onDelta(c)
	}
	if s.failAfter != nil {
		return b.String(), s.failAfter
	}
	return b.String(), nil
}

type panicProvider struct{ stubProvider }

func (p *panicProvider) Generate(ctx context.Context, prompt string) (string, error) {
	panic("boom")
}
