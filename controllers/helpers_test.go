package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"GemChat/middleware"
	"GemChat/pkg/services"
	"GemChat/pkg/store"
	tokenstore "GemChat/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeProvider answers every prompt with reply.
type fakeProvider struct {
	mu      sync.Mutex
	reply   func(prompt string) (string, error)
	prompts []string
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }
func (f *fakeProvider) Configured() bool { return true }

func (f *fakeProvider) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.reply == nil {
		return "fake answer", nil
	}
	return f.reply(prompt)
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type testEnv struct {
	store    *store.Memory
	provider *fakeProvider
	gateway  *services.Gateway
	conv     *services.Conversations
	auth     *middleware.Auth
	limiter  *middleware.Limiter
	router   *gin.Engine
}

func newTestEnv(t *testing.T, opts ...func(*testEnv)) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    store.NewMemory(),
		provider: &fakeProvider{},
		auth:     middleware.NewAuth("controller-secret", false, tokenstore.New()),
		limiter:  middleware.NewLimiter(time.Minute, 100, 2, 45*time.Second),
	}
	for _, opt := range opts {
		opt(env)
	}
	env.gateway = services.NewGateway(env.provider, zap.NewNop())
	env.conv = services.NewConversations(env.store, env.gateway, zap.NewNop())

	r := gin.New()
	g := r.Group("/", env.auth.Middleware())
	g.GET("/chats", ListChats(env.store))
	g.POST("/chats", CreateChat(env.store))
	g.DELETE("/chats/:chat_id", DeleteChat(env.store))
	g.GET("/chats/:chat_id/messages", ListMessages(env.store))
	g.POST("/chats/:chat_id/messages", AddMessage(env.store))
	g.POST("/chats/:chat_id/reply", Reply(env.conv, env.limiter, 5*time.Second))
	g.POST("/logout", Logout(env.auth))

	ai := NewAIController(env.gateway, 5*time.Second)
	g.POST("/ai/text", ai.GenerateText)
	g.POST("/ai/image", ai.GenerateImage)
	g.GET("/ai/health", ai.Health)
	g.POST("/ai/test", ai.Test)

	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, code int) {
	t.Helper()
	require.Equal(t, code, w.Code, w.Body.String())
}

