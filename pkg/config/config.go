package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	Port    string `env:"PORT" envDefault:"5000"`
	LogMode string `env:"LOG_MODE" envDefault:"development"`

	AllowedOrigins        []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173,http://127.0.0.1:5173"`
	RequestTimeoutSeconds int      `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"60"`
	StaticDir             string   `env:"STATIC_DIR"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"gemchat.db"`

	// AIProvider is "gemini" or "openai"
	AIProvider  string `env:"AI_PROVIDER" envDefault:"gemini"`
	IsAIEnabled bool   `env:"IS_AI_ENABLED" envDefault:"1"`

	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	ImageSource            string `env:"IMAGE_SOURCE" envDefault:"picsum"`
	CaptionCacheTTLSeconds int    `env:"CAPTION_CACHE_TTL_SECONDS" envDefault:"600"`
	CaptionCacheMaxItems   int    `env:"CAPTION_CACHE_MAX_ITEMS" envDefault:"500"`

	AuthRequired bool   `env:"AUTH_REQUIRED" envDefault:"0"`
	JWTSecret    string `env:"JWT_SECRET_KEY"`

	RateLimitWindowSeconds int `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"10"`
	RateLimitCapacity      int `env:"RATE_LIMIT_CAPACITY" envDefault:"5"`
	UserConcurrencyLimit   int `env:"USER_CONCURRENCY_LIMIT" envDefault:"2"`
	DuplicateWindowSeconds int `env:"DUPLICATE_WINDOW_SECONDS" envDefault:"45"`
}

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) CaptionCacheTTL() time.Duration {
	return time.Duration(c.CaptionCacheTTLSeconds) * time.Second
}

// AIKeyConfigured reports whether the selected provider has credentials.
func (c *Config) AIKeyConfigured() bool {
	if c.AIProvider == "openai" {
		return strings.TrimSpace(c.OpenAIAPIKey) != ""
	}
	return strings.TrimSpace(c.GeminiAPIKey) != ""
}

// AIModel is the model name of the selected provider.
func (c *Config) AIModel() string {
	if c.AIProvider == "openai" {
		return c.OpenAIModel
	}
	return c.GeminiModel
}

// Load reads .env (outside production) and then the process environment.
func Load() (*Config, error) {
	// do not load .env file in production
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !slices.Contains([]string{"development", "staging", "production"}, c.AppEnv) {
		return fmt.Errorf("APP_ENV must be 'development', 'staging' or 'production', got %q", c.AppEnv)
	}
	if !slices.Contains([]string{"gemini", "openai"}, c.AIProvider) {
		return fmt.Errorf("AI_PROVIDER must be 'gemini' or 'openai', got %q", c.AIProvider)
	}
	if c.AuthRequired && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY must be set when AUTH_REQUIRED is on")
	}
	if c.RateLimitWindowSeconds <= 0 || c.RateLimitCapacity <= 0 || c.UserConcurrencyLimit <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}

// LogSummary logs the values that matter when debugging a deployment.
func (c *Config) LogSummary(log *zap.Logger) {
	log.Info("config loaded",
		zap.String("app_env", c.AppEnv),
		zap.String("port", c.Port),
		zap.String("store", c.StoreDriver),
		zap.String("ai_provider", c.AIProvider),
		zap.Bool("ai_enabled", c.IsAIEnabled),
		zap.Bool("api_key_present", c.AIKeyConfigured()),
		zap.String("model", c.AIModel()),
		zap.Bool("auth_required", c.AuthRequired),
	)
	log.Debug("rate limit config",
		zap.Int("window_seconds", c.RateLimitWindowSeconds),
		zap.Int("capacity", c.RateLimitCapacity),
		zap.Int("user_concurrency", c.UserConcurrencyLimit),
		zap.Int("duplicate_window_seconds", c.DuplicateWindowSeconds),
		zap.Int("caption_cache_ttl_seconds", c.CaptionCacheTTLSeconds),
		zap.Int("caption_cache_max_items", c.CaptionCacheMaxItems),
	)
}
