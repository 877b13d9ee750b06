package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"GemChat/middleware"
	"GemChat/pkg/cache"
	"GemChat/pkg/config"
	"GemChat/pkg/logger"
	"GemChat/pkg/services"
	"GemChat/pkg/store"
	tokenstore "GemChat/pkg/token"
	"GemChat/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck
	cfg.LogSummary(zl)

	st, err := store.Open(cfg.StoreDriver, cfg.DatabaseDSN, zl)
	if err != nil {
		zl.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}

	provider, err := services.NewProvider(cfg, zl)
	if err != nil {
		zl.Fatal("failed to init ai provider", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	captions := cache.New[string](cfg.CaptionCacheMaxItems)
	go captions.RunJanitor(ctx, time.Minute)

	gateway := services.NewGateway(provider, zl,
		services.WithImageSource(services.ParseImageSource(cfg.ImageSource)),
		services.WithCaptionCache(captions, cfg.CaptionCacheTTL()),
	)
	conversations := services.NewConversations(st, gateway, zl)

	auth := middleware.NewAuth(cfg.JWTSecret, cfg.AuthRequired, tokenstore.New())
	limiter := middleware.NewLimiter(
		time.Duration(cfg.RateLimitWindowSeconds)*time.Second,
		cfg.RateLimitCapacity,
		cfg.UserConcurrencyLimit,
		time.Duration(cfg.DuplicateWindowSeconds)*time.Second,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(zl))

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		Store:         st,
		Gateway:       gateway,
		Conversations: conversations,
		Auth:          auth,
		Limiter:       limiter,
		Log:           zl,
		Timeout:       cfg.RequestTimeout(),
		StaticDir:     cfg.StaticDir,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		zl.Info("shutting down http server")
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zl.Error("http server shutdown", zap.Error(err))
		}
		close(idleConnsClosed)
	}()

	zl.Info("starting http server", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		zl.Fatal("http server", zap.Error(err))
	}
	<-idleConnsClosed
	zl.Info("http server stopped")
}
