package routes

import (
	"net/http"
	"time"

	"GemChat/middleware"
	"GemChat/pkg/services"
	"GemChat/pkg/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	aiRoutes "GemChat/routes/ai"
	authRoutes "GemChat/routes/auth"
	chatRoutes "GemChat/routes/chat"
	staticRoutes "GemChat/routes/static"
	websocketRoutes "GemChat/routes/websocket"
)

// Deps carries everything the handlers close over.
type Deps struct {
	Store         store.Store
	Gateway       *services.Gateway
	Conversations *services.Conversations
	Auth          *middleware.Auth
	Limiter       *middleware.Limiter
	Log           *zap.Logger
	Timeout       time.Duration
	StaticDir     string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "chat backend running"})
	})

	staticRoutes.Register(r, d.StaticDir)
	websocketRoutes.Register(r, d.Auth, d.Conversations, d.Limiter, d.Log, d.Timeout)

	protected := r.Group("/")
	protected.Use(d.Auth.Middleware(), middleware.RequireJSON())
	authRoutes.RegisterProtected(protected, d.Auth)
	chatRoutes.Register(protected, d.Store, d.Conversations, d.Limiter, d.Timeout)
	aiRoutes.Register(protected, d.Gateway, d.Limiter, d.Timeout)
}
