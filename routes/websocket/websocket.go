package websocket

import (
	"time"

	"GemChat/controllers"
	"GemChat/middleware"
	"GemChat/pkg/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Register(r *gin.Engine, a *middleware.Auth, conv *services.Conversations, limiter *middleware.Limiter, log *zap.Logger, timeout time.Duration) {
	r.GET("/ws/chat", limiter.RateLimit(), controllers.ChatWS(a, conv, limiter, log, timeout))
}
