package ai

import (
	"time"

	"GemChat/controllers"
	"GemChat/middleware"
	"GemChat/pkg/services"

	"github.com/gin-gonic/gin"
)

func Register(r *gin.RouterGroup, g *services.Gateway, limiter *middleware.Limiter, timeout time.Duration) {
	ctrl := controllers.NewAIController(g, timeout)

	aiGroup := r.Group("/ai")
	{
		aiGroup.GET("/health", ctrl.Health)
		aiGroup.POST("/text", limiter.RateLimit(), ctrl.GenerateText)
		aiGroup.POST("/image", limiter.RateLimit(), ctrl.GenerateImage)
		aiGroup.POST("/test", limiter.RateLimit(), ctrl.Test)
	}
}
