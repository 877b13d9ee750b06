package chat

import (
	"time"

	"GemChat/controllers"
	"GemChat/middleware"
	"GemChat/pkg/services"
	"GemChat/pkg/store"

	"github.com/gin-gonic/gin"
)

// Register registers chat routes (protected)
func Register(g *gin.RouterGroup, s store.Store, conv *services.Conversations, limiter *middleware.Limiter, timeout time.Duration) {
	g.GET("/chats", controllers.ListChats(s))
	g.POST("/chats", controllers.CreateChat(s))
	g.DELETE("/chats/:chat_id", controllers.DeleteChat(s))
	g.GET("/chats/:chat_id/messages", controllers.ListMessages(s))
	g.POST("/chats/:chat_id/messages", controllers.AddMessage(s))
	// Basic rate limiting on the endpoint that calls the provider
	g.POST("/chats/:chat_id/reply", limiter.RateLimit(), controllers.Reply(conv, limiter, timeout))
}
