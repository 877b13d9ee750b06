package auth

import (
	"GemChat/controllers"
	"GemChat/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterProtected registers protected auth routes (logout). Login lives
// with the identity provider.
func RegisterProtected(g *gin.RouterGroup, a *middleware.Auth) {
	g.POST("/logout", controllers.Logout(a))
}
