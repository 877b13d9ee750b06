package controllers

import (
	"net/http"
	"time"

	"GemChat/middleware"

	"github.com/gin-gonic/gin"
)

// Logout revokes the caller's token until it expires. Anonymous callers get
// the same answer with nothing to revoke.
func Logout(auth *middleware.Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		jti := c.GetString(middleware.ContextJTIKey)
		if jti != "" {
			exp, _ := c.Get(middleware.ContextExpKey)
			until, _ := exp.(time.Time)
			auth.Revocations().Revoke(jti, until)
		}
		c.JSON(http.StatusOK, gin.H{"msg": "logged out"})
	}
}
