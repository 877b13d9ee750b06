package middleware

import (
	"bytes"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/valyala/fastjson"
)

// RequireJSON rejects bodies that are not well formed JSON before a handler
// tries to bind them. An empty body is accepted; handlers decide whether
// they need one.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ct := c.GetHeader("Content-Type"); ct != "" {
			mt, _, err := mime.ParseMediaType(ct)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"msg": "malformed Content-Type header"})
				return
			}
			if mt != "application/json" {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{"msg": "Content-Type header must be application/json"})
				return
			}
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"msg": "can not read request body"})
			return
		}
		if len(bytes.TrimSpace(body)) > 0 {
			if err := fastjson.ValidateBytes(body); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"msg": "malformed JSON"})
				return
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}
