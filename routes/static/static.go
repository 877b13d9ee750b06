package static

import (
	"github.com/gin-gonic/gin"
)

// Register serves a prebuilt web client from dir at /app when dir is set.
func Register(r *gin.Engine, dir string) {
	if dir == "" {
		return
	}
	r.Static("/app", dir)
}
