package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LimitBody caps the number of bytes a handler may read from the request body.
func LimitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
