package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodyLimit caps request body size. Webhook deliveries and form posts are
// small, so anything above the configured ceiling is rejected outright with
// 413 rather than buffered.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			rejectTooLarge(c)
			return
		}

		// Chunked requests have no Content-Length, so the reader itself
		// enforces the ceiling.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func rejectTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "REQUEST_TOO_LARGE",
			"message": "Request body exceeds maximum allowed size",
		},
	})
}
