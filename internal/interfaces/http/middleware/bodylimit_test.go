package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyLimitRouter(maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(BodyLimit(maxBytes))
	router.POST("/webhook/deal", func(c *gin.Context) {
		buf := make([]byte, 4096)
		if _, err := c.Request.Body.Read(buf); err != nil && err != io.EOF {
			c.String(http.StatusRequestEntityTooLarge, "body too large")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	t.Run("small payload passes", func(t *testing.T) {
		router := bodyLimitRouter(1024)

		req := httptest.NewRequest("POST", "/webhook/deal", strings.NewReader(`{"deal_id":77}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("declared oversize payload is rejected before the handler", func(t *testing.T) {
		router := bodyLimitRouter(100)

		req := httptest.NewRequest("POST", "/webhook/deal", strings.NewReader(strings.Repeat("x", 200)))
		req.ContentLength = 200
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "REQUEST_TOO_LARGE")
	})

	t.Run("chunked oversize payload fails at read time", func(t *testing.T) {
		router := bodyLimitRouter(50)

		req := httptest.NewRequest("POST", "/webhook/deal", strings.NewReader(strings.Repeat("x", 100)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("bodyless request passes", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(BodyLimit(10))
		router.GET("/status", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
