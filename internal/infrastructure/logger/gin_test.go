package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func requestLogEntry(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	for _, entry := range recorded.All() {
		if entry.Message == "HTTP Request" {
			return entry
		}
	}
	t.Fatal("no HTTP Request entry was logged")
	return observer.LoggedEntry{}
}

func TestGinMiddleware_LevelPerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"success logs at info", http.StatusOK, zapcore.InfoLevel},
		{"client error logs at warn", http.StatusUnprocessableEntity, zapcore.WarnLevel},
		{"server error logs at error", http.StatusBadGateway, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.InfoLevel)

			router := gin.New()
			router.Use(GinMiddleware(zap.New(core)))
			router.POST("/webhooks/ecommerce", func(c *gin.Context) {
				c.JSON(tt.status, gin.H{})
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/webhooks/ecommerce", nil)
			router.ServeHTTP(w, req)

			entry := requestLogEntry(t, recorded)
			assert.Equal(t, tt.level, entry.Level)
		})
	}
}

func TestGinMiddleware_RequestFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "req-42")
		c.Next()
	})
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/admin/queue", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"items": []string{}})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin/queue?status=pending&limit=10", nil)
	req.Header.Set("User-Agent", "crmsync-admin/1.0")
	router.ServeHTTP(w, req)

	entry := requestLogEntry(t, recorded)
	fields := make(map[string]zapcore.Field)
	for _, f := range entry.Context {
		fields[f.Key] = f
	}

	assert.Equal(t, "req-42", fields["request_id"].String)
	assert.Equal(t, "GET", fields["method"].String)
	assert.Equal(t, "/admin/queue", fields["path"].String)
	assert.Contains(t, fields["query"].String, "status=pending")
	for _, key := range []string{"status", "latency", "client_ip", "user_agent", "body_size"} {
		assert.Contains(t, fields, key)
	}
}

func TestGinMiddleware_OmitsEmptyQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/status", nil)
	router.ServeHTTP(w, req)

	entry := requestLogEntry(t, recorded)
	for _, f := range entry.Context {
		assert.NotEqual(t, "query", f.Key)
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) {
		panic("mapping table corrupted")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/boom", nil)

	assert.NotPanics(t, func() {
		router.ServeHTTP(w, req)
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	logs := recorded.All()
	require.NotEmpty(t, logs)
	assert.Equal(t, "Panic recovered", logs[0].Message)
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("returns the request-scoped logger", func(t *testing.T) {
		core, _ := observer.New(zapcore.InfoLevel)

		var got *zap.Logger
		router := gin.New()
		router.Use(GinMiddleware(zap.New(core)))
		router.GET("/test", func(c *gin.Context) {
			got = GetGinLogger(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)

		assert.NotNil(t, got)
	})

	t.Run("falls back to a nop logger without the middleware", func(t *testing.T) {
		var got *zap.Logger
		router := gin.New()
		router.GET("/test", func(c *gin.Context) {
			got = GetGinLogger(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)

		require.NotNil(t, got)
		assert.NotPanics(t, func() {
			got.Info("still usable")
		})
	})
}
