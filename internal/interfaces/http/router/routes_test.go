package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crmsync/backend/internal/infrastructure/auth"
	"github.com/crmsync/backend/internal/infrastructure/config"
	"github.com/crmsync/backend/internal/interfaces/http/handler"
)

func newTestEngine() *httptest.Server {
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-with-enough-length",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "crmsync-backend",
	})

	engine := SetupEngine(Handlers{
		System: handler.NewSystemHandler(),
	}, RouteConfig{
		JWTService:       jwtService,
		WebhookRateLimit: 200,
	})

	return httptest.NewServer(engine)
}

func TestSetupEngine_SystemRoutes(t *testing.T) {
	srv := newTestEngine()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/system/ping")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSetupEngine_AdminRequiresToken(t *testing.T) {
	srv := newTestEngine()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/admin/sync/records")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSetupEngine_UnknownRoute(t *testing.T) {
	srv := newTestEngine()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/nope")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
