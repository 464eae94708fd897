package handler

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/crmsync/backend/internal/infrastructure/crm"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const oauthStateCookie = "crm_oauth_state"

// OAuthHandler drives the CRM authorization code flow
type OAuthHandler struct {
	BaseHandler
	client       *crm.Client
	secureCookie bool
	logger       *zap.Logger
}

// NewOAuthHandler creates a new OAuthHandler
func NewOAuthHandler(client *crm.Client, secureCookie bool, logger *zap.Logger) *OAuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuthHandler{
		client:       client,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// Authorize redirects the operator to the CRM consent screen.
// GET /oauth/authorize
func (h *OAuthHandler) Authorize(c *gin.Context) {
	state, err := randomState()
	if err != nil {
		h.InternalError(c, "failed to generate state")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.secureCookie, true)
	c.Redirect(http.StatusFound, h.client.AuthorizeURL(state))
}

// Callback completes the code exchange and stores the token pair.
// GET /oauth/callback
func (h *OAuthHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		h.BadRequest(c, "authorization denied: "+errParam)
		return
	}

	code := c.Query("code")
	if code == "" {
		h.BadRequest(c, "missing authorization code")
		return
	}

	expected, err := c.Cookie(oauthStateCookie)
	if err != nil || expected == "" || c.Query("state") != expected {
		h.Unauthorized(c, "state mismatch")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.secureCookie, true)

	if err := h.client.ExchangeCode(c.Request.Context(), code); err != nil {
		h.logger.Error("oauth code exchange failed", zap.Error(err))
		h.HandleError(c, err)
		return
	}

	h.logger.Info("crm authorization completed")
	h.Success(c, gin.H{"authorized": true})
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
