package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crmsync/backend/internal/domain/shared"
)

// tokenResponse is the OAuth token endpoint reply
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// AuthorizeURL builds the URL the operator visits to grant access
func (c *Client) AuthorizeURL(state string) string {
	query := url.Values{}
	query.Set("client_id", c.config.ClientID)
	query.Set("response_type", "code")
	if c.config.RedirectURL != "" {
		query.Set("redirect_uri", c.config.RedirectURL)
	}
	if state != "" {
		query.Set("state", state)
	}
	return strings.TrimRight(c.config.BaseURL, "/") + "/oauth/authorize/?" + query.Encode()
}

// ExchangeCode trades an authorization code for the first token pair
// and stores it
func (c *Client) ExchangeCode(ctx context.Context, code string) error {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	form.Set("code", code)
	if c.config.RedirectURL != "" {
		form.Set("redirect_uri", c.config.RedirectURL)
	}
	return c.requestAndStoreToken(ctx, form)
}

// Refresh trades the stored refresh token for a new pair. On success
// both credentials are replaced atomically; on failure the stored pair
// is left untouched.
func (c *Client) Refresh(ctx context.Context) error {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading credentials: %s", shared.ErrStoreUnavailable, err)
	}
	if token == nil || token.RefreshToken == "" {
		return ErrNotAuthorized
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	form.Set("refresh_token", token.RefreshToken)
	return c.requestAndStoreToken(ctx, form)
}

// Disconnect discards the stored credentials. Calls fail with
// ErrNotAuthorized until the authorization flow is repeated.
func (c *Client) Disconnect(ctx context.Context) error {
	if err := c.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("%w: clearing credentials: %s", shared.ErrStoreUnavailable, err)
	}
	c.logger.Info("crm credentials cleared")
	return nil
}

func (c *Client) requestAndStoreToken(ctx context.Context, form url.Values) error {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/oauth/token/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("crm: building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: token request failed: %s", shared.ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading token response: %s", shared.ErrTransient, err)
	}

	var reply tokenResponse
	if err := json.Unmarshal(raw, &reply); err != nil {
		return fmt.Errorf("crm: decoding token response: %w", err)
	}
	if reply.Error != "" {
		return &APIError{Code: reply.Error, Description: reply.ErrorDescription}
	}
	if reply.AccessToken == "" || reply.RefreshToken == "" {
		return fmt.Errorf("crm: token endpoint returned an incomplete pair")
	}

	newToken := &Token{
		AccessToken:  reply.AccessToken,
		RefreshToken: reply.RefreshToken,
	}
	if reply.ExpiresIn > 0 {
		newToken.ExpiresAt = time.Now().Add(time.Duration(reply.ExpiresIn) * time.Second)
	}

	if err := c.tokens.Save(ctx, newToken); err != nil {
		return fmt.Errorf("%w: storing credentials: %s", shared.ErrStoreUnavailable, err)
	}

	c.logger.Info("stored new CRM credentials",
		zap.Time("expires_at", newToken.ExpiresAt))
	return nil
}
