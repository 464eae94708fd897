package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/crmsync/backend/internal/domain/sync"
)

// maxResponseSize is the maximum allowed response size from the CRM API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client talks to the CRM REST API. It attaches the stored bearer
// token to every call and transparently refreshes it exactly once when
// the remote reports it expired; a second expiry on the retried call
// surfaces as an auth failure.
type Client struct {
	config     *Config
	httpClient *http.Client
	tokens     TokenStore
	logger     *zap.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithClientLogger installs a logger, zap.NewNop by default
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a CRM client with the given configuration
func NewClient(config *Config, tokens TokenStore, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, fmt.Errorf("crm: token store is required")
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout(),
		},
		tokens: tokens,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Authorized reports whether usable credentials are stored
func (c *Client) Authorized(ctx context.Context) bool {
	token, err := c.tokens.Get(ctx)
	return err == nil && token != nil && token.AccessToken != ""
}

// Call performs one METHOD.ACTION RPC. On an expired-token response it
// refreshes once and retries once; every other failure propagates
// unchanged.
func (c *Client) Call(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading credentials: %s", shared.ErrStoreUnavailable, err)
	}
	if token == nil || token.AccessToken == "" {
		return nil, ErrNotAuthorized
	}

	result, err := c.doCall(ctx, method, params, token.AccessToken)
	if err != errTokenExpired {
		return result, err
	}

	c.logger.Info("access token expired, refreshing", zap.String("method", method))
	if err := c.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrAuthFailure, err)
	}

	token, err = c.tokens.Get(ctx)
	if err != nil || token == nil {
		return nil, fmt.Errorf("%w: credentials unavailable after refresh", shared.ErrAuthFailure)
	}

	result, err = c.doCall(ctx, method, params, token.AccessToken)
	if err == errTokenExpired {
		// the refreshed token was rejected too, no second refresh
		return nil, fmt.Errorf("%w: refreshed token rejected", shared.ErrAuthFailure)
	}
	return result, err
}

// doCall performs one HTTP round trip without any token handling
func (c *Client) doCall(ctx context.Context, method string, params map[string]any, accessToken string) (map[string]any, error) {
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("crm: encoding request: %w", err)
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/rest/" + method + "?auth=" + accessToken
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("crm: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %s", shared.ErrTransient, method, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %s", shared.ErrTransient, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: remote returned %d", shared.ErrTransient, resp.StatusCode)
	}

	var envelope struct {
		Result           json.RawMessage `json:"result"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("crm: decoding response: %w", err)
	}

	if envelope.Error != "" {
		if tokenExpiredCodes[envelope.Error] {
			return nil, errTokenExpired
		}
		return nil, classify(&APIError{Code: envelope.Error, Description: envelope.ErrorDescription})
	}

	out := map[string]any{}
	if len(envelope.Result) > 0 {
		var result any
		if err := json.Unmarshal(envelope.Result, &result); err != nil {
			return nil, fmt.Errorf("crm: decoding result: %w", err)
		}
		switch v := result.(type) {
		case map[string]any:
			out = v
		default:
			out["result"] = v
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Deal Operations
// ---------------------------------------------------------------------------

// GetDeal fetches the complete deal record
func (c *Client) GetDeal(ctx context.Context, id string) (map[string]any, error) {
	result, err := c.Call(ctx, "crm.deal.get", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return unwrapEntity(result), nil
}

// CreateDeal creates a deal and returns its remote ID
func (c *Client) CreateDeal(ctx context.Context, fields map[string]any) (string, error) {
	result, err := c.Call(ctx, "crm.deal.add", map[string]any{"fields": fields})
	if err != nil {
		return "", err
	}
	return resultID(result)
}

// UpdateDeal updates an existing deal
func (c *Client) UpdateDeal(ctx context.Context, id string, fields map[string]any) error {
	_, err := c.Call(ctx, "crm.deal.update", map[string]any{"id": id, "fields": fields})
	return err
}

// ---------------------------------------------------------------------------
// Contact Operations
// ---------------------------------------------------------------------------

// GetContact fetches the complete contact record
func (c *Client) GetContact(ctx context.Context, id string) (map[string]any, error) {
	result, err := c.Call(ctx, "crm.contact.get", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return unwrapEntity(result), nil
}

// CreateContact creates a contact and returns its remote ID
func (c *Client) CreateContact(ctx context.Context, fields map[string]any) (string, error) {
	result, err := c.Call(ctx, "crm.contact.add", map[string]any{"fields": fields})
	if err != nil {
		return "", err
	}
	return resultID(result)
}

// UpdateContact updates an existing contact
func (c *Client) UpdateContact(ctx context.Context, id string, fields map[string]any) error {
	_, err := c.Call(ctx, "crm.contact.update", map[string]any{"id": id, "fields": fields})
	return err
}

// FindContactByEmail returns the ID of the first contact with the
// given email, or empty when none exists
func (c *Client) FindContactByEmail(ctx context.Context, email string) (string, error) {
	result, err := c.Call(ctx, "crm.contact.list", map[string]any{
		"filter": map[string]any{"EMAIL": email},
		"select": []string{"ID"},
	})
	if err != nil {
		return "", err
	}

	items, ok := result["result"].([]any)
	if !ok || len(items) == 0 {
		return "", nil
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return "", nil
	}
	return anyToID(first["ID"]), nil
}

// ---------------------------------------------------------------------------
// Lead Operations
// ---------------------------------------------------------------------------

// CreateLead creates a lead and returns its remote ID
func (c *Client) CreateLead(ctx context.Context, fields map[string]any) (string, error) {
	result, err := c.Call(ctx, "crm.lead.add", map[string]any{"fields": fields})
	if err != nil {
		return "", err
	}
	return resultID(result)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// unwrapEntity tolerates both {result:{...fields}} and bare field maps
func unwrapEntity(result map[string]any) map[string]any {
	if inner, ok := result["result"].(map[string]any); ok {
		return inner
	}
	return result
}

// resultID extracts the created entity ID from an add-call result
func resultID(result map[string]any) (string, error) {
	id := anyToID(result["result"])
	if id == "" {
		id = anyToID(result["ID"])
	}
	if id == "" {
		return "", fmt.Errorf("crm: create call returned no entity ID")
	}
	return id, nil
}

func anyToID(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Ensure Client implements the RemoteAPI port
var _ sync.RemoteAPI = (*Client)(nil)
