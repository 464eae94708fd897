package crm

import (
	"errors"
	"strings"
	"time"
)

// Config holds the CRM connection settings
type Config struct {
	// BaseURL is the CRM portal root, e.g. https://example.crm.test
	BaseURL string
	// ClientID identifies the OAuth application
	ClientID string
	// ClientSecret authenticates the OAuth application
	ClientSecret string
	// RedirectURL is the OAuth callback registered with the CRM
	RedirectURL string
	// TimeoutSeconds bounds every outbound call, 30 by default
	TimeoutSeconds int
}

// Validate checks the configuration for completeness
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("crm: configuration is required")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("crm: base URL is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return errors.New("crm: base URL must be an http(s) URL")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return errors.New("crm: client ID is required")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return errors.New("crm: client secret is required")
	}
	return nil
}

// Timeout returns the configured call timeout
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
