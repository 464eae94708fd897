package crm

import (
	"context"
	"time"
)

// Token is an OAuth2 credential pair
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is past its lifetime
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// TokenStore durably holds the OAuth credentials. Save must replace
// both tokens atomically; a failed save leaves the stored pair
// untouched.
type TokenStore interface {
	// Get returns the stored token, or nil when the integration was
	// never authorized
	Get(ctx context.Context) (*Token, error)
	// Save atomically replaces the stored token pair
	Save(ctx context.Context, token *Token) error
	// Clear removes the stored credentials. Clearing an empty store
	// is not an error.
	Clear(ctx context.Context) error
}
