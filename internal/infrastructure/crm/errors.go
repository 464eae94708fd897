package crm

import (
	"errors"
	"fmt"

	"github.com/crmsync/backend/internal/domain/shared"
)

// ErrNotAuthorized indicates no usable credentials are stored
var ErrNotAuthorized = errors.New("crm: integration is not authorized")

// errTokenExpired is internal: the client resolves it by refreshing
// once, callers only ever see AuthFailure
var errTokenExpired = errors.New("crm: access token expired")

// APIError is a business-level error reported by the CRM
type APIError struct {
	Code        string
	Description string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("crm: %s (%s)", e.Description, e.Code)
	}
	return "crm: " + e.Code
}

// tokenExpiredCodes are the remote error codes that mean the access
// token must be refreshed
var tokenExpiredCodes = map[string]bool{
	"expired_token": true,
	"invalid_token": true,
	"EXPIRED_TOKEN": true,
}

// classify converts a remote API error into the domain taxonomy
func classify(apiErr *APIError) error {
	switch apiErr.Code {
	case "NOT_FOUND", "ERROR_NOT_FOUND":
		return shared.ErrNotFound
	case "QUERY_LIMIT_EXCEEDED":
		return fmt.Errorf("%w: %s", shared.ErrTransient, apiErr.Error())
	case "INVALID_REQUEST", "ERROR_ARGUMENT":
		return fmt.Errorf("%w: %s", shared.ErrInvalidInput, apiErr.Error())
	default:
		return apiErr
	}
}
