package sync

import "context"

// ---------------------------------------------------------------------------
// Remote CRM Port
// ---------------------------------------------------------------------------

// RemoteAPI is the port to the CRM. Implementations own authentication,
// including the transparent single refresh-and-retry on an expired
// token: callers see either a result or a final failure, never the
// token lifecycle.
type RemoteAPI interface {
	// Call performs a METHOD.ACTION style RPC with the given parameters
	Call(ctx context.Context, method string, params map[string]any) (map[string]any, error)

	// Authorized reports whether usable credentials are stored
	Authorized(ctx context.Context) bool

	// GetDeal fetches the complete deal record
	GetDeal(ctx context.Context, id string) (map[string]any, error)
	// CreateDeal creates a deal and returns its remote ID
	CreateDeal(ctx context.Context, fields map[string]any) (string, error)
	// UpdateDeal updates an existing deal
	UpdateDeal(ctx context.Context, id string, fields map[string]any) error

	// GetContact fetches the complete contact record
	GetContact(ctx context.Context, id string) (map[string]any, error)
	// CreateContact creates a contact and returns its remote ID
	CreateContact(ctx context.Context, fields map[string]any) (string, error)
	// UpdateContact updates an existing contact
	UpdateContact(ctx context.Context, id string, fields map[string]any) error
	// FindContactByEmail returns the ID of the contact with the given
	// email, or empty when none exists
	FindContactByEmail(ctx context.Context, email string) (string, error)

	// CreateLead creates a lead and returns its remote ID
	CreateLead(ctx context.Context, fields map[string]any) (string, error)
}
