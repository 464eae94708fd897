package store

import (
	"strings"
	"time"

	"github.com/crmsync/backend/internal/domain/shared"
)

// Customer is a registered store customer
type Customer struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Company   string
	Address1  string
	City      string
	Country   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCustomer creates a customer
func NewCustomer(id, email string) (*Customer, error) {
	if id == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "customer ID is required")
	}
	if email == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "customer email is required")
	}
	now := time.Now()
	return &Customer{
		ID:        id,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// FullName returns "First Last"
func (c *Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// ProfileChange is one applied field mutation, for change lists
type ProfileChange struct {
	Field string
	From  string
	To    string
}

// ApplyProfile overwrites profile fields with non-empty incoming values
// and returns the list of fields that actually changed. Empty incoming
// values never erase existing data.
func (c *Customer) ApplyProfile(fields map[string]string) []ProfileChange {
	targets := map[string]*string{
		"first_name": &c.FirstName,
		"last_name":  &c.LastName,
		"phone":      &c.Phone,
		"company":    &c.Company,
		"address_1":  &c.Address1,
		"city":       &c.City,
		"country":    &c.Country,
	}

	var changes []ProfileChange
	for field, target := range targets {
		incoming, ok := fields[field]
		if !ok {
			continue
		}
		incoming = strings.TrimSpace(incoming)
		if incoming == "" || incoming == *target {
			continue
		}
		changes = append(changes, ProfileChange{Field: field, From: *target, To: incoming})
		*target = incoming
	}
	if len(changes) > 0 {
		c.UpdatedAt = time.Now()
	}
	return changes
}

// ChangeEmail updates the customer email. The caller must have verified
// the new address is not already taken by another customer.
func (c *Customer) ChangeEmail(email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, shared.NewDomainError("INVALID_INPUT", "customer email is required")
	}
	if c.Email == email {
		return false, nil
	}
	c.Email = email
	c.UpdatedAt = time.Now()
	return true, nil
}
