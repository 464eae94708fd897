package store

import "context"

// OrderRepository persists store orders
type OrderRepository interface {
	// Save creates or updates an order
	Save(ctx context.Context, order *Order) error
	// FindByID returns the order, or shared.ErrNotFound
	FindByID(ctx context.Context, id string) (*Order, error)
	// FindByNumber returns the order with the given number, or shared.ErrNotFound
	FindByNumber(ctx context.Context, number string) (*Order, error)
}

// CustomerRepository persists store customers
type CustomerRepository interface {
	// Save creates or updates a customer
	Save(ctx context.Context, customer *Customer) error
	// FindByID returns the customer, or shared.ErrNotFound
	FindByID(ctx context.Context, id string) (*Customer, error)
	// FindByEmail returns the customer with the given email, or shared.ErrNotFound
	FindByEmail(ctx context.Context, email string) (*Customer, error)
}
