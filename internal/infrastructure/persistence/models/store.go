package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crmsync/backend/internal/domain/store"
)

// OrderModel is the persistence model for the store Order.
type OrderModel struct {
	ID            string            `gorm:"type:varchar(64);primary_key"`
	Number        string            `gorm:"type:varchar(64);not null;uniqueIndex"`
	Status        store.OrderStatus `gorm:"type:varchar(20);not null;index"`
	Total         decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Currency      string            `gorm:"type:varchar(8);not null"`
	CustomerID    string            `gorm:"type:varchar(64);index"`
	Email         string            `gorm:"type:varchar(255);index"`
	FirstName     string            `gorm:"type:varchar(100)"`
	LastName      string            `gorm:"type:varchar(100)"`
	Phone         string            `gorm:"type:varchar(32)"`
	Company       string            `gorm:"type:varchar(255)"`
	Address1      string            `gorm:"type:varchar(255)"`
	City          string            `gorm:"type:varchar(100)"`
	Country       string            `gorm:"type:varchar(100)"`
	PaymentMethod string            `gorm:"type:varchar(100)"`
	LineItemsJSON string            `gorm:"type:jsonb;column:line_items"`
	Note          string            `gorm:"type:text"`
	CreatedAt     time.Time         `gorm:"not null"`
	UpdatedAt     time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *store.Order {
	order := &store.Order{
		ID:            m.ID,
		Number:        m.Number,
		Status:        m.Status,
		Total:         m.Total,
		Currency:      m.Currency,
		CustomerID:    m.CustomerID,
		Email:         m.Email,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Phone:         m.Phone,
		Company:       m.Company,
		Address1:      m.Address1,
		City:          m.City,
		Country:       m.Country,
		PaymentMethod: m.PaymentMethod,
		LineItems:     make([]store.LineItem, 0),
		Note:          m.Note,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}

	if m.LineItemsJSON != "" {
		var items []store.LineItem
		if err := json.Unmarshal([]byte(m.LineItemsJSON), &items); err == nil {
			order.LineItems = items
		}
	}

	return order
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(order *store.Order) {
	m.ID = order.ID
	m.Number = order.Number
	m.Status = order.Status
	m.Total = order.Total
	m.Currency = order.Currency
	m.CustomerID = order.CustomerID
	m.Email = order.Email
	m.FirstName = order.FirstName
	m.LastName = order.LastName
	m.Phone = order.Phone
	m.Company = order.Company
	m.Address1 = order.Address1
	m.City = order.City
	m.Country = order.Country
	m.PaymentMethod = order.PaymentMethod
	m.Note = order.Note
	m.CreatedAt = order.CreatedAt
	m.UpdatedAt = order.UpdatedAt

	if len(order.LineItems) > 0 {
		if jsonBytes, err := json.Marshal(order.LineItems); err == nil {
			m.LineItemsJSON = string(jsonBytes)
		}
	} else {
		m.LineItemsJSON = "[]"
	}
}

// CustomerModel is the persistence model for the store Customer.
type CustomerModel struct {
	ID        string    `gorm:"type:varchar(64);primary_key"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	FirstName string    `gorm:"type:varchar(100)"`
	LastName  string    `gorm:"type:varchar(100)"`
	Phone     string    `gorm:"type:varchar(32)"`
	Company   string    `gorm:"type:varchar(255)"`
	Address1  string    `gorm:"type:varchar(255)"`
	City      string    `gorm:"type:varchar(100)"`
	Country   string    `gorm:"type:varchar(100)"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() *store.Customer {
	return &store.Customer{
		ID:        m.ID,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Phone:     m.Phone,
		Company:   m.Company,
		Address1:  m.Address1,
		City:      m.City,
		Country:   m.Country,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Customer
func (m *CustomerModel) FromDomain(customer *store.Customer) {
	m.ID = customer.ID
	m.Email = customer.Email
	m.FirstName = customer.FirstName
	m.LastName = customer.LastName
	m.Phone = customer.Phone
	m.Company = customer.Company
	m.Address1 = customer.Address1
	m.City = customer.City
	m.Country = customer.Country
	m.CreatedAt = customer.CreatedAt
	m.UpdatedAt = customer.UpdatedAt
}
