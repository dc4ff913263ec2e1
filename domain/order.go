package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	// OrderStatusPending is set when the order is written, before payment.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid means the payment was confirmed but the cart has not been cleared yet.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusConfirmed is the final state of a checkout.
	OrderStatusConfirmed OrderStatus = "confirmed"
)

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusConfirmed:
		return true
	}
	return false
}

// IsPaymentConfirmed reports whether payment has been recorded for the order.
func (s OrderStatus) IsPaymentConfirmed() bool {
	return s == OrderStatusPaid || s == OrderStatusConfirmed
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusConfirmed
}

// CanTransitionTo allows only pending -> paid -> confirmed.
func CanTransitionTo(from, to OrderStatus) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusPaid
	case OrderStatusPaid:
		return to == OrderStatusConfirmed
	default:
		return false
	}
}

type OrderItemStatus string

const (
	OrderItemStatusPending OrderItemStatus = "pending"
	OrderItemStatusPaid    OrderItemStatus = "paid"
)

type OrderItem struct {
	ID               int64
	OrderID          uuid.UUID
	LineItemID       string
	ProductID        int64
	VendorID         int64
	VendorName       string
	Title            string
	Quantity         int
	UnitPrice        decimal.Decimal
	OriginalPrice    decimal.Decimal
	Price            decimal.Decimal
	DiscountAmount   decimal.Decimal
	CommissionRate   decimal.Decimal
	CommissionAmount decimal.Decimal
	ShippingCost     decimal.Decimal
	Status           OrderItemStatus
}

type Order struct {
	ID                uuid.UUID
	UserID            int64
	Status            OrderStatus
	Subtotal          decimal.Decimal
	DiscountTotal     decimal.Decimal
	ShippingTotal     decimal.Decimal
	TaxAmount         decimal.Decimal
	PlatformFeeAmount decimal.Decimal
	TotalAmount       decimal.Decimal
	Currency          string
	PaymentIntentID   *string
	ShippingAddress   Address
	BillingAddress    Address
	Items             []OrderItem
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderFilter selects a page of a user's order history.
type OrderFilter struct {
	UserID int64
	Status *OrderStatus
	Page   int
	Limit  int
}

func (f OrderFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

type OrderPage struct {
	Orders []*Order
	Total  int
	Page   int
	Limit  int
}

func (p OrderPage) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}
