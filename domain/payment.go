package domain

import "github.com/google/uuid"

// PaymentIntentRef is the processor's handle for a pending charge. Amount is in cents.
type PaymentIntentRef struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

type PaymentIntentParams struct {
	OrderID        uuid.UUID
	Amount         int64
	Currency       string
	CustomerID     string
	Metadata       map[string]string
	IdempotencyKey string
}

type Customer struct {
	ID     string
	UserID int64
	Email  string
	Name   string
}
