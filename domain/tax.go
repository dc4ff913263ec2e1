package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TaxLineItem struct {
	Reference string
	Amount    decimal.Decimal
	Quantity  int
}

type TaxBreakdown struct {
	Jurisdiction string          `json:"jurisdiction"`
	TaxType      string          `json:"tax_type"`
	Rate         decimal.Decimal `json:"rate"`
	Amount       decimal.Decimal `json:"amount"`
}

// TaxCalculation is the provider's answer for one order.
type TaxCalculation struct {
	ID            string
	TaxableAmount decimal.Decimal
	TaxAmount     decimal.Decimal
	Breakdown     []TaxBreakdown
}

type TaxRecordStatus string

const (
	TaxRecordCalculated TaxRecordStatus = "calculated"
	TaxRecordCommitted  TaxRecordStatus = "committed"
	// TaxRecordVoid marks a calculation the buyer was never charged. It is never committed.
	TaxRecordVoid TaxRecordStatus = "void"
)

// TaxRecord is the persisted tax calculation of an order. There is at most one per order.
type TaxRecord struct {
	ID            int64
	OrderID       uuid.UUID
	TaxProviderID string
	TransactionID *string
	TaxableAmount decimal.Decimal
	TaxCollected  decimal.Decimal
	Breakdown     []TaxBreakdown
	CustomerState string
	CustomerZip   string
	Status        TaxRecordStatus
}

func (r *TaxRecord) IsCommitted() bool {
	return r.TransactionID != nil && *r.TransactionID != ""
}
