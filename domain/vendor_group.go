package domain

import "github.com/shopspring/decimal"

type VendorGroup struct {
	VendorID         int64
	VendorName       string
	Items            []CommissionedLineItem
	Subtotal         decimal.Decimal
	DiscountTotal    decimal.Decimal
	ShippingTotal    decimal.Decimal
	CommissionTotal  decimal.Decimal
	ShippingResolved bool
}

// Totals is the cart-level money summary.
// TotalAmount = Subtotal + ShippingTotal + TaxAmount, where Subtotal is already discounted.
type Totals struct {
	Subtotal         decimal.Decimal
	DiscountTotal    decimal.Decimal
	ShippingTotal    decimal.Decimal
	TaxAmount        decimal.Decimal
	PlatformFeeTotal decimal.Decimal
	TotalAmount      decimal.Decimal
	VendorCount      int
	ShippingResolved bool
}

// WithTax returns a copy of t carrying taxAmount.
func (t Totals) WithTax(taxAmount decimal.Decimal) Totals {
	t.TaxAmount = Round2(taxAmount)
	t.TotalAmount = Round2(t.Subtotal.Add(t.ShippingTotal).Add(t.TaxAmount))
	return t
}
