package domain

import "github.com/shopspring/decimal"

// PricedLineItem is one cart line resolved against the catalog.
// ShippingCost is nil until estimated, and stays nil when the estimate failed.
type PricedLineItem struct {
	LineItemID   string
	ProductID    int64
	VendorID     int64
	VendorName   string
	Title        string
	CategoryID   *int64
	Quantity     int
	UnitPrice    decimal.Decimal
	ShippingCost *decimal.Decimal
	Shipping     ShippingMeta
}

// Price is the undiscounted line total.
func (p PricedLineItem) Price() decimal.Decimal {
	return Round2(p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity))))
}

func (p PricedLineItem) ShippingKnown() bool {
	return p.ShippingCost != nil
}

type DiscountedLineItem struct {
	PricedLineItem
	OriginalPrice   decimal.Decimal
	DiscountedPrice decimal.Decimal
	DiscountTotal   decimal.Decimal
	// PlatformFunded is the part of DiscountTotal paid out of the platform's commission.
	PlatformFunded decimal.Decimal
}

// CommissionRecord holds the platform commission for one line item.
// Rate is a percentage and Amount is taken on the discounted price. NetAmount is what the
// platform keeps once its share of the item's discounts is paid out of Amount.
type CommissionRecord struct {
	LineItemID     string
	Rate           decimal.Decimal
	Amount         decimal.Decimal
	PlatformFunded decimal.Decimal
	NetAmount      decimal.Decimal
}

type CommissionedLineItem struct {
	DiscountedLineItem
	Commission CommissionRecord
}
