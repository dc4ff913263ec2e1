package domain

import "github.com/shopspring/decimal"

type CartItemRef struct {
	ProductID int64
	VendorID  int64
	Quantity  int
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a Address) IsZero() bool {
	return a.Line1 == "" && a.City == "" && a.State == "" && a.PostalCode == "" && a.Country == ""
}

type ShippingMethod string

const (
	ShippingFree       ShippingMethod = "free"
	ShippingFlatRate   ShippingMethod = "flat_rate"
	ShippingCalculated ShippingMethod = "calculated"
)

type Package struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
	Weight decimal.Decimal `json:"weight"`
}

type ShippingMeta struct {
	Method   ShippingMethod
	FlatRate decimal.Decimal
	Package  Package
	Origin   Address
}

// Product is the catalog view of a purchasable item.
type Product struct {
	ID          int64
	VendorID    int64
	VendorName  string
	Title       string
	CategoryID  *int64
	Price       decimal.Decimal
	Purchasable bool
	Shipping    ShippingMeta
}
