package domain

import "github.com/shopspring/decimal"

type FeeStructure string

const (
	FeeCommission  FeeStructure = "commission"
	FeePassThrough FeeStructure = "pass_through"
)

// VendorFeeSettings is a vendor's configured platform fee. A nil Rate means the platform default.
type VendorFeeSettings struct {
	VendorID     int64
	Rate         *decimal.Decimal
	FeeStructure FeeStructure
}
