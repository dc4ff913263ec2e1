package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to whole cents.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// PercentOf returns round2(v * percent / 100).
func PercentOf(v, percent decimal.Decimal) decimal.Decimal {
	return Round2(v.Mul(percent).Div(hundred))
}

// ToCents converts a money amount to integer minor units.
func ToCents(v decimal.Decimal) int64 {
	return v.Mul(hundred).Round(0).IntPart()
}

// FromCents converts minor units back to a money amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
