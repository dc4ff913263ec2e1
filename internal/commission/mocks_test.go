package commission

import (
	"context"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/shopspring/decimal"
)

type MockRateStore struct {
	Vendors     map[int64]d.VendorFeeSettings
	Categories  map[int64]decimal.Decimal
	VendorErr   error
	CategoryErr error

	CategoryCalls int
}

func (m *MockRateStore) VendorFeeSettings(_ context.Context, _ []int64) (map[int64]d.VendorFeeSettings, error) {
	return m.Vendors, m.VendorErr
}

func (m *MockRateStore) CategoryCommissionRates(_ context.Context, _ []int64) (map[int64]decimal.Decimal, error) {
	m.CategoryCalls++
	return m.Categories, m.CategoryErr
}
