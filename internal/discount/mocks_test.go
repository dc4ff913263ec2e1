package discount

import (
	"context"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
)

type MockSource struct {
	Sales      []d.Discount
	Promotions []d.Discount
	Coupons    []d.Discount
	SalesErr   error
	CouponsErr error

	RequestedProductIDs []int64
	RequestedCodes      []string
	CouponCalls         int
}

func (m *MockSource) ActiveSales(context.Context, int64, time.Time) ([]d.Discount, error) {
	return m.Sales, m.SalesErr
}

func (m *MockSource) AcceptedPromotions(_ context.Context, _ int64, productIDs []int64, _ time.Time) ([]d.Discount, error) {
	m.RequestedProductIDs = productIDs
	return m.Promotions, nil
}

func (m *MockSource) CouponsByCode(_ context.Context, _ int64, codes []string) ([]d.Discount, error) {
	m.CouponCalls++
	m.RequestedCodes = codes
	return m.Coupons, m.CouponsErr
}
