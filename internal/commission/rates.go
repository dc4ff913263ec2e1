package commission

import (
	"context"
	"fmt"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/shopspring/decimal"
)

var DefaultRate = decimal.NewFromInt(15)

// RateStore reads the configured platform fees.
type RateStore interface {
	VendorFeeSettings(ctx context.Context, vendorIDs []int64) (map[int64]d.VendorFeeSettings, error)
	CategoryCommissionRates(ctx context.Context, categoryIDs []int64) (map[int64]decimal.Decimal, error)
}

type RateResolver struct {
	store       RateStore
	defaultRate decimal.Decimal
}

func NewRateResolver(store RateStore, defaultRate decimal.Decimal) *RateResolver {
	return &RateResolver{store: store, defaultRate: defaultRate}
}

// Resolve returns the commission rate in percent for every line item, keyed by line item id.
// A pass-through vendor pays nothing. Otherwise a category rate overrides the vendor rate,
// which falls back to the platform default.
func (r *RateResolver) Resolve(ctx context.Context, items []d.PricedLineItem) (map[string]decimal.Decimal, error) {
	vendorIDs := make([]int64, 0, len(items))
	categoryIDs := make([]int64, 0, len(items))
	seenVendor := map[int64]bool{}
	seenCategory := map[int64]bool{}
	for _, item := range items {
		if !seenVendor[item.VendorID] {
			seenVendor[item.VendorID] = true
			vendorIDs = append(vendorIDs, item.VendorID)
		}
		if item.CategoryID != nil && !seenCategory[*item.CategoryID] {
			seenCategory[*item.CategoryID] = true
			categoryIDs = append(categoryIDs, *item.CategoryID)
		}
	}

	vendors, err := r.store.VendorFeeSettings(ctx, vendorIDs)
	if err != nil {
		return nil, fmt.Errorf("load vendor fee settings: %w", err)
	}
	categories := map[int64]decimal.Decimal{}
	if len(categoryIDs) > 0 {
		categories, err = r.store.CategoryCommissionRates(ctx, categoryIDs)
		if err != nil {
			return nil, fmt.Errorf("load category rates: %w", err)
		}
	}

	rates := make(map[string]decimal.Decimal, len(items))
	for _, item := range items {
		rates[item.LineItemID] = r.rateFor(item, vendors, categories)
	}
	return rates, nil
}

func (r *RateResolver) rateFor(
	item d.PricedLineItem,
	vendors map[int64]d.VendorFeeSettings,
	categories map[int64]decimal.Decimal) decimal.Decimal {

	settings, ok := vendors[item.VendorID]
	if ok && settings.FeeStructure == d.FeePassThrough {
		return decimal.Zero
	}
	if item.CategoryID != nil {
		if rate, ok := categories[*item.CategoryID]; ok {
			return rate
		}
	}
	if ok && settings.Rate != nil {
		return *settings.Rate
	}
	return r.defaultRate
}
