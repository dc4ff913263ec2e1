package checkout

import (
	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/shopspring/decimal"
)

// GroupByVendor partitions items by vendor in order of first appearance.
func GroupByVendor(items []d.CommissionedLineItem) []d.VendorGroup {
	index := make(map[int64]int)
	groups := make([]d.VendorGroup, 0)

	for _, item := range items {
		i, ok := index[item.VendorID]
		if !ok {
			i = len(groups)
			index[item.VendorID] = i
			groups = append(groups, d.VendorGroup{
				VendorID:         item.VendorID,
				VendorName:       item.VendorName,
				Subtotal:         decimal.Zero,
				DiscountTotal:    decimal.Zero,
				ShippingTotal:    decimal.Zero,
				CommissionTotal:  decimal.Zero,
				ShippingResolved: true,
			})
		}
		g := &groups[i]
		g.Items = append(g.Items, item)
		g.Subtotal = g.Subtotal.Add(item.DiscountedPrice)
		g.DiscountTotal = g.DiscountTotal.Add(item.DiscountTotal)
		g.CommissionTotal = g.CommissionTotal.Add(item.Commission.Amount)
		if item.ShippingKnown() {
			g.ShippingTotal = g.ShippingTotal.Add(*item.ShippingCost)
		} else {
			g.ShippingResolved = false
		}
	}
	return groups
}

// ComputeTotals sums items into cart totals. Unknown shipping counts as zero and clears
// ShippingResolved.
func ComputeTotals(items []d.CommissionedLineItem, taxAmount decimal.Decimal) d.Totals {
	t := d.Totals{
		Subtotal:         decimal.Zero,
		DiscountTotal:    decimal.Zero,
		ShippingTotal:    decimal.Zero,
		PlatformFeeTotal: decimal.Zero,
		ShippingResolved: true,
	}
	vendors := make(map[int64]bool)
	for _, item := range items {
		vendors[item.VendorID] = true
		t.Subtotal = t.Subtotal.Add(item.DiscountedPrice)
		t.DiscountTotal = t.DiscountTotal.Add(item.DiscountTotal)
		t.PlatformFeeTotal = t.PlatformFeeTotal.Add(item.Commission.Amount)
		if item.ShippingKnown() {
			t.ShippingTotal = t.ShippingTotal.Add(*item.ShippingCost)
		} else {
			t.ShippingResolved = false
		}
	}
	t.VendorCount = len(vendors)
	return t.WithTax(taxAmount)
}
