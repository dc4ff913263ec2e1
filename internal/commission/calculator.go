package commission

import (
	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/shopspring/decimal"
)

// Calculate attaches a commission record to every discounted item. Commission is taken on the
// discounted price. The platform-funded part of the item's discounts is reported as NetAmount
// and never changes Amount.
// Items must all have a rate; a missing one is charged at zero.
func Calculate(items []d.DiscountedLineItem, rates map[string]decimal.Decimal) []d.CommissionedLineItem {
	out := make([]d.CommissionedLineItem, len(items))
	for i, item := range items {
		rate := rates[item.LineItemID]
		amount := d.PercentOf(item.DiscountedPrice, rate)
		out[i] = d.CommissionedLineItem{
			DiscountedLineItem: item,
			Commission: d.CommissionRecord{
				LineItemID:     item.LineItemID,
				Rate:           rate,
				Amount:         amount,
				PlatformFunded: item.PlatformFunded,
				NetAmount:      amount.Sub(item.PlatformFunded),
			},
		}
	}
	return out
}
