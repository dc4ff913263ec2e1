package discount

import (
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/shopspring/decimal"
)

// validate checks a candidate against its window, usage limits and minimum order.
// It returns an empty reason when the candidate may be applied.
func validate(disc d.Discount, subtotal decimal.Decimal, now time.Time) d.RejectReason {
	if !disc.IsActive || now.Before(disc.ValidFrom) {
		return d.RejectNotActive
	}
	if disc.ValidUntil != nil && now.After(*disc.ValidUntil) {
		return d.RejectExpired
	}
	if disc.TotalUsageLimit != nil && disc.CurrentUsage >= *disc.TotalUsageLimit {
		return d.RejectUsageLimit
	}
	if disc.UsageLimitPerUser != nil && disc.UserUsage >= *disc.UsageLimitPerUser {
		return d.RejectUserUsageLimit
	}
	if subtotal.LessThan(disc.MinOrderAmount) {
		return d.RejectMinOrderNotMet
	}
	return ""
}

// amountFor is the discount on a running line price, never more than the price itself.
func amountFor(disc d.Discount, running decimal.Decimal) decimal.Decimal {
	var amt decimal.Decimal
	switch disc.DiscountType {
	case d.DiscountPercentage:
		amt = d.PercentOf(running, disc.Value)
		if disc.MaxDiscountAmount != nil && amt.GreaterThan(*disc.MaxDiscountAmount) {
			amt = *disc.MaxDiscountAmount
		}
	case d.DiscountFixedAmount:
		amt = disc.Value
	default:
		return decimal.Zero
	}
	if amt.GreaterThan(running) {
		amt = running
	}
	if amt.IsNegative() {
		return decimal.Zero
	}
	return d.Round2(amt)
}

// floorHolds reports whether the net platform commission on price stays at or above floor*price.
// ratePercent is the commission rate in percent and platformFunded the platform's share of all
// discounts on the line so far.
func floorHolds(price, ratePercent, platformFunded, floor decimal.Decimal) bool {
	commission := d.PercentOf(price, ratePercent).Sub(platformFunded)
	return commission.GreaterThanOrEqual(floor.Mul(price))
}
