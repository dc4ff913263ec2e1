package checkout

import (
	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// materialize builds the pending order for a priced cart. Nothing is written here.
func materialize(cc d.CheckoutContext, q *Quote, currency string, shipping, billing d.Address) *d.Order {
	order := &d.Order{
		ID:                uuid.New(),
		UserID:            cc.UserID,
		Status:            d.OrderStatusPending,
		Subtotal:          q.Totals.Subtotal,
		DiscountTotal:     q.Totals.DiscountTotal,
		ShippingTotal:     q.Totals.ShippingTotal,
		TaxAmount:         q.Totals.TaxAmount,
		PlatformFeeAmount: q.Totals.PlatformFeeTotal,
		TotalAmount:       q.Totals.TotalAmount,
		Currency:          currency,
		ShippingAddress:   shipping,
		BillingAddress:    billing,
		Items:             make([]d.OrderItem, 0, len(q.Items)),
	}

	for _, item := range q.Items {
		shippingCost := decimal.Zero
		if item.ShippingKnown() {
			shippingCost = *item.ShippingCost
		}
		order.Items = append(order.Items, d.OrderItem{
			OrderID:          order.ID,
			LineItemID:       item.LineItemID,
			ProductID:        item.ProductID,
			VendorID:         item.VendorID,
			VendorName:       item.VendorName,
			Title:            item.Title,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			OriginalPrice:    item.OriginalPrice,
			Price:            item.DiscountedPrice,
			DiscountAmount:   item.DiscountTotal,
			CommissionRate:   item.Commission.Rate,
			CommissionAmount: item.Commission.Amount,
			ShippingCost:     shippingCost,
			Status:           d.OrderItemStatusPending,
		})
	}
	return order
}
