package http

import (
	"encoding/json"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/checkout"
	"github.com/shopspring/decimal"
)

type CartItemDTO struct {
	ProductID int64 `json:"product_id"`
	VendorID  int64 `json:"vendor_id"`
	Quantity  int   `json:"quantity"`
}

// CartItems is nil when the client did not send cart_items, so the saved cart is used.
type CalculateTotalsRequestDTO struct {
	CartItems       []CartItemDTO `json:"cart_items"`
	ShippingAddress *d.Address    `json:"shipping_address"`
	AppliedCoupons  []string      `json:"applied_coupons"`
}

type CreatePaymentIntentRequestDTO struct {
	CartItems      []CartItemDTO `json:"cart_items"`
	ShippingInfo   *d.Address    `json:"shipping_info"`
	BillingInfo    *d.Address    `json:"billing_info"`
	AppliedCoupons []string      `json:"applied_coupons"`
}

type ConfirmPaymentRequestDTO struct {
	PaymentIntentID string `json:"payment_intent_id"`
	OrderID         string `json:"order_id"`
}

type TotalsDTO struct {
	Subtotal         json.Number `json:"subtotal"`
	DiscountTotal    json.Number `json:"discount_total"`
	ShippingTotal    json.Number `json:"shipping_total"`
	TaxAmount        json.Number `json:"tax_amount"`
	PlatformFeeTotal json.Number `json:"platform_fee_total"`
	TotalAmount      json.Number `json:"total_amount"`
	VendorCount      int         `json:"vendor_count"`
	ShippingResolved bool        `json:"shipping_resolved"`
}

type LineItemDTO struct {
	LineItemID       string       `json:"line_item_id"`
	ProductID        int64        `json:"product_id"`
	VendorID         int64        `json:"vendor_id"`
	VendorName       string       `json:"vendor_name"`
	Title            string       `json:"title"`
	Quantity         int          `json:"quantity"`
	UnitPrice        json.Number  `json:"unit_price"`
	OriginalPrice    json.Number  `json:"original_price"`
	DiscountedPrice  json.Number  `json:"discounted_price"`
	DiscountTotal    json.Number  `json:"discount_total"`
	ShippingCost     *json.Number `json:"shipping_cost"`
	CommissionRate   json.Number  `json:"commission_rate"`
	CommissionAmount json.Number  `json:"commission_amount"`
}

type VendorGroupDTO struct {
	VendorID         int64         `json:"vendor_id"`
	VendorName       string        `json:"vendor_name"`
	Items            []LineItemDTO `json:"items"`
	Subtotal         json.Number   `json:"subtotal"`
	DiscountTotal    json.Number   `json:"discount_total"`
	ShippingTotal    json.Number   `json:"shipping_total"`
	CommissionTotal  json.Number   `json:"commission_total"`
	ShippingResolved bool          `json:"shipping_resolved"`
}

type DiscountDTO struct {
	SourceType   string      `json:"source_type"`
	SourceID     int64       `json:"source_id"`
	Code         string      `json:"code,omitempty"`
	Name         string      `json:"name,omitempty"`
	DiscountType string      `json:"discount_type"`
	Amount       json.Number `json:"amount"`
	PlatformCost json.Number `json:"platform_cost"`
	VendorCost   json.Number `json:"vendor_cost"`
	AppliesTo    []string    `json:"applies_to"`
	Excluded     []string    `json:"excluded"`
}

type RejectedCouponDTO struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type CalculateTotalsResponseDTO struct {
	Success              bool                `json:"success"`
	VendorGroups         []VendorGroupDTO    `json:"vendor_groups"`
	Totals               TotalsDTO           `json:"totals"`
	ItemsWithCommissions []LineItemDTO       `json:"items_with_commissions"`
	Discounts            []DiscountDTO       `json:"discounts"`
	RejectedCoupons      []RejectedCouponDTO `json:"rejected_coupons"`
}

type PaymentIntentDTO struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
}

type TaxBreakdownDTO struct {
	Jurisdiction string      `json:"jurisdiction"`
	TaxType      string      `json:"tax_type"`
	Rate         json.Number `json:"rate"`
	Amount       json.Number `json:"amount"`
}

type TaxInfoDTO struct {
	CalculationID string            `json:"calculation_id"`
	TaxableAmount json.Number       `json:"taxable_amount"`
	TaxAmount     json.Number       `json:"tax_amount"`
	Breakdown     []TaxBreakdownDTO `json:"breakdown"`
}

type CreatePaymentIntentResponseDTO struct {
	Success       bool             `json:"success"`
	PaymentIntent PaymentIntentDTO `json:"payment_intent"`
	OrderID       string           `json:"order_id"`
	Totals        TotalsDTO        `json:"totals"`
	TaxInfo       *TaxInfoDTO      `json:"tax_info"`
}

type ConfirmPaymentResponseDTO struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type PaymentStatusDTO struct {
	ID                    string      `json:"id"`
	Status                string      `json:"status"`
	TotalAmount           json.Number `json:"total_amount"`
	CreatedAt             time.Time   `json:"created_at"`
	StripePaymentIntentID *string     `json:"stripe_payment_intent_id"`
}

type PaymentStatusResponseDTO struct {
	Success bool             `json:"success"`
	Order   PaymentStatusDTO `json:"order"`
}

type OrderItemDTO struct {
	ID               int64       `json:"id"`
	LineItemID       string      `json:"line_item_id"`
	ProductID        int64       `json:"product_id"`
	VendorID         int64       `json:"vendor_id"`
	VendorName       string      `json:"vendor_name"`
	Title            string      `json:"title"`
	Quantity         int         `json:"quantity"`
	UnitPrice        json.Number `json:"unit_price"`
	OriginalPrice    json.Number `json:"original_price"`
	Price            json.Number `json:"price"`
	DiscountAmount   json.Number `json:"discount_amount"`
	CommissionRate   json.Number `json:"commission_rate"`
	CommissionAmount json.Number `json:"commission_amount"`
	ShippingCost     json.Number `json:"shipping_cost"`
	Status           string      `json:"status"`
}

type OrderDTO struct {
	ID                    string         `json:"id"`
	UserID                int64          `json:"user_id"`
	Status                string         `json:"status"`
	Subtotal              json.Number    `json:"subtotal"`
	DiscountTotal         json.Number    `json:"discount_total"`
	ShippingTotal         json.Number    `json:"shipping_total"`
	TaxAmount             json.Number    `json:"tax_amount"`
	PlatformFeeAmount     json.Number    `json:"platform_fee_amount"`
	TotalAmount           json.Number    `json:"total_amount"`
	Currency              string         `json:"currency"`
	StripePaymentIntentID *string        `json:"stripe_payment_intent_id"`
	ShippingAddress       d.Address      `json:"shipping_address"`
	BillingAddress        d.Address      `json:"billing_address"`
	Items                 []OrderItemDTO `json:"items"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

type OrderResponseDTO struct {
	Success bool     `json:"success"`
	Order   OrderDTO `json:"order"`
}

type OrderVendorDTO struct {
	VendorID   int64          `json:"vendor_id"`
	VendorName string         `json:"vendor_name"`
	Items      []OrderItemDTO `json:"items"`
}

type OrderHistoryDTO struct {
	OrderDTO
	Vendors []OrderVendorDTO `json:"vendors"`
}

type PaginationDTO struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type OrderListResponseDTO struct {
	Success    bool              `json:"success"`
	Orders     []OrderHistoryDTO `json:"orders"`
	Pagination PaginationDTO     `json:"pagination"`
}

// money renders an amount as a JSON number with two decimals.
func money(v decimal.Decimal) json.Number {
	return json.Number(v.StringFixed(2))
}

func rate(v decimal.Decimal) json.Number {
	return json.Number(v.String())
}

func toCartItemRefs(items []CartItemDTO) []d.CartItemRef {
	refs := make([]d.CartItemRef, 0, len(items))
	for _, item := range items {
		refs = append(refs, d.CartItemRef{
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Quantity:  item.Quantity,
		})
	}
	return refs
}

func toTotalsDTO(t d.Totals) TotalsDTO {
	return TotalsDTO{
		Subtotal:         money(t.Subtotal),
		DiscountTotal:    money(t.DiscountTotal),
		ShippingTotal:    money(t.ShippingTotal),
		TaxAmount:        money(t.TaxAmount),
		PlatformFeeTotal: money(t.PlatformFeeTotal),
		TotalAmount:      money(t.TotalAmount),
		VendorCount:      t.VendorCount,
		ShippingResolved: t.ShippingResolved,
	}
}

func toLineItemDTOs(items []d.CommissionedLineItem) []LineItemDTO {
	out := make([]LineItemDTO, 0, len(items))
	for _, item := range items {
		dto := LineItemDTO{
			LineItemID:       item.LineItemID,
			ProductID:        item.ProductID,
			VendorID:         item.VendorID,
			VendorName:       item.VendorName,
			Title:            item.Title,
			Quantity:         item.Quantity,
			UnitPrice:        money(item.UnitPrice),
			OriginalPrice:    money(item.OriginalPrice),
			DiscountedPrice:  money(item.DiscountedPrice),
			DiscountTotal:    money(item.DiscountTotal),
			CommissionRate:   rate(item.Commission.Rate),
			CommissionAmount: money(item.Commission.Amount),
		}
		if item.ShippingKnown() {
			cost := money(*item.ShippingCost)
			dto.ShippingCost = &cost
		}
		out = append(out, dto)
	}
	return out
}

func toVendorGroupDTOs(groups []d.VendorGroup) []VendorGroupDTO {
	out := make([]VendorGroupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, VendorGroupDTO{
			VendorID:         g.VendorID,
			VendorName:       g.VendorName,
			Items:            toLineItemDTOs(g.Items),
			Subtotal:         money(g.Subtotal),
			DiscountTotal:    money(g.DiscountTotal),
			ShippingTotal:    money(g.ShippingTotal),
			CommissionTotal:  money(g.CommissionTotal),
			ShippingResolved: g.ShippingResolved,
		})
	}
	return out
}

func toDiscountDTOs(apps []d.DiscountApplication) []DiscountDTO {
	out := make([]DiscountDTO, 0, len(apps))
	for _, app := range apps {
		dto := DiscountDTO{
			SourceType:   string(app.SourceType),
			SourceID:     app.SourceID,
			Code:         app.Code,
			Name:         app.Name,
			DiscountType: string(app.DiscountType),
			Amount:       money(app.DiscountAmount),
			PlatformCost: money(app.PlatformCost),
			VendorCost:   money(app.VendorCost),
			AppliesTo:    app.AppliesTo,
			Excluded:     app.Excluded,
		}
		if dto.AppliesTo == nil {
			dto.AppliesTo = make([]string, 0)
		}
		if dto.Excluded == nil {
			dto.Excluded = make([]string, 0)
		}
		out = append(out, dto)
	}
	return out
}

func toRejectedDTOs(rejected []d.RejectedCoupon) []RejectedCouponDTO {
	out := make([]RejectedCouponDTO, 0, len(rejected))
	for _, r := range rejected {
		out = append(out, RejectedCouponDTO{Code: r.Code, Reason: string(r.Reason)})
	}
	return out
}

func toCalculateTotalsResponse(q *checkout.Quote) CalculateTotalsResponseDTO {
	return CalculateTotalsResponseDTO{
		Success:              true,
		VendorGroups:         toVendorGroupDTOs(q.Groups),
		Totals:               toTotalsDTO(q.Totals),
		ItemsWithCommissions: toLineItemDTOs(q.Items),
		Discounts:            toDiscountDTOs(q.Discounts),
		RejectedCoupons:      toRejectedDTOs(q.Rejected),
	}
}

func toTaxInfoDTO(rec *d.TaxRecord) *TaxInfoDTO {
	if rec == nil {
		return nil
	}
	breakdown := make([]TaxBreakdownDTO, 0, len(rec.Breakdown))
	for _, b := range rec.Breakdown {
		breakdown = append(breakdown, TaxBreakdownDTO{
			Jurisdiction: b.Jurisdiction,
			TaxType:      b.TaxType,
			Rate:         rate(b.Rate),
			Amount:       money(b.Amount),
		})
	}
	return &TaxInfoDTO{
		CalculationID: rec.TaxProviderID,
		TaxableAmount: money(rec.TaxableAmount),
		TaxAmount:     money(rec.TaxCollected),
		Breakdown:     breakdown,
	}
}

func toOrderItemDTOs(items []d.OrderItem) []OrderItemDTO {
	out := make([]OrderItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, OrderItemDTO{
			ID:               item.ID,
			LineItemID:       item.LineItemID,
			ProductID:        item.ProductID,
			VendorID:         item.VendorID,
			VendorName:       item.VendorName,
			Title:            item.Title,
			Quantity:         item.Quantity,
			UnitPrice:        money(item.UnitPrice),
			OriginalPrice:    money(item.OriginalPrice),
			Price:            money(item.Price),
			DiscountAmount:   money(item.DiscountAmount),
			CommissionRate:   rate(item.CommissionRate),
			CommissionAmount: money(item.CommissionAmount),
			ShippingCost:     money(item.ShippingCost),
			Status:           string(item.Status),
		})
	}
	return out
}

func toOrderDTO(o *d.Order) OrderDTO {
	return OrderDTO{
		ID:                    o.ID.String(),
		UserID:                o.UserID,
		Status:                o.Status.String(),
		Subtotal:              money(o.Subtotal),
		DiscountTotal:         money(o.DiscountTotal),
		ShippingTotal:         money(o.ShippingTotal),
		TaxAmount:             money(o.TaxAmount),
		PlatformFeeAmount:     money(o.PlatformFeeAmount),
		TotalAmount:           money(o.TotalAmount),
		Currency:              o.Currency,
		StripePaymentIntentID: o.PaymentIntentID,
		ShippingAddress:       o.ShippingAddress,
		BillingAddress:        o.BillingAddress,
		Items:                 toOrderItemDTOs(o.Items),
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

// toOrderHistoryDTO groups the order's items by vendor in order of first appearance.
func toOrderHistoryDTO(o *d.Order) OrderHistoryDTO {
	dto := OrderHistoryDTO{OrderDTO: toOrderDTO(o), Vendors: make([]OrderVendorDTO, 0)}
	index := make(map[int64]int)
	for _, item := range dto.Items {
		i, ok := index[item.VendorID]
		if !ok {
			i = len(dto.Vendors)
			index[item.VendorID] = i
			dto.Vendors = append(dto.Vendors, OrderVendorDTO{VendorID: item.VendorID, VendorName: item.VendorName})
		}
		dto.Vendors[i].Items = append(dto.Vendors[i].Items, item)
	}
	return dto
}
