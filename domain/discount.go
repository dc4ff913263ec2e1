package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceType orders discount application: sales first, then promotions, then coupons.
type SourceType string

const (
	SourceSale      SourceType = "sale"
	SourcePromotion SourceType = "promotion"
	SourceCoupon    SourceType = "coupon"
)

// Rank returns the application order of a source type.
func (s SourceType) Rank() int {
	switch s {
	case SourceSale:
		return 0
	case SourcePromotion:
		return 1
	case SourceCoupon:
		return 2
	default:
		return 3
	}
}

type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

type CouponType string

const (
	CouponSiteSale   CouponType = "site_sale"
	CouponAdmin      CouponType = "admin_coupon"
	CouponVendor     CouponType = "vendor_coupon"
	CouponPromotion  CouponType = "promotion"
	CouponVendorSale CouponType = "vendor_sale"
)

// Discount is a candidate discount loaded from a sale, promotion or coupon.
type Discount struct {
	ID                int64
	Code              string
	Name              string
	SourceType        SourceType
	CouponType        CouponType
	DiscountType      DiscountType
	Value             decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	// PlatformShare is the fraction in [0,1] of the discount paid by the platform.
	PlatformShare     decimal.Decimal
	ProductIDs        []int64
	VendorID          *int64
	ValidFrom         time.Time
	ValidUntil        *time.Time
	IsActive          bool
	UsageLimitPerUser *int
	TotalUsageLimit   *int
	CurrentUsage      int
	UserUsage         int
	MinOrderAmount    decimal.Decimal
}

// AppliesToItem reports whether the discount's scope covers the line item.
func (d Discount) AppliesToItem(item PricedLineItem) bool {
	if d.VendorID != nil && *d.VendorID != item.VendorID {
		return false
	}
	if len(d.ProductIDs) == 0 {
		return true
	}
	for _, id := range d.ProductIDs {
		if id == item.ProductID {
			return true
		}
	}
	return false
}

type DiscountAllocation struct {
	LineItemID   string          `json:"line_item_id"`
	Amount       decimal.Decimal `json:"amount"`
	PlatformCost decimal.Decimal `json:"platform_cost"`
	VendorCost   decimal.Decimal `json:"vendor_cost"`
}

// DiscountApplication records one discount committed to the cart.
type DiscountApplication struct {
	SourceType     SourceType
	SourceID       int64
	Code           string
	Name           string
	DiscountType   DiscountType
	DiscountAmount decimal.Decimal
	PlatformCost   decimal.Decimal
	VendorCost     decimal.Decimal
	AppliesTo      []string
	Allocations    []DiscountAllocation
	// Excluded lists line items skipped because the discount would breach the commission floor.
	Excluded []string
}

type RejectReason string

const (
	RejectNotFound        RejectReason = "not_found"
	RejectNotActive       RejectReason = "not_active"
	RejectExpired         RejectReason = "expired"
	RejectUsageLimit      RejectReason = "usage_limit_reached"
	RejectUserUsageLimit  RejectReason = "user_usage_limit_reached"
	RejectMinOrderNotMet  RejectReason = "min_order_not_met"
	RejectNotApplicable   RejectReason = "not_applicable"
	RejectCommissionFloor RejectReason = "commission_floor"
)

type RejectedCoupon struct {
	Code   string
	Reason RejectReason
}
