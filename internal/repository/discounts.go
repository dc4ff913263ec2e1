package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type discountRow struct {
	ID                int64               `db:"id"`
	Code              sql.NullString      `db:"code"`
	Name              string              `db:"name"`
	SourceType        string              `db:"source_type"`
	CouponType        string              `db:"coupon_type"`
	DiscountType      string              `db:"discount_type"`
	Value             decimal.Decimal     `db:"discount_value"`
	MaxDiscountAmount decimal.NullDecimal `db:"max_discount_amount"`
	MinOrderAmount    decimal.Decimal     `db:"min_order_amount"`
	VendorID          sql.NullInt64       `db:"vendor_id"`
	ValidFrom         time.Time           `db:"valid_from"`
	ValidUntil        sql.NullTime        `db:"valid_until"`
	IsActive          bool                `db:"is_active"`
	UsageLimitPerUser sql.NullInt32       `db:"usage_limit_per_user"`
	TotalUsageLimit   sql.NullInt32       `db:"total_usage_limit"`
	CurrentUsage      int                 `db:"current_usage_count"`
	UserUsage         int                 `db:"user_usage"`
	ProductIDs        pq.Int64Array       `db:"product_ids"`
}

const discountColumns = `d.id, d.code, d.name, d.source_type, d.coupon_type, d.discount_type, d.discount_value,
	       d.max_discount_amount, d.min_order_amount, d.vendor_id, d.valid_from, d.valid_until, d.is_active,
	       d.usage_limit_per_user, d.total_usage_limit, d.current_usage_count,
	       (SELECT COUNT(*) FROM discount_usage u WHERE u.discount_id = d.id AND u.user_id = $1) AS user_usage,
	       COALESCE(ARRAY(SELECT dp.product_id FROM discount_products dp WHERE dp.discount_id = d.id ORDER BY dp.product_id), '{}') AS product_ids`

func (row discountRow) toDomain() d.Discount {
	disc := d.Discount{
		ID:             row.ID,
		Code:           row.Code.String,
		Name:           row.Name,
		SourceType:     d.SourceType(row.SourceType),
		CouponType:     d.CouponType(row.CouponType),
		DiscountType:   d.DiscountType(row.DiscountType),
		Value:          row.Value,
		MinOrderAmount: row.MinOrderAmount,
		ValidFrom:      row.ValidFrom,
		IsActive:       row.IsActive,
		CurrentUsage:   row.CurrentUsage,
		UserUsage:      row.UserUsage,
		ProductIDs:     []int64(row.ProductIDs),
		PlatformShare:  platformShare(d.CouponType(row.CouponType)),
	}
	if row.MaxDiscountAmount.Valid {
		v := row.MaxDiscountAmount.Decimal
		disc.MaxDiscountAmount = &v
	}
	if row.VendorID.Valid {
		v := row.VendorID.Int64
		disc.VendorID = &v
	}
	if row.ValidUntil.Valid {
		v := row.ValidUntil.Time
		disc.ValidUntil = &v
	}
	if row.UsageLimitPerUser.Valid {
		v := int(row.UsageLimitPerUser.Int32)
		disc.UsageLimitPerUser = &v
	}
	if row.TotalUsageLimit.Valid {
		v := int(row.TotalUsageLimit.Int32)
		disc.TotalUsageLimit = &v
	}
	return disc
}

// platformShare is the fraction of a discount funded by the platform for a coupon type.
func platformShare(t d.CouponType) decimal.Decimal {
	switch t {
	case d.CouponSiteSale, d.CouponAdmin:
		return decimal.NewFromInt(1)
	default:
		return decimal.Zero
	}
}

// ActiveSales returns auto-applied sales live at now.
func (r *Repository) ActiveSales(ctx context.Context, userID int64, now time.Time) ([]d.Discount, error) {
	query := `SELECT ` + discountColumns + `
	          FROM discounts d
	          WHERE d.source_type = 'sale'
	            AND d.is_active
	            AND d.valid_from <= $2
	            AND (d.valid_until IS NULL OR d.valid_until >= $2)
	          ORDER BY d.id`

	var rows []discountRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, now); err != nil {
		return nil, fmt.Errorf("query active sales: %w", err)
	}
	return toDiscounts(rows), nil
}

// CouponsByCode looks codes up case-insensitively, including inactive and expired coupons.
func (r *Repository) CouponsByCode(ctx context.Context, userID int64, codes []string) ([]d.Discount, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	upper := make([]string, 0, len(codes))
	for _, c := range codes {
		upper = append(upper, strings.ToUpper(strings.TrimSpace(c)))
	}

	query := `SELECT ` + discountColumns + `
	          FROM discounts d
	          WHERE d.source_type = 'coupon' AND UPPER(d.code) = ANY($2)
	          ORDER BY d.id`

	var rows []discountRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, pq.Array(upper)); err != nil {
		return nil, fmt.Errorf("query coupons by code: %w", err)
	}
	return toDiscounts(rows), nil
}

func toDiscounts(rows []discountRow) []d.Discount {
	out := make([]d.Discount, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

type promotionRow struct {
	PromotionID       int64           `db:"promotion_id"`
	Name              string          `db:"name"`
	ProductID         int64           `db:"product_id"`
	VendorID          int64           `db:"vendor_id"`
	AdminPercent      decimal.Decimal `db:"admin_discount_percentage"`
	VendorPercent     decimal.Decimal `db:"vendor_discount_percentage"`
	ValidFrom         time.Time       `db:"valid_from"`
	ValidUntil        sql.NullTime    `db:"valid_until"`
	UsageLimitPerUser sql.NullInt32   `db:"usage_limit_per_user"`
	TotalUsageLimit   sql.NullInt32   `db:"total_usage_limit"`
	CurrentUsage      int             `db:"current_usage_count"`
	UserUsage         int             `db:"user_usage"`
}

// AcceptedPromotions returns one candidate per promoted product whose vendor accepted the invitation
// and whose product was approved. The customer discount is the admin plus the vendor percentage.
func (r *Repository) AcceptedPromotions(ctx context.Context, userID int64, productIDs []int64, now time.Time) ([]d.Discount, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	query := `SELECT p.id AS promotion_id, p.name, pp.product_id, pp.vendor_id,
	                 pp.admin_discount_percentage, pp.vendor_discount_percentage,
	                 p.valid_from, p.valid_until, p.usage_limit_per_user, p.total_usage_limit, p.current_usage_count,
	                 (SELECT COUNT(*) FROM promotion_usage u WHERE u.promotion_id = p.id AND u.user_id = $1) AS user_usage
	          FROM promotions p
	          JOIN promotion_products pp ON pp.promotion_id = p.id AND pp.approval_status = 'approved'
	          JOIN promotion_invitations pi ON pi.promotion_id = p.id AND pi.vendor_id = pp.vendor_id
	                                       AND pi.invitation_status = 'accepted'
	          WHERE p.status = 'active'
	            AND pp.product_id = ANY($2)
	            AND p.valid_from <= $3
	            AND (p.valid_until IS NULL OR p.valid_until >= $3)
	          ORDER BY p.id, pp.product_id`

	var rows []promotionRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, pq.Array(productIDs), now); err != nil {
		return nil, fmt.Errorf("query accepted promotions: %w", err)
	}

	out := make([]d.Discount, 0, len(rows))
	for _, row := range rows {
		total := row.AdminPercent.Add(row.VendorPercent)
		share := decimal.Zero
		if total.IsPositive() {
			share = row.AdminPercent.Div(total)
		}
		vendorID := row.VendorID
		disc := d.Discount{
			ID:            row.PromotionID,
			Name:          row.Name,
			SourceType:    d.SourcePromotion,
			CouponType:    d.CouponPromotion,
			DiscountType:  d.DiscountPercentage,
			Value:         total,
			PlatformShare: share,
			ProductIDs:    []int64{row.ProductID},
			VendorID:      &vendorID,
			ValidFrom:     row.ValidFrom,
			IsActive:      true,
			CurrentUsage:  row.CurrentUsage,
			UserUsage:     row.UserUsage,
		}
		if row.ValidUntil.Valid {
			v := row.ValidUntil.Time
			disc.ValidUntil = &v
		}
		if row.UsageLimitPerUser.Valid {
			v := int(row.UsageLimitPerUser.Int32)
			disc.UsageLimitPerUser = &v
		}
		if row.TotalUsageLimit.Valid {
			v := int(row.TotalUsageLimit.Int32)
			disc.TotalUsageLimit = &v
		}
		out = append(out, disc)
	}
	return out, nil
}
