package discount

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/logger"
	"github.com/fjod/go_cart/marketplace-checkout/internal/metrics"
	"github.com/fjod/go_cart/marketplace-checkout/internal/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var DefaultFloor = decimal.RequireFromString("0.03")

// Source loads discount candidates.
type Source interface {
	ActiveSales(ctx context.Context, userID int64, now time.Time) ([]d.Discount, error)
	AcceptedPromotions(ctx context.Context, userID int64, productIDs []int64, now time.Time) ([]d.Discount, error)
	CouponsByCode(ctx context.Context, userID int64, codes []string) ([]d.Discount, error)
}

type Result struct {
	Items        []d.DiscountedLineItem
	Applications []d.DiscountApplication
	Rejected     []d.RejectedCoupon
	// Exclusions lists every (discount, line item) pair skipped to keep the commission floor.
	Exclusions []Exclusion
}

type Exclusion struct {
	SourceType d.SourceType
	SourceID   int64
	LineItemID string
}

// TotalDiscount sums all committed discount amounts.
func (r *Result) TotalDiscount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.DiscountTotal)
	}
	return total
}

type Engine struct {
	source  Source
	floor   decimal.Decimal
	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewEngine(source Source, floor decimal.Decimal, log *zap.Logger, m *metrics.Metrics) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		source:  source,
		floor:   floor,
		now:     time.Now,
		log:     log,
		metrics: m,
	}
}

// Apply loads the sales, promotions and requested coupons for the cart and applies them.
// rates maps line item id to the commission rate in percent.
func (e *Engine) Apply(
	ctx context.Context,
	cc d.CheckoutContext,
	items []d.PricedLineItem,
	rates map[string]decimal.Decimal,
	couponCodes []string) (*Result, error) {

	ctx, span := telemetry.StartStage(ctx, "apply_discounts",
		attribute.Int("items", len(items)),
		attribute.Int("coupons", len(couponCodes)))
	defer span.End()

	now := e.now()
	codes := normalizeCodes(couponCodes)

	sales, err := e.source.ActiveSales(ctx, cc.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}

	productIDs := make([]int64, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	promotions, err := e.source.AcceptedPromotions(ctx, cc.UserID, productIDs, now)
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}

	var coupons []d.Discount
	if len(codes) > 0 {
		coupons, err = e.source.CouponsByCode(ctx, cc.UserID, codes)
		if err != nil {
			return nil, fmt.Errorf("load coupons: %w", err)
		}
	}

	candidates := make([]d.Discount, 0, len(sales)+len(promotions)+len(coupons))
	candidates = append(candidates, sales...)
	candidates = append(candidates, promotions...)
	candidates = append(candidates, coupons...)

	res, err := Compute(items, rates, candidates, codes, now, e.floor)
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx, e.log)
	for _, ex := range res.Exclusions {
		e.metrics.FloorExclusion(string(ex.SourceType), 1)
		log.Debug("discount excluded by commission floor",
			zap.String("source_type", string(ex.SourceType)),
			zap.Int64("source_id", ex.SourceID),
			zap.String("line_item_id", ex.LineItemID))
	}
	for _, rej := range res.Rejected {
		log.Info("coupon rejected",
			zap.Int64("user_id", cc.UserID),
			zap.String("code", rej.Code),
			zap.String("reason", string(rej.Reason)))
	}
	return res, nil
}

type appKey struct {
	source d.SourceType
	id     int64
}

// Compute applies candidates to items in the fixed order sales, promotions, coupons, each on the
// running price left by the previous ones. A discount is skipped for an item when it would push
// the item's net commission below floor; the item keeps every other discount.
func Compute(
	items []d.PricedLineItem,
	rates map[string]decimal.Decimal,
	candidates []d.Discount,
	requestedCodes []string,
	now time.Time,
	floor decimal.Decimal) (*Result, error) {

	for _, item := range items {
		if _, ok := rates[item.LineItemID]; !ok {
			return nil, fmt.Errorf("no commission rate for line item %s", item.LineItemID)
		}
	}

	running := make([]decimal.Decimal, len(items))
	funded := make([]decimal.Decimal, len(items))
	subtotal := decimal.Zero
	for i, item := range items {
		running[i] = item.Price()
		funded[i] = decimal.Zero
		subtotal = subtotal.Add(running[i])
	}

	ordered := make([]d.Discount, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SourceType.Rank() != ordered[j].SourceType.Rank() {
			return ordered[i].SourceType.Rank() < ordered[j].SourceType.Rank()
		}
		return ordered[i].ID < ordered[j].ID
	})

	res := &Result{Items: make([]d.DiscountedLineItem, len(items))}
	foundCodes := make(map[string]bool, len(requestedCodes))
	apps := make(map[appKey]*d.DiscountApplication)
	var order []appKey

	for _, disc := range ordered {
		isCoupon := disc.SourceType == d.SourceCoupon
		if isCoupon {
			code := strings.ToUpper(disc.Code)
			if foundCodes[code] {
				continue
			}
			foundCodes[code] = true
		}

		if reason := validate(disc, subtotal, now); reason != "" {
			if isCoupon {
				res.Rejected = append(res.Rejected, d.RejectedCoupon{Code: disc.Code, Reason: reason})
			}
			continue
		}

		key := appKey{source: disc.SourceType, id: disc.ID}
		app, ok := apps[key]
		if !ok {
			app = &d.DiscountApplication{
				SourceType:     disc.SourceType,
				SourceID:       disc.ID,
				Code:           disc.Code,
				Name:           disc.Name,
				DiscountType:   disc.DiscountType,
				DiscountAmount: decimal.Zero,
				PlatformCost:   decimal.Zero,
				VendorCost:     decimal.Zero,
			}
			apps[key] = app
			order = append(order, key)
		}

		eligible := 0
		for i, item := range items {
			if !disc.AppliesToItem(item) || !running[i].IsPositive() {
				continue
			}
			eligible++

			amt := amountFor(disc, running[i])
			if !amt.IsPositive() {
				continue
			}
			platformCost := d.Round2(amt.Mul(disc.PlatformShare))
			vendorCost := amt.Sub(platformCost)
			newPrice := running[i].Sub(amt)
			newFunded := funded[i].Add(platformCost)

			if !floorHolds(newPrice, rates[item.LineItemID], newFunded, floor) {
				app.Excluded = append(app.Excluded, item.LineItemID)
				res.Exclusions = append(res.Exclusions, Exclusion{
					SourceType: disc.SourceType,
					SourceID:   disc.ID,
					LineItemID: item.LineItemID,
				})
				continue
			}

			running[i] = newPrice
			funded[i] = newFunded
			app.Allocations = append(app.Allocations, d.DiscountAllocation{
				LineItemID:   item.LineItemID,
				Amount:       amt,
				PlatformCost: platformCost,
				VendorCost:   vendorCost,
			})
			app.AppliesTo = append(app.AppliesTo, item.LineItemID)
			app.DiscountAmount = app.DiscountAmount.Add(amt)
			app.PlatformCost = app.PlatformCost.Add(platformCost)
			app.VendorCost = app.VendorCost.Add(vendorCost)
		}

		if isCoupon && len(app.Allocations) == 0 {
			reason := d.RejectNotApplicable
			if eligible > 0 && len(app.Excluded) > 0 {
				reason = d.RejectCommissionFloor
			}
			res.Rejected = append(res.Rejected, d.RejectedCoupon{Code: disc.Code, Reason: reason})
		}
	}

	for _, code := range requestedCodes {
		if !foundCodes[code] {
			res.Rejected = append(res.Rejected, d.RejectedCoupon{Code: code, Reason: d.RejectNotFound})
		}
	}

	for i, item := range items {
		original := item.Price()
		res.Items[i] = d.DiscountedLineItem{
			PricedLineItem:  item,
			OriginalPrice:   original,
			DiscountedPrice: running[i],
			DiscountTotal:   original.Sub(running[i]),
			PlatformFunded:  funded[i],
		}
	}
	for _, key := range order {
		app := apps[key]
		if len(app.Allocations) > 0 {
			res.Applications = append(res.Applications, *app)
		}
	}
	return res, nil
}

func normalizeCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
