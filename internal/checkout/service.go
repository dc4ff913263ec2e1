package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/catalog"
	"github.com/fjod/go_cart/marketplace-checkout/internal/commission"
	"github.com/fjod/go_cart/marketplace-checkout/internal/discount"
	"github.com/fjod/go_cart/marketplace-checkout/internal/logger"
	"github.com/fjod/go_cart/marketplace-checkout/internal/metrics"
	"github.com/fjod/go_cart/marketplace-checkout/internal/tax"
	"github.com/fjod/go_cart/marketplace-checkout/internal/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CartResolver interface {
	Resolve(ctx context.Context, cc d.CheckoutContext, refs []d.CartItemRef) ([]d.PricedLineItem, error)
}

type ShippingEstimator interface {
	Estimate(ctx context.Context, items []d.PricedLineItem, destination d.Address) []d.PricedLineItem
}

type RateResolver interface {
	Resolve(ctx context.Context, items []d.PricedLineItem) (map[string]decimal.Decimal, error)
}

type DiscountEngine interface {
	Apply(ctx context.Context, cc d.CheckoutContext, items []d.PricedLineItem,
		rates map[string]decimal.Decimal, couponCodes []string) (*discount.Result, error)
}

type TaxOrchestrator interface {
	Calculate(ctx context.Context, order *d.Order, address d.Address) d.StageResult[*d.TaxRecord]
	Commit(ctx context.Context, order *d.Order) error
	Void(ctx context.Context, orderID uuid.UUID) error
}

type PaymentOrchestrator interface {
	ResolveCustomer(ctx context.Context, cc d.CheckoutContext, order *d.Order, billing d.Address) d.StageResult[string]
	CreateIntent(ctx context.Context, order *d.Order, customerID, taxCalculationID string, vendorCount int) (*d.PaymentIntentRef, error)
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *d.Order, discounts []d.DiscountApplication) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*d.Order, error)
	ListOrdersByUser(ctx context.Context, filter d.OrderFilter) (*d.OrderPage, error)
	ListOrderDiscounts(ctx context.Context, orderID uuid.UUID) ([]d.DiscountApplication, error)
	ApplyOrderTax(ctx context.Context, orderID uuid.UUID, taxAmount, totalAmount decimal.Decimal) error
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string, eventType string, payload []byte) error
	MarkConfirmed(ctx context.Context, orderID uuid.UUID) error
}

type CartClearer interface {
	ClearCart(ctx context.Context, userID int64) error
}

// Dependencies wires the pipeline stages. Every stage can be swapped independently.
type Dependencies struct {
	Resolver  CartResolver
	Shipping  ShippingEstimator
	Rates     RateResolver
	Discounts DiscountEngine
	Tax       TaxOrchestrator
	Payment   PaymentOrchestrator
	Orders    OrderStore
	Carts     CartClearer
}

type Service struct {
	Dependencies
	currency  string
	log       *zap.Logger
	metrics   *metrics.Metrics
	finishing singleflight.Group
}

func NewService(deps Dependencies, currency string, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		Dependencies: deps,
		currency:     currency,
		log:          log,
		metrics:      m,
	}
}

type TotalsRequest struct {
	Items           []d.CartItemRef
	ShippingAddress d.Address
	CouponCodes     []string
}

// Quote is a fully priced cart. Computing it has no side effects.
type Quote struct {
	Items     []d.CommissionedLineItem
	Groups    []d.VendorGroup
	Totals    d.Totals
	Discounts []d.DiscountApplication
	Rejected  []d.RejectedCoupon
}

// CalculateTotals prices the cart for display. Unknown shipping is reported, not rejected.
func (s *Service) CalculateTotals(ctx context.Context, cc d.CheckoutContext, req TotalsRequest) (*Quote, error) {
	ctx, span := telemetry.StartStage(ctx, "calculate_totals", attribute.Int64("user_id", cc.UserID))
	defer span.End()

	return s.quote(ctx, cc, req.Items, req.ShippingAddress, req.CouponCodes)
}

func (s *Service) quote(
	ctx context.Context,
	cc d.CheckoutContext,
	refs []d.CartItemRef,
	destination d.Address,
	couponCodes []string) (*Quote, error) {

	priced, err := s.Resolver.Resolve(ctx, cc, refs)
	if err != nil {
		return nil, mapResolveError(err)
	}

	shipped := s.Shipping.Estimate(ctx, priced, destination)

	rates, err := s.Rates.Resolve(ctx, shipped)
	if err != nil {
		return nil, fmt.Errorf("resolve commission rates: %w", err)
	}

	res, err := s.Discounts.Apply(ctx, cc, shipped, rates, couponCodes)
	if err != nil {
		return nil, fmt.Errorf("apply discounts: %w", err)
	}

	items := commission.Calculate(res.Items, rates)
	return &Quote{
		Items:     items,
		Groups:    GroupByVendor(items),
		Totals:    ComputeTotals(items, decimal.Zero),
		Discounts: res.Applications,
		Rejected:  res.Rejected,
	}, nil
}

func mapResolveError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrEmptyCart),
		errors.Is(err, catalog.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrInvalidProduct):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	case errors.Is(err, catalog.ErrItemNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return fmt.Errorf("resolve cart: %w", err)
	}
}

type IntentRequest struct {
	Items           []d.CartItemRef
	ShippingAddress d.Address
	BillingAddress  d.Address
	CouponCodes     []string
}

type IntentResult struct {
	Order  *d.Order
	Intent *d.PaymentIntentRef
	Quote  *Quote
	Totals d.Totals
	// Tax is nil when the tax provider could not be used.
	Tax *d.TaxRecord
}

// CreatePaymentIntent prices the cart, writes the pending order, adds tax and opens a payment
// intent for the full amount. Tax and customer problems degrade the checkout; a failed intent
// fails it and leaves the pending order for reconciliation.
func (s *Service) CreatePaymentIntent(ctx context.Context, cc d.CheckoutContext, req IntentRequest) (*IntentResult, error) {
	ctx, span := telemetry.StartStage(ctx, "create_payment_intent_request", attribute.Int64("user_id", cc.UserID))
	defer span.End()

	if req.ShippingAddress.IsZero() {
		return nil, validation("shipping address is required")
	}
	billing := req.BillingAddress
	if billing.IsZero() {
		billing = req.ShippingAddress
	}

	q, err := s.quote(ctx, cc, req.Items, req.ShippingAddress, req.CouponCodes)
	if err != nil {
		return nil, err
	}
	if !q.Totals.ShippingResolved {
		return nil, validation("shipping could not be calculated for items %s", strings.Join(unresolvedShipping(q.Items), ", "))
	}
	if !q.Totals.TotalAmount.IsPositive() {
		return nil, validation("order total must be positive")
	}

	order := materialize(cc, q, s.currency, req.ShippingAddress, billing)
	if err := s.Orders.CreateOrder(ctx, order, q.Discounts); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.metrics.OrderCreated()
	log := logger.WithContext(ctx, s.log).With(zap.String("order_id", order.ID.String()))
	log.Info("pending order created",
		zap.Int64("user_id", cc.UserID),
		zap.Int("items", len(order.Items)),
		zap.String("subtotal", order.Subtotal.String()))

	taxRecord, totals := s.foldTax(ctx, order, q.Totals, billing)
	taxCalculationID := ""
	if taxRecord != nil {
		taxCalculationID = taxRecord.TaxProviderID
	}

	customer := s.Payment.ResolveCustomer(ctx, cc, order, billing)

	intent, err := s.Payment.CreateIntent(ctx, order, customer.Value, taxCalculationID, totals.VendorCount)
	if err != nil {
		log.Error("checkout failed at payment intent, order left pending", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpstreamHard, err)
	}

	return &IntentResult{
		Order:  order,
		Intent: intent,
		Quote:  q,
		Totals: totals,
		Tax:    taxRecord,
	}, nil
}

// foldTax calculates tax for the pending order and writes the tax-inclusive total back to it.
// Any failure leaves the order untaxed, so the stored total always matches the intent amount,
// and a tax record the order could not take is voided.
func (s *Service) foldTax(ctx context.Context, order *d.Order, base d.Totals, address d.Address) (*d.TaxRecord, d.Totals) {
	res := s.Tax.Calculate(ctx, order, address)
	totals := base.WithTax(tax.TaxAmount(res))
	if res.Value == nil {
		return nil, totals
	}

	if err := s.Orders.ApplyOrderTax(ctx, order.ID, totals.TaxAmount, totals.TotalAmount); err != nil {
		log := logger.WithContext(ctx, s.log).With(zap.String("stage", "tax"), zap.String("order_id", order.ID.String()))
		s.metrics.SoftFailure("tax")
		log.Warn("stage degraded", zap.Error(fmt.Errorf("store order tax: %w", err)))
		if err := s.Tax.Void(ctx, order.ID); err != nil {
			log.Warn("tax record left calculated for an untaxed order", zap.Error(err))
		}
		return nil, base.WithTax(decimal.Zero)
	}
	order.TaxAmount = totals.TaxAmount
	order.TotalAmount = totals.TotalAmount
	return res.Value, totals
}

func unresolvedShipping(items []d.CommissionedLineItem) []string {
	var ids []string
	for _, item := range items {
		if !item.ShippingKnown() {
			ids = append(ids, item.LineItemID)
		}
	}
	return ids
}
