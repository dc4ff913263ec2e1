package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/logger"
	"github.com/fjod/go_cart/marketplace-checkout/internal/metrics"
	r "github.com/fjod/go_cart/marketplace-checkout/internal/repository"
	"github.com/fjod/go_cart/marketplace-checkout/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	customerStage = "payment_customer"
	platformTag   = "marketplace"
)

var ErrInvalidAmount = errors.New("payment amount must be positive")

// Processor is the external payment processor.
type Processor interface {
	CreateOrGetCustomer(ctx context.Context, customer d.Customer) (string, error)
	UpdateCustomerAddress(ctx context.Context, customerID string, address d.Address) error
	CreatePaymentIntent(ctx context.Context, params d.PaymentIntentParams) (*d.PaymentIntentRef, error)
}

// CustomerStore maps buyers to their processor customer ids.
type CustomerStore interface {
	GetCustomerID(ctx context.Context, userID int64) (string, error)
	SaveCustomerID(ctx context.Context, userID int64, customerID string) error
}

type Orchestrator struct {
	processor Processor
	customers CustomerStore
	timeout   time.Duration
	currency  string
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewOrchestrator(
	processor Processor,
	customers CustomerStore,
	timeout time.Duration,
	currency string,
	log *zap.Logger,
	m *metrics.Metrics) *Orchestrator {

	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		processor: processor,
		customers: customers,
		timeout:   timeout,
		currency:  currency,
		log:       log,
		metrics:   m,
	}
}

// ResolveCustomer finds or creates the buyer's processor customer and refreshes its billing
// address. Every failure here is soft: an empty customer id means the intent is created
// without a saved customer.
func (o *Orchestrator) ResolveCustomer(ctx context.Context, cc d.CheckoutContext, order *d.Order, billing d.Address) d.StageResult[string] {
	ctx, span := telemetry.StartStage(ctx, "resolve_customer", attribute.Int64("user_id", cc.UserID))
	defer span.End()

	customerID, err := o.customers.GetCustomerID(ctx, cc.UserID)
	if err != nil && !errors.Is(err, r.ErrCustomerNotFound) {
		span.SetStatus(codes.Error, "customer lookup failed")
		return o.degrade(ctx, order, "", fmt.Errorf("load customer: %w", err))
	}

	if customerID == "" {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		customerID, err = o.processor.CreateOrGetCustomer(callCtx, d.Customer{
			UserID: cc.UserID,
			Email:  cc.Email,
			Name:   cc.Name,
		})
		cancel()
		if err != nil {
			span.SetStatus(codes.Error, "customer create failed")
			return o.degrade(ctx, order, "", fmt.Errorf("create customer: %w", err))
		}
		if err := o.customers.SaveCustomerID(ctx, cc.UserID, customerID); err != nil {
			return o.degrade(ctx, order, customerID, fmt.Errorf("save customer: %w", err))
		}
	}

	if !billing.IsZero() {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		err := o.processor.UpdateCustomerAddress(callCtx, customerID, billing)
		cancel()
		if err != nil {
			return o.degrade(ctx, order, customerID, fmt.Errorf("update customer address: %w", err))
		}
	}
	return d.Ok(customerID)
}

func (o *Orchestrator) degrade(ctx context.Context, order *d.Order, customerID string, err error) d.StageResult[string] {
	logger.WithContext(ctx, o.log).Warn("payment customer unavailable, continuing",
		zap.String("stage", customerStage),
		zap.String("order_id", order.ID.String()),
		zap.Int64("user_id", order.UserID),
		zap.Error(err))
	o.metrics.SoftFailure(customerStage)
	return d.Degraded(customerID, &d.SoftError{Stage: customerStage, OrderID: order.ID, Err: err})
}

// CreateIntent opens a payment intent for the order's tax-inclusive total. The order id is the
// idempotency key, so a retried request yields the same intent.
func (o *Orchestrator) CreateIntent(
	ctx context.Context,
	order *d.Order,
	customerID string,
	taxCalculationID string,
	vendorCount int) (*d.PaymentIntentRef, error) {

	ctx, span := telemetry.StartStage(ctx, "create_payment_intent", attribute.String("order_id", order.ID.String()))
	defer span.End()

	amount := d.ToCents(order.TotalAmount)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	currency := order.Currency
	if currency == "" {
		currency = o.currency
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	intent, err := o.processor.CreatePaymentIntent(callCtx, d.PaymentIntentParams{
		OrderID:    order.ID,
		Amount:     amount,
		Currency:   currency,
		CustomerID: customerID,
		Metadata: map[string]string{
			"order_id":           order.ID.String(),
			"user_id":            strconv.FormatInt(order.UserID, 10),
			"vendor_count":       strconv.Itoa(vendorCount),
			"tax_calculation_id": taxCalculationID,
			"platform":           platformTag,
		},
		IdempotencyKey: order.ID.String(),
	})
	if err != nil {
		span.SetStatus(codes.Error, "intent failed")
		o.metrics.IntentFailure()
		logger.WithContext(ctx, o.log).Error("payment intent failed",
			zap.String("order_id", order.ID.String()),
			zap.Int64("amount", amount),
			zap.Error(err))
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return intent, nil
}
