package tax

import (
	"context"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/logger"
	"github.com/fjod/go_cart/marketplace-checkout/internal/metrics"
	r "github.com/fjod/go_cart/marketplace-checkout/internal/repository"
	"github.com/fjod/go_cart/marketplace-checkout/internal/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const stage = "tax"

// Provider is the external tax engine.
type Provider interface {
	Calculate(ctx context.Context, items []d.TaxLineItem, address d.Address) (*d.TaxCalculation, error)
	Commit(ctx context.Context, calculationID, reference string) (string, error)
}

type Store interface {
	SaveTaxRecord(ctx context.Context, rec *d.TaxRecord) error
	GetTaxRecord(ctx context.Context, orderID uuid.UUID) (*d.TaxRecord, error)
	LinkTaxTransaction(ctx context.Context, orderID uuid.UUID, transactionID string) (bool, error)
	VoidTaxRecord(ctx context.Context, orderID uuid.UUID) error
}

// Orchestrator prices tax for a pending order. Tax failures never block a checkout:
// the order goes ahead untaxed and the failure is logged for reconciliation.
type Orchestrator struct {
	provider Provider
	store    Store
	timeout  time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewOrchestrator(provider Provider, store Store, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		provider: provider,
		store:    store,
		timeout:  timeout,
		log:      log,
		metrics:  m,
	}
}

// Calculate asks the provider for the order's tax and stores it. The caller folds the tax into the
// order total. On any failure the result is degraded with a nil record.
func (o *Orchestrator) Calculate(ctx context.Context, order *d.Order, address d.Address) d.StageResult[*d.TaxRecord] {
	ctx, span := telemetry.StartStage(ctx, "calculate_tax", attribute.String("order_id", order.ID.String()))
	defer span.End()

	items := make([]d.TaxLineItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, d.TaxLineItem{
			Reference: item.LineItemID,
			Amount:    item.Price,
			Quantity:  item.Quantity,
		})
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	calc, err := o.provider.Calculate(callCtx, items, address)
	cancel()
	if err != nil {
		span.SetStatus(codes.Error, "provider failed")
		return o.degrade(ctx, order.ID, fmt.Errorf("calculate: %w", err))
	}
	if calc.TaxAmount.IsNegative() {
		return o.degrade(ctx, order.ID, fmt.Errorf("provider returned negative tax %s", calc.TaxAmount))
	}

	rec := &d.TaxRecord{
		OrderID:       order.ID,
		TaxProviderID: calc.ID,
		TaxableAmount: d.Round2(calc.TaxableAmount),
		TaxCollected:  d.Round2(calc.TaxAmount),
		Breakdown:     calc.Breakdown,
		CustomerState: address.State,
		CustomerZip:   address.PostalCode,
		Status:        d.TaxRecordCalculated,
	}
	if err := o.store.SaveTaxRecord(ctx, rec); err != nil {
		span.SetStatus(codes.Error, "store failed")
		return o.degrade(ctx, order.ID, fmt.Errorf("save tax record: %w", err))
	}
	return d.Ok(rec)
}

func (o *Orchestrator) degrade(ctx context.Context, orderID uuid.UUID, err error) d.StageResult[*d.TaxRecord] {
	soft := &d.SoftError{Stage: stage, OrderID: orderID, Err: err}
	logger.WithContext(ctx, o.log).Warn("tax unavailable, continuing without tax",
		zap.String("stage", stage),
		zap.String("order_id", orderID.String()),
		zap.Error(err))
	o.metrics.SoftFailure(stage)
	return d.Degraded[*d.TaxRecord](nil, soft)
}

// Void marks the order's tax record as never charged, so Commit leaves it alone.
func (o *Orchestrator) Void(ctx context.Context, orderID uuid.UUID) error {
	if err := o.store.VoidTaxRecord(ctx, orderID); err != nil {
		return fmt.Errorf("void tax record: %w", err)
	}
	return nil
}

// Commit turns the order's tax calculation into a provider transaction and links it.
// It is a no-op when the order has no tax record, the record is void or already linked.
// A record whose tax differs from the tax charged on the order is voided instead.
func (o *Orchestrator) Commit(ctx context.Context, order *d.Order) error {
	ctx, span := telemetry.StartStage(ctx, "commit_tax", attribute.String("order_id", order.ID.String()))
	defer span.End()

	log := logger.WithContext(ctx, o.log).With(zap.String("order_id", order.ID.String()))

	rec, err := o.store.GetTaxRecord(ctx, order.ID)
	if errors.Is(err, r.ErrTaxRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load tax record: %w", err)
	}
	if rec.IsCommitted() {
		return nil
	}
	if rec.Status != d.TaxRecordCalculated {
		log.Info("tax record not committable", zap.String("status", string(rec.Status)))
		return nil
	}
	if !rec.TaxCollected.Equal(order.TaxAmount) {
		log.Warn("tax record does not match the charged tax, voiding",
			zap.String("record_tax", rec.TaxCollected.StringFixed(2)),
			zap.String("order_tax", order.TaxAmount.StringFixed(2)))
		return o.Void(ctx, order.ID)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	transactionID, err := o.provider.Commit(callCtx, rec.TaxProviderID, order.ID.String())
	if err != nil {
		return fmt.Errorf("commit tax calculation %s: %w", rec.TaxProviderID, err)
	}

	linked, err := o.store.LinkTaxTransaction(ctx, order.ID, transactionID)
	if err != nil {
		return fmt.Errorf("link tax transaction: %w", err)
	}
	if !linked {
		log.Info("tax transaction already linked")
	}
	return nil
}

// TaxAmount is the tax carried by a stage result, zero when degraded.
func TaxAmount(res d.StageResult[*d.TaxRecord]) decimal.Decimal {
	if res.Value == nil {
		return decimal.Zero
	}
	return res.Value.TaxCollected
}
