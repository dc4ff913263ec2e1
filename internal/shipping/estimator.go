package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/logger"
	"github.com/fjod/go_cart/marketplace-checkout/internal/metrics"
	"github.com/fjod/go_cart/marketplace-checkout/internal/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrNoDestination = errors.New("calculated shipping needs a destination address")

// RateProvider quotes the cost of shipping one package.
type RateProvider interface {
	Rate(ctx context.Context, origin, destination d.Address, pkg d.Package) (decimal.Decimal, error)
}

// Estimator prices shipping per line item. A failed lookup leaves the item's cost unknown
// instead of failing the cart.
type Estimator struct {
	provider    RateProvider
	timeout     time.Duration
	concurrency int
	log         *zap.Logger
	metrics     *metrics.Metrics
}

func NewEstimator(provider RateProvider, timeout time.Duration, concurrency int, log *zap.Logger, m *metrics.Metrics) *Estimator {
	if log == nil {
		log = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Estimator{
		provider:    provider,
		timeout:     timeout,
		concurrency: concurrency,
		log:         log,
		metrics:     m,
	}
}

// Estimate returns a copy of items with ShippingCost set where it could be determined.
func (e *Estimator) Estimate(ctx context.Context, items []d.PricedLineItem, destination d.Address) []d.PricedLineItem {
	ctx, span := telemetry.StartStage(ctx, "estimate_shipping", attribute.Int("items", len(items)))
	defer span.End()

	out := make([]d.PricedLineItem, len(items))
	copy(out, items)

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := range out {
		i := i
		g.Go(func() error {
			cost, err := e.estimateItem(ctx, out[i], destination)
			if err != nil {
				logger.WithContext(ctx, e.log).Warn("shipping estimate unavailable",
					zap.String("line_item_id", out[i].LineItemID),
					zap.Int64("product_id", out[i].ProductID),
					zap.Error(err))
				e.metrics.SoftFailure("shipping")
				out[i].ShippingCost = nil
				return nil
			}
			out[i].ShippingCost = &cost
			return nil
		})
	}
	// Failures are recorded per item, so Wait always returns nil.
	_ = g.Wait()

	return out
}

func (e *Estimator) estimateItem(ctx context.Context, item d.PricedLineItem, destination d.Address) (decimal.Decimal, error) {
	qty := decimal.NewFromInt(int64(item.Quantity))

	switch item.Shipping.Method {
	case d.ShippingFree, "":
		return decimal.Zero, nil
	case d.ShippingFlatRate:
		return d.Round2(item.Shipping.FlatRate.Mul(qty)), nil
	case d.ShippingCalculated:
		if destination.IsZero() {
			return decimal.Zero, ErrNoDestination
		}
		if e.provider == nil {
			return decimal.Zero, errors.New("no rate provider configured")
		}
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		rate, err := e.provider.Rate(ctx, item.Shipping.Origin, destination, item.Shipping.Package)
		if err != nil {
			return decimal.Zero, fmt.Errorf("rate lookup: %w", err)
		}
		if rate.IsNegative() {
			return decimal.Zero, fmt.Errorf("provider returned negative rate %s", rate)
		}
		return d.Round2(rate.Mul(qty)), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown shipping method %q", item.Shipping.Method)
	}
}
