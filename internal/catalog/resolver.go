package catalog

import (
	"context"
	"fmt"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Catalog returns the current data for the products that exist among ids.
type Catalog interface {
	GetProductsByIDs(ctx context.Context, ids []int64) ([]d.Product, error)
}

// Resolver turns cart references into priced line items using current catalog prices.
type Resolver struct {
	catalog Catalog
}

func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve fails as a whole when any product is missing or not purchasable.
// Line item ids are assigned in input order.
func (r *Resolver) Resolve(ctx context.Context, cc d.CheckoutContext, refs []d.CartItemRef) ([]d.PricedLineItem, error) {
	ctx, span := telemetry.StartStage(ctx, "resolve_cart",
		attribute.Int64("user_id", cc.UserID),
		attribute.Int("items", len(refs)))
	defer span.End()

	if len(refs) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]int64, 0, len(refs))
	seen := make(map[int64]struct{}, len(refs))
	for _, ref := range refs {
		if ref.ProductID <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidProduct, ref.ProductID)
		}
		if ref.Quantity < 1 {
			return nil, fmt.Errorf("%w: product %d has quantity %d", ErrInvalidQuantity, ref.ProductID, ref.Quantity)
		}
		if _, ok := seen[ref.ProductID]; !ok {
			seen[ref.ProductID] = struct{}{}
			ids = append(ids, ref.ProductID)
		}
	}

	products, err := r.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("get products: %w", err)
	}

	byID := make(map[int64]d.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]d.PricedLineItem, 0, len(refs))
	for i, ref := range refs {
		p, ok := byID[ref.ProductID]
		if !ok {
			return nil, &ItemNotFoundError{ProductID: ref.ProductID, Reason: "does not exist"}
		}
		if !p.Purchasable {
			return nil, &ItemNotFoundError{ProductID: ref.ProductID, Reason: "is not available for purchase"}
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("product %d has negative price %s", p.ID, p.Price)
		}

		items = append(items, d.PricedLineItem{
			LineItemID: fmt.Sprintf("li-%d", i),
			ProductID:  p.ID,
			VendorID:   p.VendorID,
			VendorName: p.VendorName,
			Title:      p.Title,
			CategoryID: p.CategoryID,
			Quantity:   ref.Quantity,
			UnitPrice:  d.Round2(p.Price),
			Shipping:   p.Shipping,
		})
	}
	return items, nil
}
