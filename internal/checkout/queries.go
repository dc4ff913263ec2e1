package checkout

import (
	"context"
	"errors"
	"fmt"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	r "github.com/fjod/go_cart/marketplace-checkout/internal/repository"
	"github.com/google/uuid"
)

// PaymentStatus returns the order header for its owner or an admin.
func (s *Service) PaymentStatus(ctx context.Context, cc d.CheckoutContext, orderID uuid.UUID) (*d.Order, error) {
	return s.GetOrder(ctx, cc, orderID)
}

func (s *Service) GetOrder(ctx context.Context, cc d.CheckoutContext, orderID uuid.UUID) (*d.Order, error) {
	order, err := s.Orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, r.ErrOrderNotFound) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if !cc.CanReadOrder(order.UserID) {
		return nil, ErrAccessDenied
	}
	return order, nil
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ListOrders returns one page of the caller's own orders, newest first.
func (s *Service) ListOrders(ctx context.Context, cc d.CheckoutContext, page, limit int, status *d.OrderStatus) (*d.OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if status != nil && !status.IsValid() {
		return nil, validation("unknown order status %q", *status)
	}

	res, err := s.Orders.ListOrdersByUser(ctx, d.OrderFilter{
		UserID: cc.UserID,
		Status: status,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return res, nil
}
