package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/logger"
	r "github.com/fjod/go_cart/marketplace-checkout/internal/repository"
	"github.com/fjod/go_cart/marketplace-checkout/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const EventOrderPaid = "order.paid"

type ConfirmResult struct {
	OrderID uuid.UUID
	Status  d.OrderStatus
}

type orderPaidEvent struct {
	OrderID         string            `json:"order_id"`
	UserID          int64             `json:"user_id"`
	PaymentIntentID string            `json:"payment_intent_id"`
	TotalAmount     string            `json:"total_amount"`
	Currency        string            `json:"currency"`
	Discounts       []paidDiscountRef `json:"discounts"`
	PaidAt          time.Time         `json:"paid_at"`
}

// paidDiscountRef lets consumers of the event count discount usage.
type paidDiscountRef struct {
	SourceType string `json:"source_type"`
	SourceID   int64  `json:"source_id"`
	Code       string `json:"code,omitempty"`
	Amount     string `json:"amount"`
}

// ConfirmPayment records a client-reported payment success. Repeating it with the same intent is
// safe at every step: the order is marked paid once, the tax is committed once and the cart is
// cleared once.
func (s *Service) ConfirmPayment(ctx context.Context, cc d.CheckoutContext, orderID uuid.UUID, paymentIntentID string) (*ConfirmResult, error) {
	ctx, span := telemetry.StartStage(ctx, "confirm_payment", attribute.String("order_id", orderID.String()))
	defer span.End()

	if paymentIntentID == "" {
		return nil, validation("payment_intent_id is required")
	}

	order, err := s.Orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, r.ErrOrderNotFound) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.UserID != cc.UserID {
		return nil, ErrAccessDenied
	}

	log := logger.WithContext(ctx, s.log).With(
		zap.String("order_id", orderID.String()),
		zap.String("payment_intent_id", paymentIntentID))

	if order.Status == d.OrderStatusPending {
		payload, err := s.paidEvent(ctx, order, paymentIntentID)
		if err != nil {
			return nil, err
		}
		err = s.Orders.MarkPaid(ctx, order.ID, paymentIntentID, EventOrderPaid, payload)
		if errors.Is(err, r.ErrStatusChanged) {
			// A concurrent confirm won; it owns the rest of the work.
			current, err := s.Orders.GetOrderByID(ctx, orderID)
			if err != nil {
				return nil, fmt.Errorf("reload order: %w", err)
			}
			if !samePaymentIntent(current, paymentIntentID) {
				return nil, ErrConflict
			}
			return &ConfirmResult{OrderID: orderID, Status: current.Status}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("mark order paid: %w", err)
		}
		s.metrics.PaymentConfirmed()
		log.Info("order paid")
		order.Status = d.OrderStatusPaid
		order.PaymentIntentID = &paymentIntentID
	}

	if !samePaymentIntent(order, paymentIntentID) {
		log.Warn("confirm with a different payment intent rejected")
		return nil, ErrConflict
	}
	if order.Status == d.OrderStatusConfirmed {
		return &ConfirmResult{OrderID: orderID, Status: order.Status}, nil
	}

	status := d.OrderStatusConfirmed
	if err := s.finish(ctx, order); err != nil {
		log.Warn("order left paid, will be finished later", zap.Error(err))
		status = d.OrderStatusPaid
	}
	return &ConfirmResult{OrderID: orderID, Status: status}, nil
}

// FinishPaidOrder completes an order that was paid but never confirmed.
func (s *Service) FinishPaidOrder(ctx context.Context, order *d.Order) error {
	if order.Status != d.OrderStatusPaid {
		return nil
	}
	return s.finish(ctx, order)
}

// finish commits the tax, clears the cart and confirms a paid order. Tax problems never block it.
// Concurrent calls for one order share a single run.
func (s *Service) finish(ctx context.Context, order *d.Order) error {
	_, err, _ := s.finishing.Do(order.ID.String(), func() (any, error) {
		return nil, s.finishOnce(ctx, order.ID)
	})
	if err != nil {
		return err
	}
	order.Status = d.OrderStatusConfirmed
	return nil
}

func (s *Service) finishOnce(ctx context.Context, orderID uuid.UUID) error {
	log := logger.WithContext(ctx, s.log).With(zap.String("order_id", orderID.String()))

	order, err := s.Orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("reload order: %w", err)
	}
	switch order.Status {
	case d.OrderStatusConfirmed:
		return nil
	case d.OrderStatusPaid:
	default:
		return fmt.Errorf("order is %s, expected %s", order.Status, d.OrderStatusPaid)
	}

	if err := s.Tax.Commit(ctx, order); err != nil {
		s.metrics.SoftFailure("tax_commit")
		log.Warn("stage degraded", zap.String("stage", "tax_commit"), zap.Error(err))
	}

	if err := s.Carts.ClearCart(ctx, order.UserID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	err = s.Orders.MarkConfirmed(ctx, orderID)
	if err != nil && !errors.Is(err, r.ErrStatusChanged) {
		return fmt.Errorf("mark order confirmed: %w", err)
	}
	log.Info("order confirmed")
	return nil
}

func (s *Service) paidEvent(ctx context.Context, order *d.Order, paymentIntentID string) ([]byte, error) {
	apps, err := s.Orders.ListOrderDiscounts(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load order discounts: %w", err)
	}

	event := orderPaidEvent{
		OrderID:         order.ID.String(),
		UserID:          order.UserID,
		PaymentIntentID: paymentIntentID,
		TotalAmount:     order.TotalAmount.StringFixed(2),
		Currency:        order.Currency,
		Discounts:       make([]paidDiscountRef, 0, len(apps)),
		PaidAt:          time.Now().UTC(),
	}
	for _, app := range apps {
		event.Discounts = append(event.Discounts, paidDiscountRef{
			SourceType: string(app.SourceType),
			SourceID:   app.SourceID,
			Code:       app.Code,
			Amount:     app.DiscountAmount.StringFixed(2),
		})
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", EventOrderPaid, err)
	}
	return payload, nil
}

func samePaymentIntent(order *d.Order, paymentIntentID string) bool {
	return order.PaymentIntentID != nil && *order.PaymentIntentID == paymentIntentID
}
