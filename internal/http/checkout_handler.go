package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/cart"
	"github.com/fjod/go_cart/marketplace-checkout/internal/checkout"
	"github.com/fjod/go_cart/marketplace-checkout/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutService interface {
	CalculateTotals(ctx context.Context, cc d.CheckoutContext, req checkout.TotalsRequest) (*checkout.Quote, error)
	CreatePaymentIntent(ctx context.Context, cc d.CheckoutContext, req checkout.IntentRequest) (*checkout.IntentResult, error)
	ConfirmPayment(ctx context.Context, cc d.CheckoutContext, orderID uuid.UUID, paymentIntentID string) (*checkout.ConfirmResult, error)
	PaymentStatus(ctx context.Context, cc d.CheckoutContext, orderID uuid.UUID) (*d.Order, error)
	GetOrder(ctx context.Context, cc d.CheckoutContext, orderID uuid.UUID) (*d.Order, error)
	ListOrders(ctx context.Context, cc d.CheckoutContext, page, limit int, status *d.OrderStatus) (*d.OrderPage, error)
}

// CartSource supplies the saved cart when a request carries no cart_items.
type CartSource interface {
	GetCart(ctx context.Context, userID int64) (*cart.Cart, error)
}

type CheckoutHandler struct {
	svc     CheckoutService
	carts   CartSource
	timeout time.Duration
	log     *zap.Logger
}

func NewCheckoutHandler(svc CheckoutService, carts CartSource, timeout time.Duration, log *zap.Logger) *CheckoutHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutHandler{
		svc:     svc,
		carts:   carts,
		timeout: timeout,
		log:     log,
	}
}

// POST /checkout/calculate-totals
func (h *CheckoutHandler) CalculateTotals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cc, ok := getCheckoutContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CalculateTotalsRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	refs, err := h.cartItems(ctx, cc, req.CartItems)
	if err != nil {
		handleServiceError(w, h.logger(ctx), err)
		return
	}

	var shippingAddress d.Address
	if req.ShippingAddress != nil {
		shippingAddress = *req.ShippingAddress
	}

	quote, err := h.svc.CalculateTotals(ctx, cc, checkout.TotalsRequest{
		Items:           refs,
		ShippingAddress: shippingAddress,
		CouponCodes:     req.AppliedCoupons,
	})
	if err != nil {
		handleServiceError(w, h.logger(ctx), err)
		return
	}

	respondJSON(w, http.StatusOK, toCalculateTotalsResponse(quote))
}

// POST /checkout/create-payment-intent
func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cc, ok := getCheckoutContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CreatePaymentIntentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ShippingInfo == nil {
		respondError(w, http.StatusBadRequest, "missing_shipping_info", "shipping_info is required")
		return
	}

	refs, err := h.cartItems(ctx, cc, req.CartItems)
	if err != nil {
		handleServiceError(w, h.logger(ctx), err)
		return
	}

	intentReq := checkout.IntentRequest{
		Items:           refs,
		ShippingAddress: *req.ShippingInfo,
		CouponCodes:     req.AppliedCoupons,
	}
	if req.BillingInfo != nil {
		intentReq.BillingAddress = *req.BillingInfo
	}

	res, err := h.svc.CreatePaymentIntent(ctx, cc, intentReq)
	if err != nil {
		handleServiceError(w, h.logger(ctx), err)
		return
	}

	respondJSON(w, http.StatusOK, CreatePaymentIntentResponseDTO{
		Success: true,
		PaymentIntent: PaymentIntentDTO{
			ID:           res.Intent.ID,
			ClientSecret: res.Intent.ClientSecret,
			Amount:       res.Intent.Amount,
		},
		OrderID: res.Order.ID.String(),
		Totals:  toTotalsDTO(res.Totals),
		TaxInfo: toTaxInfoDTO(res.Tax),
	})
}

// POST /checkout/confirm-payment
func (h *CheckoutHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cc, ok := getCheckoutContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req ConfirmPaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.PaymentIntentID == "" || req.OrderID == "" {
		respondError(w, http.StatusBadRequest, "missing_fields", "payment_intent_id and order_id are required")
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	res, err := h.svc.ConfirmPayment(ctx, cc, orderID, req.PaymentIntentID)
	if err != nil {
		handleServiceError(w, h.logger(ctx), err)
		return
	}

	message := "Payment confirmed, order processing"
	if res.Status == d.OrderStatusConfirmed {
		message = "Payment confirmed"
	}
	respondJSON(w, http.StatusOK, ConfirmPaymentResponseDTO{
		Success: true,
		Message: message,
		OrderID: res.OrderID.String(),
		Status:  res.Status.String(),
	})
}

// cartItems returns the request's items, or the saved cart when the request has none.
func (h *CheckoutHandler) cartItems(ctx context.Context, cc d.CheckoutContext, items []CartItemDTO) ([]d.CartItemRef, error) {
	if items != nil || h.carts == nil {
		return toCartItemRefs(items), nil
	}

	saved, err := h.carts.GetCart(ctx, cc.UserID)
	if errors.Is(err, cart.ErrCartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load saved cart: %w", err)
	}
	return saved.Refs(), nil
}

func (h *CheckoutHandler) logger(ctx context.Context) *zap.Logger {
	return logger.WithContext(ctx, h.log).With(zap.String("request_id", getRequestID(ctx)))
}
