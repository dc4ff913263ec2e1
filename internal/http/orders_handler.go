package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrdersHandler struct {
	svc     CheckoutService
	timeout time.Duration
	log     *zap.Logger
}

func NewOrdersHandler(svc CheckoutService, timeout time.Duration, log *zap.Logger) *OrdersHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrdersHandler{
		svc:     svc,
		timeout: timeout,
		log:     log,
	}
}

// GET /checkout/payment-status/{order_id}
func (h *OrdersHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cc, orderID, ok := h.orderRequest(w, r)
	if !ok {
		return
	}

	order, err := h.svc.PaymentStatus(ctx, cc, orderID)
	if err != nil {
		handleServiceError(w, logger.WithContext(ctx, h.log), err)
		return
	}

	respondJSON(w, http.StatusOK, PaymentStatusResponseDTO{
		Success: true,
		Order: PaymentStatusDTO{
			ID:                    order.ID.String(),
			Status:                order.Status.String(),
			TotalAmount:           money(order.TotalAmount),
			CreatedAt:             order.CreatedAt,
			StripePaymentIntentID: order.PaymentIntentID,
		},
	})
}

// GET /checkout/order/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cc, orderID, ok := h.orderRequest(w, r)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(ctx, cc, orderID)
	if err != nil {
		handleServiceError(w, logger.WithContext(ctx, h.log), err)
		return
	}

	respondJSON(w, http.StatusOK, OrderResponseDTO{Success: true, Order: toOrderDTO(order)})
}

// GET /checkout/orders/my?page=&limit=&status=
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cc, ok := getCheckoutContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	q := r.URL.Query()
	page, err := optionalInt(q.Get("page"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_page", "page must be an integer")
		return
	}
	limit, err := optionalInt(q.Get("limit"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return
	}
	var status *d.OrderStatus
	if s := q.Get("status"); s != "" {
		st := d.OrderStatus(s)
		status = &st
	}

	res, err := h.svc.ListOrders(ctx, cc, page, limit, status)
	if err != nil {
		handleServiceError(w, logger.WithContext(ctx, h.log), err)
		return
	}

	orders := make([]OrderHistoryDTO, 0, len(res.Orders))
	for _, o := range res.Orders {
		orders = append(orders, toOrderHistoryDTO(o))
	}
	respondJSON(w, http.StatusOK, OrderListResponseDTO{
		Success: true,
		Orders:  orders,
		Pagination: PaginationDTO{
			Page:  res.Page,
			Limit: res.Limit,
			Total: res.Total,
			Pages: res.Pages(),
		},
	})
}

func (h *OrdersHandler) orderRequest(w http.ResponseWriter, r *http.Request) (d.CheckoutContext, uuid.UUID, bool) {
	cc, ok := getCheckoutContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return cc, uuid.Nil, false
	}

	raw := chi.URLParam(r, "order_id")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return cc, uuid.Nil, false
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return cc, uuid.Nil, false
	}
	return cc, orderID, true
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
