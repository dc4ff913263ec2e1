package http

import (
	"context"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/cart"
	"github.com/fjod/go_cart/marketplace-checkout/internal/checkout"
	"github.com/google/uuid"
)

type MockCheckoutService struct {
	Quote   *checkout.Quote
	Intent  *checkout.IntentResult
	Confirm *checkout.ConfirmResult
	Order   *d.Order
	Page    *d.OrderPage
	Err     error

	TotalsReq    checkout.TotalsRequest
	IntentReq    checkout.IntentRequest
	Caller       d.CheckoutContext
	ConfirmedID  uuid.UUID
	ConfirmedPI  string
	ListedPage   int
	ListedLimit  int
	ListedStatus *d.OrderStatus
}

func (m *MockCheckoutService) CalculateTotals(_ context.Context, cc d.CheckoutContext, req checkout.TotalsRequest) (*checkout.Quote, error) {
	m.Caller = cc
	m.TotalsReq = req
	return m.Quote, m.Err
}

func (m *MockCheckoutService) CreatePaymentIntent(_ context.Context, cc d.CheckoutContext, req checkout.IntentRequest) (*checkout.IntentResult, error) {
	m.Caller = cc
	m.IntentReq = req
	return m.Intent, m.Err
}

func (m *MockCheckoutService) ConfirmPayment(_ context.Context, cc d.CheckoutContext, orderID uuid.UUID, paymentIntentID string) (*checkout.ConfirmResult, error) {
	m.Caller = cc
	m.ConfirmedID = orderID
	m.ConfirmedPI = paymentIntentID
	return m.Confirm, m.Err
}

func (m *MockCheckoutService) PaymentStatus(_ context.Context, cc d.CheckoutContext, _ uuid.UUID) (*d.Order, error) {
	m.Caller = cc
	return m.Order, m.Err
}

func (m *MockCheckoutService) GetOrder(_ context.Context, cc d.CheckoutContext, _ uuid.UUID) (*d.Order, error) {
	m.Caller = cc
	return m.Order, m.Err
}

func (m *MockCheckoutService) ListOrders(_ context.Context, cc d.CheckoutContext, page, limit int, status *d.OrderStatus) (*d.OrderPage, error) {
	m.Caller = cc
	m.ListedPage = page
	m.ListedLimit = limit
	m.ListedStatus = status
	return m.Page, m.Err
}

type MockCartSource struct {
	Cart  *cart.Cart
	Err   error
	Calls int
}

func (m *MockCartSource) GetCart(context.Context, int64) (*cart.Cart, error) {
	m.Calls++
	return m.Cart, m.Err
}

type MockPinger struct {
	Err error
}

func (m MockPinger) Ping(context.Context) error {
	return m.Err
}
