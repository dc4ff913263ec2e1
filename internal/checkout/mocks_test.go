package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	r "github.com/fjod/go_cart/marketplace-checkout/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MockCatalog struct {
	Products map[int64]d.Product
}

func (m *MockCatalog) GetProductsByIDs(_ context.Context, ids []int64) ([]d.Product, error) {
	out := make([]d.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.Products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type MockRateProvider struct {
	Cost decimal.Decimal
	Err  error
}

func (m *MockRateProvider) Rate(context.Context, d.Address, d.Address, d.Package) (decimal.Decimal, error) {
	return m.Cost, m.Err
}

type MockRateStore struct {
	Vendors map[int64]d.VendorFeeSettings
}

func (m *MockRateStore) VendorFeeSettings(context.Context, []int64) (map[int64]d.VendorFeeSettings, error) {
	return m.Vendors, nil
}

func (m *MockRateStore) CategoryCommissionRates(context.Context, []int64) (map[int64]decimal.Decimal, error) {
	return map[int64]decimal.Decimal{}, nil
}

type MockDiscountSource struct {
	Sales   []d.Discount
	Coupons []d.Discount
}

func (m *MockDiscountSource) ActiveSales(context.Context, int64, time.Time) ([]d.Discount, error) {
	return m.Sales, nil
}

func (m *MockDiscountSource) AcceptedPromotions(context.Context, int64, []int64, time.Time) ([]d.Discount, error) {
	return nil, nil
}

func (m *MockDiscountSource) CouponsByCode(context.Context, int64, []string) ([]d.Discount, error) {
	return m.Coupons, nil
}

type MockTaxProvider struct {
	mu           sync.Mutex
	Calculation  *d.TaxCalculation
	CalculateErr error
	CommitErr    error
	CommitCalls  int
}

func (m *MockTaxProvider) Calculate(context.Context, []d.TaxLineItem, d.Address) (*d.TaxCalculation, error) {
	return m.Calculation, m.CalculateErr
}

func (m *MockTaxProvider) Commit(_ context.Context, calcID, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommitCalls++
	return "taxtxn_" + calcID, m.CommitErr
}

type MockTaxStore struct {
	mu      sync.Mutex
	Records map[uuid.UUID]*d.TaxRecord
}

func NewMockTaxStore() *MockTaxStore {
	return &MockTaxStore{Records: map[uuid.UUID]*d.TaxRecord{}}
}

func (m *MockTaxStore) SaveTaxRecord(_ context.Context, rec *d.TaxRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.Records[rec.OrderID] = &cp
	return nil
}

func (m *MockTaxStore) GetTaxRecord(_ context.Context, orderID uuid.UUID) (*d.TaxRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[orderID]
	if !ok {
		return nil, r.ErrTaxRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MockTaxStore) LinkTaxTransaction(_ context.Context, orderID uuid.UUID, transactionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[orderID]
	if !ok || rec.TransactionID != nil || rec.Status != d.TaxRecordCalculated {
		return false, nil
	}
	rec.TransactionID = &transactionID
	rec.Status = d.TaxRecordCommitted
	return true, nil
}

func (m *MockTaxStore) VoidTaxRecord(_ context.Context, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.Records[orderID]; ok && rec.TransactionID == nil {
		rec.Status = d.TaxRecordVoid
	}
	return nil
}

type MockProcessor struct {
	CustomerErr error
	IntentErr   error
	Params      []d.PaymentIntentParams
}

func (m *MockProcessor) CreateOrGetCustomer(context.Context, d.Customer) (string, error) {
	if m.CustomerErr != nil {
		return "", m.CustomerErr
	}
	return "cus_1", nil
}

func (m *MockProcessor) UpdateCustomerAddress(context.Context, string, d.Address) error {
	return nil
}

func (m *MockProcessor) CreatePaymentIntent(_ context.Context, params d.PaymentIntentParams) (*d.PaymentIntentRef, error) {
	m.Params = append(m.Params, params)
	if m.IntentErr != nil {
		return nil, m.IntentErr
	}
	return &d.PaymentIntentRef{
		ID:           "pi_" + params.OrderID.String(),
		ClientSecret: "secret",
		Amount:       params.Amount,
		Currency:     params.Currency,
	}, nil
}

type MockCustomerStore struct {
	mu  sync.Mutex
	IDs map[int64]string
}

func (m *MockCustomerStore) GetCustomerID(_ context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.IDs[userID]
	if !ok {
		return "", r.ErrCustomerNotFound
	}
	return id, nil
}

func (m *MockCustomerStore) SaveCustomerID(_ context.Context, userID int64, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IDs == nil {
		m.IDs = map[int64]string{}
	}
	m.IDs[userID] = customerID
	return nil
}

type outboxMessage struct {
	EventType string
	Payload   []byte
}

// MockOrderStore keeps orders in memory with the same conditional transitions as the database.
type MockOrderStore struct {
	mu        sync.Mutex
	Orders    map[uuid.UUID]*d.Order
	Discounts map[uuid.UUID][]d.DiscountApplication
	Outbox    []outboxMessage
	CreateErr error
	TaxErr    error

	MarkPaidCalls int
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		Orders:    map[uuid.UUID]*d.Order{},
		Discounts: map[uuid.UUID][]d.DiscountApplication{},
	}
}

func (m *MockOrderStore) CreateOrder(_ context.Context, order *d.Order, discounts []d.DiscountApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, ok := m.Orders[order.ID]; ok {
		return r.ErrDuplicateOrder
	}
	m.Orders[order.ID] = copyOrder(order)
	m.Discounts[order.ID] = discounts
	return nil
}

func (m *MockOrderStore) GetOrderByID(_ context.Context, id uuid.UUID) (*d.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[id]
	if !ok {
		return nil, r.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (m *MockOrderStore) ListOrdersByUser(_ context.Context, filter d.OrderFilter) (*d.OrderPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := &d.OrderPage{Orders: []*d.Order{}, Page: filter.Page, Limit: filter.Limit}
	for _, o := range m.Orders {
		if o.UserID != filter.UserID || (filter.Status != nil && o.Status != *filter.Status) {
			continue
		}
		page.Total++
		page.Orders = append(page.Orders, copyOrder(o))
	}
	return page, nil
}

func (m *MockOrderStore) ListOrderDiscounts(_ context.Context, orderID uuid.UUID) ([]d.DiscountApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Discounts[orderID], nil
}

func (m *MockOrderStore) ApplyOrderTax(_ context.Context, orderID uuid.UUID, taxAmount, totalAmount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TaxErr != nil {
		return m.TaxErr
	}
	o, ok := m.Orders[orderID]
	if !ok || o.Status != d.OrderStatusPending {
		return r.ErrStatusChanged
	}
	o.TaxAmount = taxAmount
	o.TotalAmount = totalAmount
	return nil
}

func (m *MockOrderStore) MarkPaid(_ context.Context, orderID uuid.UUID, paymentIntentID string, eventType string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkPaidCalls++
	o, ok := m.Orders[orderID]
	if !ok || o.Status != d.OrderStatusPending {
		return r.ErrStatusChanged
	}
	o.Status = d.OrderStatusPaid
	o.PaymentIntentID = &paymentIntentID
	for i := range o.Items {
		o.Items[i].Status = d.OrderItemStatusPaid
	}
	m.Outbox = append(m.Outbox, outboxMessage{EventType: eventType, Payload: payload})
	return nil
}

func (m *MockOrderStore) MarkConfirmed(_ context.Context, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[orderID]
	if !ok || o.Status != d.OrderStatusPaid {
		return r.ErrStatusChanged
	}
	o.Status = d.OrderStatusConfirmed
	return nil
}

func (m *MockOrderStore) status(id uuid.UUID) d.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Orders[id].Status
}

func copyOrder(o *d.Order) *d.Order {
	cp := *o
	cp.Items = append([]d.OrderItem(nil), o.Items...)
	if o.PaymentIntentID != nil {
		id := *o.PaymentIntentID
		cp.PaymentIntentID = &id
	}
	return &cp
}

type MockCartClearer struct {
	mu      sync.Mutex
	Err     error
	Cleared []int64
}

func (m *MockCartClearer) ClearCart(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Cleared = append(m.Cleared, userID)
	return nil
}

var errProvider = errors.New("provider unavailable")
