package tax

import (
	"context"
	"sync"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	r "github.com/fjod/go_cart/marketplace-checkout/internal/repository"
	"github.com/google/uuid"
)

type MockProvider struct {
	Calculation   *d.TaxCalculation
	CalculateErr  error
	TransactionID string
	CommitErr     error

	Items       []d.TaxLineItem
	Address     d.Address
	CommitCalls int
}

func (m *MockProvider) Calculate(_ context.Context, items []d.TaxLineItem, address d.Address) (*d.TaxCalculation, error) {
	m.Items = items
	m.Address = address
	return m.Calculation, m.CalculateErr
}

func (m *MockProvider) Commit(_ context.Context, _, _ string) (string, error) {
	m.CommitCalls++
	return m.TransactionID, m.CommitErr
}

// MockStore keeps tax records in memory, one per order.
type MockStore struct {
	mu      sync.Mutex
	Records map[uuid.UUID]*d.TaxRecord
	SaveErr error
	Saves   int
}

func NewMockStore() *MockStore {
	return &MockStore{Records: map[uuid.UUID]*d.TaxRecord{}}
}

func (m *MockStore) SaveTaxRecord(_ context.Context, rec *d.TaxRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := *rec
	m.Records[rec.OrderID] = &cp
	return nil
}

func (m *MockStore) GetTaxRecord(_ context.Context, orderID uuid.UUID) (*d.TaxRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[orderID]
	if !ok {
		return nil, r.ErrTaxRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MockStore) LinkTaxTransaction(_ context.Context, orderID uuid.UUID, transactionID string) (bool, error) {
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

func (m *MockStore) VoidTaxRecord(_ context.Context, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.Records[orderID]; ok && rec.TransactionID == nil {
		rec.Status = d.TaxRecordVoid
	}
	return nil
}
