package payment

import (
	"context"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	r "github.com/fjod/go_cart/marketplace-checkout/internal/repository"
)

type MockProcessor struct {
	CustomerID  string
	CustomerErr error
	AddressErr  error
	Intent      *d.PaymentIntentRef
	IntentErr   error

	CustomerCalls int
	AddressCalls  int
	Params        d.PaymentIntentParams
}

func (m *MockProcessor) CreateOrGetCustomer(_ context.Context, _ d.Customer) (string, error) {
	m.CustomerCalls++
	return m.CustomerID, m.CustomerErr
}

func (m *MockProcessor) UpdateCustomerAddress(_ context.Context, _ string, _ d.Address) error {
	m.AddressCalls++
	return m.AddressErr
}

func (m *MockProcessor) CreatePaymentIntent(_ context.Context, params d.PaymentIntentParams) (*d.PaymentIntentRef, error) {
	m.Params = params
	return m.Intent, m.IntentErr
}

type MockCustomerStore struct {
	IDs     map[int64]string
	GetErr  error
	SaveErr error
}

func (m *MockCustomerStore) GetCustomerID(_ context.Context, userID int64) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	id, ok := m.IDs[userID]
	if !ok {
		return "", r.ErrCustomerNotFound
	}
	return id, nil
}

func (m *MockCustomerStore) SaveCustomerID(_ context.Context, userID int64, customerID string) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if m.IDs == nil {
		m.IDs = map[int64]string{}
	}
	m.IDs[userID] = customerID
	return nil
}
