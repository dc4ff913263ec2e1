package catalog

import (
	"context"
	"sync"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
)

type MockCatalog struct {
	mu        sync.Mutex
	Products  map[int64]d.Product
	Err       error
	Calls     int
	Requested [][]int64
}

func (m *MockCatalog) GetProductsByIDs(_ context.Context, ids []int64) ([]d.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Requested = append(m.Requested, append([]int64(nil), ids...))
	if m.Err != nil {
		return nil, m.Err
	}
	var out []d.Product
	for _, id := range ids {
		if p, ok := m.Products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
