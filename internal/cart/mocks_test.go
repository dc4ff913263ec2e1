package cart

import (
	"context"
	"sync"
)

type mockRepository struct {
	m       sync.Mutex
	carts   map[int64]*Cart
	err     error
	gets    int
	deletes int
}

func newMockRepository() *mockRepository {
	return &mockRepository{carts: map[int64]*Cart{}}
}

func (m *mockRepository) GetCart(_ context.Context, userID int64) (*Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return c, nil
}

func (m *mockRepository) DeleteCart(_ context.Context, userID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	if m.err != nil {
		return m.err
	}
	if _, ok := m.carts[userID]; !ok {
		return ErrCartNotFound
	}
	delete(m.carts, userID)
	return nil
}

type mockCache struct {
	m       sync.Mutex
	carts   map[int64]*Cart
	deleted []int64
}

func newMockCache() *mockCache {
	return &mockCache{carts: map[int64]*Cart{}}
}

func (c *mockCache) Get(_ context.Context, userID int64) (*Cart, error) {
	c.m.Lock()
	defer c.m.Unlock()
	cart, ok := c.carts[userID]
	if !ok {
		return nil, ErrCacheMiss
	}
	return cart, nil
}

func (c *mockCache) Set(_ context.Context, userID int64, cart *Cart) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.carts[userID] = cart
	return nil
}

func (c *mockCache) Delete(_ context.Context, userID int64) error {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.carts, userID)
	c.deleted = append(c.deleted, userID)
	return nil
}
