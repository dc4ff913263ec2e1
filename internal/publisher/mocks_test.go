package publisher

import (
	"context"
	"sync"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	r "github.com/fjod/go_cart/marketplace-checkout/internal/repository"
	"github.com/segmentio/kafka-go"
)

type MockStore struct {
	mu          sync.Mutex
	Events      []*r.OutboxEvent
	EventsErr   error
	MarkErr     error
	Processed   []int64
	StuckOrders []*d.Order
	StuckErr    error
	StuckCalls  int
	LastCutoff  time.Time
}

func (m *MockStore) GetUnprocessedEvents(_ context.Context, limit int) ([]*r.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EventsErr != nil {
		return nil, m.EventsErr
	}
	var out []*r.OutboxEvent
	for _, e := range m.Events {
		if !m.isProcessed(e.ID) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockStore) isProcessed(id int64) bool {
	for _, p := range m.Processed {
		if p == id {
			return true
		}
	}
	return false
}

func (m *MockStore) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkErr != nil {
		return m.MarkErr
	}
	m.Processed = append(m.Processed, id)
	return nil
}

func (m *MockStore) ListStuckPaidOrders(_ context.Context, cutoff time.Time, _ int) ([]*d.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StuckCalls++
	m.LastCutoff = cutoff
	return m.StuckOrders, m.StuckErr
}

type MockWriter struct {
	mu       sync.Mutex
	Messages []kafka.Message
	Err      error
	Closed   bool
}

func (w *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	w.Messages = append(w.Messages, msgs...)
	return nil
}

func (w *MockWriter) Close() error {
	w.Closed = true
	return nil
}

type MockFinisher struct {
	Finished []*d.Order
	Err      error
}

func (f *MockFinisher) FinishPaidOrder(_ context.Context, order *d.Order) error {
	if f.Err != nil {
		return f.Err
	}
	f.Finished = append(f.Finished, order)
	return nil
}
