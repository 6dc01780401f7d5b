package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists orders.
type Store interface {
	Create(ctx context.Context, o Order) (Order, error)
	// Get loads an order with its items. An empty customerID skips the ownership check.
	Get(ctx context.Context, id, customerID string) (Order, error)
	// ListByCustomer returns a page of orders, newest first, without items.
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]Order, int64, error)
	UpdateStatus(ctx context.Context, id string, to Status) (Order, error)
}

func prepare(o Order, now time.Time) Order {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusPlaced
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = o.CreatedAt
	return o
}

// MemoryStore keeps orders in process.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]Order
	Now    func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: map[string]Order{}}
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

// Create stores o, assigning an id and timestamps.
func (m *MemoryStore) Create(_ context.Context, o Order) (Order, error) {
	o = prepare(o, m.now())
	o.Items = append([]Item(nil), o.Items...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return o, nil
}

// Get loads an order.
func (m *MemoryStore) Get(_ context.Context, id, customerID string) (Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok || (customerID != "" && o.CustomerID != customerID) {
		return Order{}, ErrNotFound
	}
	o.Items = append([]Item(nil), o.Items...)
	return o, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (m *MemoryStore) ListByCustomer(_ context.Context, customerID string, limit, offset int) ([]Order, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			o.Items = nil
			matched = append(matched, o)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	if offset >= len(matched) {
		return []Order{}, total, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

// UpdateStatus moves an order forward.
func (m *MemoryStore) UpdateStatus(_ context.Context, id string, to Status) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	if !CanTransition(o.Status, to) {
		return Order{}, ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = m.now()
	m.orders[id] = o
	return o, nil
}
