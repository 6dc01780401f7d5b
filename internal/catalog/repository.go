package catalog

import (
	"context"
	"sort"
	"sync"
)

// Repository loads active products with their tier tables.
type Repository interface {
	ListProducts(ctx context.Context, limit, offset int) ([]Product, int64, error)
	GetProduct(ctx context.Context, id string) (Product, error)
}

// MemoryRepository keeps products in process. It backs development runs without a
// database and the package tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewMemoryRepository returns a repository holding products.
func NewMemoryRepository(products ...Product) *MemoryRepository {
	repo := &MemoryRepository{products: make(map[string]Product, len(products))}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

// Put inserts or replaces a product.
func (m *MemoryRepository) Put(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// ListProducts returns active products ordered by title.
func (m *MemoryRepository) ListProducts(_ context.Context, limit, offset int) ([]Product, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	active := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		if p.Active {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Title < active[j].Title })
	total := int64(len(active))
	if offset >= len(active) {
		return []Product{}, total, nil
	}
	end := len(active)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return active[offset:end], total, nil
}

// GetProduct returns an active product by id.
func (m *MemoryRepository) GetProduct(_ context.Context, id string) (Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok || !p.Active {
		return Product{}, ErrNotFound
	}
	return p, nil
}
