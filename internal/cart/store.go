package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists carts between requests.
type Store interface {
	Get(ctx context.Context, id string) (Cart, error)
	Save(ctx context.Context, c Cart, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps each cart as a JSON document with a sliding expiry.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

func (s RedisStore) key(id string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "cart:"
	}
	return prefix + id
}

// Get loads a cart.
func (s RedisStore) Get(ctx context.Context, id string) (Cart, error) {
	data, err := s.Client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}

// Save writes a cart and refreshes its expiry.
func (s RedisStore) Save(ctx context.Context, c Cart, ttl time.Duration) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return s.Client.Set(ctx, s.key(c.ID), data, ttl).Err()
}

// Delete removes a cart.
func (s RedisStore) Delete(ctx context.Context, id string) error {
	return s.Client.Del(ctx, s.key(id)).Err()
}

// MemoryStore is a process-local Store. Expiry is checked on read.
type MemoryStore struct {
	mu      sync.Mutex
	carts   map[string]Cart
	expires map[string]time.Time
	Now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: map[string]Cart{}, expires: map[string]time.Time{}}
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Get loads a cart.
func (m *MemoryStore) Get(_ context.Context, id string) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	if exp, ok := m.expires[id]; ok && m.now().After(exp) {
		delete(m.carts, id)
		delete(m.expires, id)
		return Cart{}, ErrNotFound
	}
	return clone(c)
}

// Save writes a cart and refreshes its expiry.
func (m *MemoryStore) Save(_ context.Context, c Cart, ttl time.Duration) error {
	stored, err := clone(c)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[c.ID] = stored
	if ttl > 0 {
		m.expires[c.ID] = m.now().Add(ttl)
	}
	return nil
}

// Delete removes a cart.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, id)
	delete(m.expires, id)
	return nil
}

// clone round-trips through JSON so stored carts never alias caller slices.
func clone(c Cart) (Cart, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return Cart{}, err
	}
	var out Cart
	if err := json.Unmarshal(data, &out); err != nil {
		return Cart{}, err
	}
	return out, nil
}
