package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-ayurmart/internal/catalog"
	"github.com/noah-isme/backend-ayurmart/internal/lock"
)

// ProductSource resolves catalog products for new cart lines.
type ProductSource interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Store       Store
	Products    ProductSource
	Locker      lock.Mutex
	TTL         time.Duration
	MaxQuantity int
	Now         func() time.Time
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) maxQty() int {
	if s.MaxQuantity <= 0 {
		return 10000
	}
	return s.MaxQuantity
}

// Create starts an empty cart.
func (s *Service) Create(ctx context.Context, customerID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	now := s.now()
	c := Cart{
		ID:         uuid.NewString(),
		CustomerID: strings.TrimSpace(customerID),
		Lines:      []Line{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Store.Save(ctx, c, s.ttl()); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Get loads a cart.
func (s *Service) Get(ctx context.Context, cartID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if strings.TrimSpace(cartID) == "" {
		return Cart{}, fmt.Errorf("cart id required: %w", ErrInvalidInput)
	}
	return s.Store.Get(ctx, cartID)
}

// AddItem inserts a product line or increments an existing one. New lines capture the
// catalog price, MRP and tier table at the time of adding.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, qty int) (Cart, error) {
	if qty <= 0 {
		return Cart{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(productID) == "" {
		return Cart{}, fmt.Errorf("product id required: %w", ErrInvalidInput)
	}
	return s.mutate(ctx, cartID, func(ctx context.Context, c *Cart) error {
		if idx := c.lineIndex(productID); idx >= 0 {
			next := c.Lines[idx].Quantity + qty
			if next > s.maxQty() {
				return fmt.Errorf("qty above %d: %w", s.maxQty(), ErrInvalidInput)
			}
			c.Lines[idx].Quantity = next
			return nil
		}
		if qty > s.maxQty() {
			return fmt.Errorf("qty above %d: %w", s.maxQty(), ErrInvalidInput)
		}
		if s.Products == nil {
			return errors.New("cart product source not configured")
		}
		product, err := s.Products.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		item := product.LineItem(qty)
		c.Lines = append(c.Lines, Line{
			ProductID:     product.ID,
			Title:         product.Title,
			Slug:          product.Slug,
			UnitPrice:     item.UnitPrice,
			OriginalPrice: item.OriginalPrice,
			Quantity:      qty,
			Tiers:         item.Tiers,
		})
		return nil
	})
}

// UpdateQty sets the quantity of a line. Zero removes the line; negative values are rejected.
func (s *Service) UpdateQty(ctx context.Context, cartID, productID string, qty int) (Cart, error) {
	if qty < 0 {
		return Cart{}, fmt.Errorf("qty must not be negative: %w", ErrInvalidInput)
	}
	if qty > s.maxQty() {
		return Cart{}, fmt.Errorf("qty above %d: %w", s.maxQty(), ErrInvalidInput)
	}
	return s.mutate(ctx, cartID, func(_ context.Context, c *Cart) error {
		idx := c.lineIndex(productID)
		if idx < 0 {
			return ErrNotFound
		}
		if qty == 0 {
			c.Lines = slices.Delete(c.Lines, idx, idx+1)
			return nil
		}
		c.Lines[idx].Quantity = qty
		return nil
	})
}

// RemoveItem deletes a line.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) (Cart, error) {
	return s.UpdateQty(ctx, cartID, productID, 0)
}

// SetVoucher records the voucher code applied to the cart; an empty code clears it.
// Codes are validated by the checkout quote, not here.
func (s *Service) SetVoucher(ctx context.Context, cartID, code string) (Cart, error) {
	return s.mutate(ctx, cartID, func(_ context.Context, c *Cart) error {
		c.VoucherCode = strings.ToUpper(strings.TrimSpace(code))
		return nil
	})
}

// Clear empties the cart after a successful checkout.
func (s *Service) Clear(ctx context.Context, cartID string) (Cart, error) {
	return s.mutate(ctx, cartID, func(_ context.Context, c *Cart) error {
		c.Lines = []Line{}
		c.VoucherCode = ""
		return nil
	})
}

// Restore writes back the lines and voucher of snapshot, undoing a Clear whose
// checkout did not complete.
func (s *Service) Restore(ctx context.Context, snapshot Cart) (Cart, error) {
	return s.mutate(ctx, snapshot.ID, func(_ context.Context, c *Cart) error {
		c.Lines = slices.Clone(snapshot.Lines)
		c.VoucherCode = snapshot.VoucherCode
		return nil
	})
}

// WithCartLock runs fn under the cart's lock. Checkout uses it so an order is placed
// from a snapshot no concurrent mutation can change.
// Nested calls for the same cart reuse the held lock.
func (s *Service) WithCartLock(ctx context.Context, cartID string, fn func(context.Context) error) error {
	if held, _ := ctx.Value(heldLockKey{}).(string); held == cartID {
		return fn(ctx)
	}
	locked := func(ctx context.Context) error {
		return fn(context.WithValue(ctx, heldLockKey{}, cartID))
	}
	if s.Locker == nil {
		return locked(ctx)
	}
	return s.Locker.WithLock(ctx, "lock:cart:"+cartID, 10*time.Second, locked)
}

type heldLockKey struct{}

func (s *Service) mutate(ctx context.Context, cartID string, fn func(context.Context, *Cart) error) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if strings.TrimSpace(cartID) == "" {
		return Cart{}, fmt.Errorf("cart id required: %w", ErrInvalidInput)
	}
	var out Cart
	err := s.WithCartLock(ctx, cartID, func(ctx context.Context) error {
		c, err := s.Store.Get(ctx, cartID)
		if err != nil {
			return err
		}
		if err := fn(ctx, &c); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		if err := s.Store.Save(ctx, c, s.ttl()); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}
