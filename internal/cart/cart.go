package cart

import (
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-ayurmart/internal/pricing"
)

var (
	// ErrNotFound indicates the requested cart or line could not be located.
	ErrNotFound = errors.New("cart not found")
	// ErrInvalidInput is returned when the provided payload is invalid.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmpty is returned when an operation needs at least one line.
	ErrEmpty = errors.New("cart empty")
)

// Line is a cart entry with the catalog pricing captured when it was added.
type Line struct {
	ProductID     string            `json:"productId"`
	Title         string            `json:"title"`
	Slug          string            `json:"slug"`
	UnitPrice     decimal.Decimal   `json:"unitPrice"`
	OriginalPrice *decimal.Decimal  `json:"originalPrice,omitempty"`
	Quantity      int               `json:"quantity"`
	Tiers         pricing.TierTable `json:"tiers,omitempty"`
}

// Cart is an ordered collection of lines. Order matters for display only.
type Cart struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customerId,omitempty"`
	Lines       []Line    `json:"lines"`
	VoucherCode string    `json:"voucherCode,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Snapshot copies the lines into pricing input. The cart itself is not shared.
func (c Cart) Snapshot() []pricing.LineItem {
	items := make([]pricing.LineItem, len(c.Lines))
	for i, l := range c.Lines {
		items[i] = pricing.LineItem{
			ProductID: l.ProductID,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Tiers:     append(pricing.TierTable(nil), l.Tiers...),
		}
		if l.OriginalPrice != nil {
			op := *l.OriginalPrice
			items[i].OriginalPrice = &op
		}
	}
	return items
}

func (c *Cart) lineIndex(productID string) int {
	_, idx, _ := lo.FindIndexOf(c.Lines, func(l Line) bool { return l.ProductID == productID })
	return idx
}

// TotalQuantity sums the quantities of every line.
func (c Cart) TotalQuantity() int {
	return lo.SumBy(c.Lines, func(l Line) int { return l.Quantity })
}
