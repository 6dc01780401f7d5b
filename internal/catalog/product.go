package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-ayurmart/internal/pricing"
)

var (
	// ErrNotFound indicates the requested product does not exist or is inactive.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidProduct wraps pricing data problems found on a catalog entry.
	ErrInvalidProduct = errors.New("invalid product pricing")
)

// Product is a sellable catalog entry with its bulk price breakpoints.
type Product struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Slug      string            `json:"slug"`
	UnitPrice decimal.Decimal   `json:"unitPrice"`
	MRP       *decimal.Decimal  `json:"mrp,omitempty"`
	Tiers     pricing.TierTable `json:"tiers"`
	Active    bool              `json:"active"`
}

// Validate checks prices and the tier table. Bad data is reported, never repaired.
func (p Product) Validate() error {
	if p.UnitPrice.IsNegative() {
		return fmt.Errorf("%s unit price: %w", p.ID, errors.Join(ErrInvalidProduct, pricing.ErrNegativePrice))
	}
	if p.MRP != nil && p.MRP.IsNegative() {
		return fmt.Errorf("%s mrp: %w", p.ID, errors.Join(ErrInvalidProduct, pricing.ErrNegativePrice))
	}
	if len(p.Tiers) > 0 {
		if err := p.Tiers.Validate(); err != nil {
			return fmt.Errorf("%s tiers: %w", p.ID, errors.Join(ErrInvalidProduct, err))
		}
	}
	return nil
}

// LineItem snapshots the product's pricing for qty units.
func (p Product) LineItem(qty int) pricing.LineItem {
	item := pricing.LineItem{
		ProductID: p.ID,
		UnitPrice: p.UnitPrice,
		Quantity:  qty,
		Tiers:     append(pricing.TierTable(nil), p.Tiers...),
	}
	if p.MRP != nil {
		mrp := *p.MRP
		item.OriginalPrice = &mrp
	}
	return item
}

// PricePreview shows what qty units of a product cost at retail tier pricing and how
// far the buyer is from the next breakpoint.
type PricePreview struct {
	pricing.LineResult
	NextTier        *pricing.TierBreakpoint `json:"nextTier,omitempty"`
	UnitsToNextTier int                     `json:"unitsToNextTier,omitempty"`
}

// Preview prices qty units in retail mode. multiplier fills in a missing MRP.
func (p Product) Preview(qty int, multiplier decimal.Decimal) (PricePreview, error) {
	item := p.LineItem(qty)
	if err := item.Validate(); err != nil {
		return PricePreview{}, err
	}
	out := PricePreview{LineResult: pricing.PriceLine(item, pricing.ModeRetail, multiplier)}
	if next, ok := pricing.NextBreakpoint(item.EffectiveTiers(), qty); ok {
		out.NextTier = &next
		out.UnitsToNextTier = next.MinQuantity - qty
	}
	return out, nil
}
