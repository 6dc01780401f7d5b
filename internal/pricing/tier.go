package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount in currency units.
type Money = decimal.Decimal

// TierBreakpoint is the unit price charged once a line reaches MinQuantity.
type TierBreakpoint struct {
	MinQuantity int   `json:"minQuantity"`
	UnitPrice   Money `json:"unitPrice"`
}

// TierTable lists breakpoints by ascending MinQuantity. The first breakpoint has
// MinQuantity 1 and carries the base price.
type TierTable []TierBreakpoint

// BaseTable returns a single-breakpoint table charging price at any quantity.
func BaseTable(price Money) TierTable {
	return TierTable{{MinQuantity: 1, UnitPrice: price}}
}

// Validate reports ordering, base breakpoint and monotonicity violations.
func (t TierTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("no breakpoints: %w", ErrInvalidTierTable)
	}
	if t[0].MinQuantity != 1 {
		return fmt.Errorf("first breakpoint starts at %d: %w", t[0].MinQuantity, ErrInvalidTierTable)
	}
	for i, bp := range t {
		if bp.UnitPrice.IsNegative() {
			return fmt.Errorf("breakpoint %d: %w", bp.MinQuantity, ErrNegativePrice)
		}
		if i == 0 {
			continue
		}
		prev := t[i-1]
		if bp.MinQuantity <= prev.MinQuantity {
			return fmt.Errorf("breakpoint %d follows %d: %w", bp.MinQuantity, prev.MinQuantity, ErrInvalidTierTable)
		}
		if bp.UnitPrice.GreaterThan(prev.UnitPrice) {
			return fmt.Errorf("price rises from %s to %s at %d: %w", prev.UnitPrice, bp.UnitPrice, bp.MinQuantity, ErrInvalidTierTable)
		}
	}
	return nil
}

// PriceForQuantity selects the breakpoint with the largest MinQuantity not above qty.
// When qty sits below every breakpoint the lowest breakpoint's price is used.
func PriceForQuantity(t TierTable, qty int) Money {
	if len(t) == 0 {
		return decimal.Zero
	}
	lowest := t[0]
	var (
		best  TierBreakpoint
		found bool
	)
	for _, bp := range t {
		if bp.MinQuantity < lowest.MinQuantity {
			lowest = bp
		}
		if bp.MinQuantity <= qty && (!found || bp.MinQuantity > best.MinQuantity) {
			best = bp
			found = true
		}
	}
	if !found {
		return lowest.UnitPrice
	}
	return best.UnitPrice
}

// NextBreakpoint returns the first breakpoint above qty, if any. Callers use it to
// show how many more units unlock the next price.
func NextBreakpoint(t TierTable, qty int) (TierBreakpoint, bool) {
	var (
		next  TierBreakpoint
		found bool
	)
	for _, bp := range t {
		if bp.MinQuantity > qty && (!found || bp.MinQuantity < next.MinQuantity) {
			next = bp
			found = true
		}
	}
	return next, found
}
