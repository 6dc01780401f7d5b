package pricing

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// LineItem is a read-only snapshot of one cart line.
type LineItem struct {
	ProductID     string    `json:"productId"`
	UnitPrice     Money     `json:"unitPrice"`
	OriginalPrice *Money    `json:"originalPrice,omitempty"`
	Quantity      int       `json:"quantity"`
	Tiers         TierTable `json:"tiers,omitempty"`
}

// LineResult is the priced form of a LineItem under one billing mode.
type LineResult struct {
	ProductID     string `json:"productId"`
	Quantity      int    `json:"quantity"`
	UnitPrice     Money  `json:"unitPrice"`
	OriginalPrice Money  `json:"originalPrice"`
	Subtotal      Money  `json:"subtotal"`
	Savings       Money  `json:"savings"`
}

// Original returns the MRP of the line, falling back to UnitPrice × multiplier.
func (it LineItem) Original(multiplier Money) Money {
	if it.OriginalPrice != nil {
		return *it.OriginalPrice
	}
	return it.UnitPrice.Mul(multiplier)
}

// EffectiveTiers returns the line's tiers or a base table built from UnitPrice.
func (it LineItem) EffectiveTiers() TierTable {
	if len(it.Tiers) == 0 {
		return BaseTable(it.UnitPrice)
	}
	return it.Tiers
}

// Validate checks one line in isolation.
func (it LineItem) Validate() error {
	if it.ProductID == "" {
		return ErrMissingProduct
	}
	var errs []error
	if it.Quantity < 1 {
		errs = append(errs, fmt.Errorf("product %s quantity %d: %w", it.ProductID, it.Quantity, ErrInvalidQuantity))
	}
	if it.UnitPrice.IsNegative() {
		errs = append(errs, fmt.Errorf("product %s unit price: %w", it.ProductID, ErrNegativePrice))
	}
	if it.OriginalPrice != nil && it.OriginalPrice.IsNegative() {
		errs = append(errs, fmt.Errorf("product %s original price: %w", it.ProductID, ErrNegativePrice))
	}
	if len(it.Tiers) > 0 {
		if err := it.Tiers.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("product %s: %w", it.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateItems checks every line and rejects duplicate products. All problems are
// returned together.
func ValidateItems(items []LineItem) error {
	var errs []error
	for _, it := range items {
		if err := it.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	dups := lo.FindDuplicatesBy(items, func(it LineItem) string { return it.ProductID })
	for _, it := range dups {
		if it.ProductID == "" {
			continue
		}
		errs = append(errs, fmt.Errorf("product %s: %w", it.ProductID, ErrDuplicateProduct))
	}
	return errors.Join(errs...)
}

// PriceLine prices a line. Retail mode charges the tier price for the quantity, MRP
// mode charges the flat original price. Savings never go below zero.
func PriceLine(it LineItem, mode BillingMode, multiplier Money) LineResult {
	original := it.Original(multiplier)
	unit := original
	if mode == ModeRetail {
		unit = PriceForQuantity(it.EffectiveTiers(), it.Quantity)
	}
	qty := decimal.NewFromInt(int64(it.Quantity))
	savings := original.Sub(unit).Mul(qty)
	if savings.IsNegative() {
		savings = decimal.Zero
	}
	return LineResult{
		ProductID:     it.ProductID,
		Quantity:      it.Quantity,
		UnitPrice:     unit,
		OriginalPrice: original,
		Subtotal:      unit.Mul(qty),
		Savings:       savings,
	}
}

// PriceLines prices every line under mode without touching items.
func PriceLines(items []LineItem, mode BillingMode, multiplier Money) []LineResult {
	return lo.Map(items, func(it LineItem, _ int) LineResult {
		return PriceLine(it, mode, multiplier)
	})
}
