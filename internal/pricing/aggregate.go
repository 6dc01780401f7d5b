package pricing

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Totals is the cart-wide fold of priced lines.
type Totals struct {
	Subtotal     Money `json:"subtotal"`
	TotalSavings Money `json:"totalSavings"`
	Discount     Money `json:"discount"`
	TotalItems   int   `json:"totalItems"`
}

// Aggregate sums priced lines. discount is a cart-level reduction layered on top of
// line savings; negative values are treated as zero.
func Aggregate(lines []LineResult, discount Money) Totals {
	totals := lo.Reduce(lines, func(acc Totals, l LineResult, _ int) Totals {
		acc.Subtotal = acc.Subtotal.Add(l.Subtotal)
		acc.TotalSavings = acc.TotalSavings.Add(l.Savings)
		acc.TotalItems += l.Quantity
		return acc
	}, Totals{Subtotal: decimal.Zero, TotalSavings: decimal.Zero})
	totals.Discount = decimal.Max(discount, decimal.Zero)
	return totals
}

// CartValueAtMRP values the cart at original prices with tier pricing disabled.
func CartValueAtMRP(items []LineItem, multiplier Money) Money {
	return lo.Reduce(items, func(acc Money, it LineItem, _ int) Money {
		return acc.Add(it.Original(multiplier).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}, decimal.Zero)
}
