package voucher

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotEligible is returned when the voucher cannot be applied to the provided context.
	ErrNotEligible = errors.New("voucher not eligible")
	// ErrNotFound is returned for an unknown voucher code.
	ErrNotFound = errors.New("voucher not found")
	// ErrUsageLimitReached indicates the voucher has exhausted the global usage quota.
	ErrUsageLimitReached = errors.New("voucher usage limit reached")
	// ErrVoucherInactive is returned when attempting to use a voucher outside of its active window.
	ErrVoucherInactive = errors.New("voucher not active")
	// ErrVoucherExpired is returned when the voucher has already expired.
	ErrVoucherExpired = errors.New("voucher expired")
	// ErrMinimumSpendUnmet indicates the order total did not meet the voucher requirement.
	ErrMinimumSpendUnmet = errors.New("voucher minimum spend not met")
)

// Kinds of discount a rule can grant.
const (
	KindFixed   = "fixed"
	KindPercent = "percent"
)

// Rule captures the runtime constraints of a voucher.
type Rule struct {
	Code       string          `json:"code"`
	Kind       string          `json:"kind"`
	Value      decimal.Decimal `json:"value"`
	PercentBps int32           `json:"percentBps"`
	MinSpend   decimal.Decimal `json:"minSpend"`
	UsageLimit *int32          `json:"usageLimit,omitempty"`
	UsedCount  int32           `json:"usedCount"`
	ValidFrom  *time.Time      `json:"validFrom,omitempty"`
	ValidTo    *time.Time      `json:"validTo,omitempty"`
	ProductIDs []string        `json:"productIds,omitempty"`
}

// Item represents a priced line eligible for voucher calculation.
type Item struct {
	ProductID string
	Subtotal  decimal.Decimal
}

// Validate ensures the rule can be applied at the provided instant and order total.
func (r Rule) Validate(now time.Time, cartTotal decimal.Decimal) error {
	if cartTotal.LessThan(r.MinSpend) {
		return ErrMinimumSpendUnmet
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrVoucherInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrVoucherExpired
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// EligibleSubtotal calculates the portion of the cart total that is affected by the voucher rule.
func EligibleSubtotal(items []Item, r Rule) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if !it.Subtotal.IsPositive() {
			continue
		}
		if len(r.ProductIDs) == 0 || ruleMatchesItem(r, it) {
			total = total.Add(it.Subtotal)
		}
	}
	return total
}

func ruleMatchesItem(r Rule, it Item) bool {
	for _, id := range r.ProductIDs {
		if id == it.ProductID {
			return true
		}
	}
	return false
}

// Compute determines the discount amount based on the rule and eligible subtotal.
func Compute(eligible decimal.Decimal, r Rule) decimal.Decimal {
	if !eligible.IsPositive() {
		return decimal.Zero
	}
	discount := r.Value
	if strings.EqualFold(r.Kind, KindPercent) {
		if r.PercentBps <= 0 {
			return decimal.Zero
		}
		discount = eligible.Mul(decimal.NewFromInt32(r.PercentBps)).Div(decimal.NewFromInt(10000)).Round(2)
	}
	if discount.GreaterThan(eligible) {
		discount = eligible
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}
