// Package pricing computes tiered line prices, billing-mode eligibility and checkout
// totals for a cart snapshot. It performs no I/O and never mutates its inputs.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Config carries the tunable pricing constants.
type Config struct {
	TaxRate               Money
	BillingThreshold      Money
	DeliveryThreshold     Money
	DeliveryFee           Money
	MRPFallbackMultiplier Money
}

// DefaultConfig returns the storefront's stock pricing constants.
func DefaultConfig() Config {
	return Config{
		TaxRate:               decimal.RequireFromString("0.18"),
		BillingThreshold:      decimal.NewFromInt(4999),
		DeliveryThreshold:     decimal.NewFromInt(10000),
		DeliveryFee:           decimal.NewFromInt(50),
		MRPFallbackMultiplier: decimal.RequireFromString("1.25"),
	}
}

// Validate rejects negative amounts, tax rates outside [0,1] and a fallback
// multiplier below one.
func (c Config) Validate() error {
	var errs []error
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("tax rate %s: %w", c.TaxRate, ErrInvalidConfig))
	}
	if c.BillingThreshold.IsNegative() {
		errs = append(errs, fmt.Errorf("billing threshold %s: %w", c.BillingThreshold, ErrInvalidConfig))
	}
	if c.DeliveryThreshold.IsNegative() {
		errs = append(errs, fmt.Errorf("delivery threshold %s: %w", c.DeliveryThreshold, ErrInvalidConfig))
	}
	if c.DeliveryFee.IsNegative() {
		errs = append(errs, fmt.Errorf("delivery fee %s: %w", c.DeliveryFee, ErrInvalidConfig))
	}
	if c.MRPFallbackMultiplier.LessThan(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("mrp fallback multiplier %s: %w", c.MRPFallbackMultiplier, ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// QuoteInput is a cart snapshot plus the caller's billing preference.
type QuoteInput struct {
	Items         []LineItem
	Discount      Money
	RequestedMode BillingMode
	// MRPFallbackMultiplier overrides Config.MRPFallbackMultiplier when non-zero.
	MRPFallbackMultiplier Money
}

// Breakdown is the full pricing result for one cart snapshot.
type Breakdown struct {
	Lines               []LineResult     `json:"lines"`
	Subtotal            Money            `json:"subtotal"`
	Discount            Money            `json:"discount"`
	Savings             Money            `json:"savings"`
	Tax                 Money            `json:"tax"`
	DeliveryFee         Money            `json:"deliveryFee"`
	GrandTotal          Money            `json:"grandTotal"`
	TotalItems          int              `json:"totalItems"`
	CartValueAtMRP      Money            `json:"cartValueAtMrp"`
	BillingMode         BillingMode      `json:"billingMode"`
	BillingState        BillingStateKind `json:"billingState"`
	AvailableModes      []BillingMode    `json:"availableModes"`
	Eligible            bool             `json:"eligible"`
	ShortfallToNextMode Money            `json:"shortfallToNextMode"`
}

// Engine prices carts against a fixed Config.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an engine bound to it.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Quote validates the snapshot, resolves the billing mode and prices the cart.
func (e *Engine) Quote(in QuoteInput) (Breakdown, error) {
	if err := ValidateItems(in.Items); err != nil {
		return Breakdown{}, err
	}
	multiplier := e.cfg.MRPFallbackMultiplier
	if !in.MRPFallbackMultiplier.IsZero() {
		if in.MRPFallbackMultiplier.LessThan(decimal.NewFromInt(1)) {
			return Breakdown{}, fmt.Errorf("mrp fallback multiplier %s: %w", in.MRPFallbackMultiplier, ErrInvalidConfig)
		}
		multiplier = in.MRPFallbackMultiplier
	}

	mrpValue := CartValueAtMRP(in.Items, multiplier)
	state := NewBillingState(mrpValue, e.cfg.BillingThreshold)
	mode, err := state.Select(in.RequestedMode)
	if err != nil {
		return Breakdown{}, err
	}

	lines := PriceLines(in.Items, mode, multiplier)
	totals := Aggregate(lines, in.Discount)
	if totals.Discount.GreaterThan(totals.Subtotal) {
		totals.Discount = totals.Subtotal
	}
	total := ComputeCheckoutTotal(totals.Subtotal, totals.Discount, e.cfg.TaxRate, e.cfg.DeliveryThreshold, e.cfg.DeliveryFee)
	if len(lines) == 0 {
		// nothing to deliver
		total.GrandTotal = total.GrandTotal.Sub(total.DeliveryFeeApplied)
		total.DeliveryFeeApplied = decimal.Zero
	}

	return Breakdown{
		Lines:               lines,
		Subtotal:            totals.Subtotal,
		Discount:            totals.Discount,
		Savings:             totals.TotalSavings,
		Tax:                 total.Tax,
		DeliveryFee:         total.DeliveryFeeApplied,
		GrandTotal:          total.GrandTotal,
		TotalItems:          totals.TotalItems,
		CartValueAtMRP:      mrpValue,
		BillingMode:         mode,
		BillingState:        state.Kind,
		AvailableModes:      state.AvailableModes(),
		Eligible:            state.Eligibility.Eligible(),
		ShortfallToNextMode: state.Eligibility.Shortfall,
	}, nil
}
