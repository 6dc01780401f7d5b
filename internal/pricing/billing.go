package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BillingMode selects how lines are charged.
type BillingMode string

const (
	// ModeMRP charges the flat original price with no bulk discount.
	ModeMRP BillingMode = "mrp"
	// ModeRetail charges tier prices and is only available above the threshold.
	ModeRetail BillingMode = "retail"
)

// ParseBillingMode accepts "mrp", "retail" or an empty string (no preference).
func ParseBillingMode(value string) (BillingMode, error) {
	switch BillingMode(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return "", nil
	case ModeMRP:
		return ModeMRP, nil
	case ModeRetail:
		return ModeRetail, nil
	default:
		return "", fmt.Errorf("%q: %w", value, ErrInvalidBillingMode)
	}
}

// Eligibility is the advisory outcome of comparing the MRP cart value to the threshold.
type Eligibility struct {
	Mode      BillingMode `json:"mode"`
	Shortfall Money       `json:"shortfall"`
}

// Eligible reports whether retail billing is available.
func (e Eligibility) Eligible() bool { return e.Mode == ModeRetail }

// ResolveBillingMode compares cartValueAtMRP to threshold. The boundary is inclusive.
func ResolveBillingMode(cartValueAtMRP, threshold Money) Eligibility {
	if cartValueAtMRP.GreaterThanOrEqual(threshold) {
		return Eligibility{Mode: ModeRetail, Shortfall: decimal.Zero}
	}
	return Eligibility{Mode: ModeMRP, Shortfall: threshold.Sub(cartValueAtMRP)}
}

// BillingStateKind names the states of the billing-mode selector.
type BillingStateKind string

const (
	// StateIneligibleMRPOnly allows MRP billing only.
	StateIneligibleMRPOnly BillingStateKind = "ineligible_mrp_only"
	// StateEligibleChoice lets the buyer pick MRP or retail billing.
	StateEligibleChoice BillingStateKind = "eligible_choice"
)

// BillingState is derived solely from the MRP cart value and the threshold.
type BillingState struct {
	Kind        BillingStateKind
	Eligibility Eligibility
}

// NewBillingState resolves eligibility and returns the matching state.
func NewBillingState(cartValueAtMRP, threshold Money) BillingState {
	e := ResolveBillingMode(cartValueAtMRP, threshold)
	if e.Eligible() {
		return BillingState{Kind: StateEligibleChoice, Eligibility: e}
	}
	return BillingState{Kind: StateIneligibleMRPOnly, Eligibility: e}
}

// Select returns the mode to charge for the requested one. An empty request takes the
// resolver's default. Retail is refused while ineligible.
func (s BillingState) Select(requested BillingMode) (BillingMode, error) {
	switch requested {
	case "":
		return s.Eligibility.Mode, nil
	case ModeMRP:
		return ModeMRP, nil
	case ModeRetail:
		if s.Kind != StateEligibleChoice {
			return ModeMRP, fmt.Errorf("short by %s: %w", s.Eligibility.Shortfall.StringFixed(2), ErrRetailNotEligible)
		}
		return ModeRetail, nil
	default:
		return "", fmt.Errorf("%q: %w", requested, ErrInvalidBillingMode)
	}
}

// AvailableModes lists the modes a buyer may pick in this state.
func (s BillingState) AvailableModes() []BillingMode {
	if s.Kind == StateEligibleChoice {
		return []BillingMode{ModeMRP, ModeRetail}
	}
	return []BillingMode{ModeMRP}
}
