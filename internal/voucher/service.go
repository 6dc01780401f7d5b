package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Preview describes the outcome of evaluating a voucher without mutating state.
type Preview struct {
	Code           string          `json:"code"`
	Discount       decimal.Decimal `json:"discount"`
	EligibleAmount decimal.Decimal `json:"eligibleAmount"`
}

// Service evaluates voucher codes against priced cart lines.
type Service struct {
	Repo Repository
	Now  func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Evaluate returns the cart-level discount code grants for items whose sum is subtotal.
func (s *Service) Evaluate(ctx context.Context, code string, subtotal decimal.Decimal, items []Item) (Preview, error) {
	if s == nil || s.Repo == nil {
		return Preview{}, errors.New("voucher service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Preview{}, fmt.Errorf("code is required: %w", ErrNotEligible)
	}
	rule, err := s.Repo.GetByCode(ctx, trimmed)
	if err != nil {
		return Preview{}, err
	}
	if err := rule.Validate(s.now(), subtotal); err != nil {
		return Preview{}, err
	}
	eligible := EligibleSubtotal(items, rule)
	if !eligible.IsPositive() {
		return Preview{}, fmt.Errorf("no matching products: %w", ErrNotEligible)
	}
	return Preview{
		Code:           rule.Code,
		Discount:       Compute(eligible, rule),
		EligibleAmount: eligible,
	}, nil
}

// Redeem claims one use of code for an order about to be stored. A code whose limit
// was used up since it was evaluated fails with ErrUsageLimitReached.
func (s *Service) Redeem(ctx context.Context, code string) error {
	if s == nil || s.Repo == nil {
		return errors.New("voucher service not configured")
	}
	return s.Repo.IncrementUsage(ctx, code)
}

// Release returns a use claimed by Redeem when the order could not be stored.
func (s *Service) Release(ctx context.Context, code string) error {
	if s == nil || s.Repo == nil {
		return errors.New("voucher service not configured")
	}
	return s.Repo.ReleaseUsage(ctx, code)
}
