// Package checkout turns carts into quotes and orders. It is the only caller of the
// pricing engine, so every total a customer sees comes from one place.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-ayurmart/internal/cart"
	"github.com/noah-isme/backend-ayurmart/internal/obs"
	"github.com/noah-isme/backend-ayurmart/internal/order"
	"github.com/noah-isme/backend-ayurmart/internal/pricing"
	"github.com/noah-isme/backend-ayurmart/internal/voucher"
)

var (
	// ErrCustomerRequired is returned when an order has no buyer to attach to.
	ErrCustomerRequired = errors.New("customer id required")
	// ErrForbidden is returned when a customer checks out a cart owned by someone else.
	ErrForbidden = errors.New("cart belongs to another customer")
)

// Quote is the priced view of a cart.
type Quote struct {
	CartID    string            `json:"cartId"`
	Currency  string            `json:"currency"`
	Breakdown pricing.Breakdown `json:"pricing"`
	Voucher   *voucher.Preview  `json:"voucher,omitempty"`
	// VoucherError explains why the cart's voucher was not applied.
	VoucherError string `json:"voucherError,omitempty"`

	voucherErr error
}

// PlaceInput describes a checkout request.
type PlaceInput struct {
	CartID     string
	CustomerID string
	Mode       pricing.BillingMode
}

// Service prices carts and places orders.
type Service struct {
	Carts    *cart.Service
	Engine   *pricing.Engine
	Vouchers *voucher.Service
	Orders   order.Store
	Metrics  *obs.PricingMetrics
	Currency string
	Logger   zerolog.Logger
}

func (s *Service) configured() error {
	if s == nil || s.Carts == nil || s.Engine == nil {
		return errors.New("checkout service not configured")
	}
	return nil
}

// QuoteCart prices a cart that has already been loaded.
func (s *Service) QuoteCart(ctx context.Context, c cart.Cart, mode pricing.BillingMode) (pricing.Breakdown, error) {
	if err := s.configured(); err != nil {
		return pricing.Breakdown{}, err
	}
	q, err := s.quote(ctx, c, mode)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return q.Breakdown, nil
}

// Quote loads and prices a cart in the requested billing mode. An empty mode takes
// the default for the cart's eligibility.
func (s *Service) Quote(ctx context.Context, cartID string, mode pricing.BillingMode) (Quote, error) {
	if err := s.configured(); err != nil {
		return Quote{}, err
	}
	c, err := s.Carts.Get(ctx, cartID)
	if err != nil {
		return Quote{}, err
	}
	return s.quote(ctx, c, mode)
}

// ApplyVoucher checks code against the cart and records it when it grants a discount.
func (s *Service) ApplyVoucher(ctx context.Context, cartID, code string) (Quote, error) {
	if err := s.configured(); err != nil {
		return Quote{}, err
	}
	if s.Vouchers == nil {
		return Quote{}, fmt.Errorf("vouchers disabled: %w", voucher.ErrNotFound)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return Quote{}, fmt.Errorf("code is required: %w", voucher.ErrNotEligible)
	}
	var out Quote
	err := s.Carts.WithCartLock(ctx, cartID, func(ctx context.Context) error {
		c, err := s.Carts.Get(ctx, cartID)
		if err != nil {
			return err
		}
		if len(c.Lines) == 0 {
			return cart.ErrEmpty
		}
		c.VoucherCode = code
		q, err := s.quote(ctx, c, "")
		if err != nil {
			return err
		}
		if q.voucherErr != nil {
			return q.voucherErr
		}
		if _, err := s.Carts.SetVoucher(ctx, cartID, code); err != nil {
			return err
		}
		out = q
		return nil
	})
	return out, err
}

// RemoveVoucher clears the cart's voucher and returns the new quote.
func (s *Service) RemoveVoucher(ctx context.Context, cartID string) (Quote, error) {
	if err := s.configured(); err != nil {
		return Quote{}, err
	}
	c, err := s.Carts.SetVoucher(ctx, cartID, "")
	if err != nil {
		return Quote{}, err
	}
	return s.quote(ctx, c, "")
}

// Place re-prices the cart under its lock, claims the voucher, empties the cart and
// stores the order. Retail billing below the threshold is refused, as is a voucher that
// no longer applies or whose usage limit was reached. When the order cannot be stored
// the voucher use is released and the cart restored.
func (s *Service) Place(ctx context.Context, in PlaceInput) (order.Order, error) {
	if err := s.configured(); err != nil {
		return order.Order{}, err
	}
	if s.Orders == nil {
		return order.Order{}, errors.New("order store not configured")
	}
	ctx, span := obs.Tracer("checkout").Start(ctx, "checkout.Place")
	defer span.End()
	span.SetAttributes(attribute.String("cart.id", in.CartID), attribute.String("billing.requested_mode", string(in.Mode)))

	var placed order.Order
	err := s.Carts.WithCartLock(ctx, in.CartID, func(ctx context.Context) error {
		c, err := s.Carts.Get(ctx, in.CartID)
		if err != nil {
			return err
		}
		if len(c.Lines) == 0 {
			return cart.ErrEmpty
		}
		customerID := strings.TrimSpace(in.CustomerID)
		switch {
		case c.CustomerID != "" && customerID != "" && c.CustomerID != customerID:
			return ErrForbidden
		case customerID == "":
			customerID = c.CustomerID
		}
		if customerID == "" {
			return ErrCustomerRequired
		}

		q, err := s.quote(ctx, c, in.Mode)
		if err != nil {
			return err
		}
		if q.voucherErr != nil {
			return q.voucherErr
		}

		labels := make(map[string]order.Label, len(c.Lines))
		for _, l := range c.Lines {
			labels[l.ProductID] = order.Label{Title: l.Title, Slug: l.Slug}
		}
		o := order.FromBreakdown(q.Breakdown, labels)
		o.CustomerID = customerID
		o.CartID = c.ID
		o.Currency = q.Currency
		if q.Voucher != nil {
			o.VoucherCode = q.Voucher.Code
		}
		if o.VoucherCode != "" {
			if err := s.Vouchers.Redeem(ctx, o.VoucherCode); err != nil {
				return fmt.Errorf("redeem voucher %s: %w", o.VoucherCode, err)
			}
		}
		// Empty the cart before the order exists: a retry then finds nothing to place.
		if _, err := s.Carts.Clear(ctx, c.ID); err != nil {
			s.releaseVoucher(ctx, o.VoucherCode)
			return fmt.Errorf("clear cart: %w", err)
		}
		placed, err = s.Orders.Create(ctx, o)
		if err != nil {
			s.releaseVoucher(ctx, o.VoucherCode)
			if _, restoreErr := s.Carts.Restore(ctx, c); restoreErr != nil {
				s.Logger.Error().Err(restoreErr).Str("cart_id", c.ID).Msg("cart not restored after failed checkout")
			}
			return fmt.Errorf("store order: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, failureReason(err))
		return order.Order{}, err
	}
	span.SetAttributes(attribute.String("order.id", placed.ID), attribute.String("billing.mode", string(placed.BillingMode)))
	s.Metrics.ObserveOrder(string(placed.BillingMode), placed.GrandTotal.InexactFloat64())
	s.Logger.Info().
		Str("order_id", placed.ID).
		Str("customer_id", placed.CustomerID).
		Str("billing_mode", string(placed.BillingMode)).
		Str("grand_total", placed.GrandTotal.String()).
		Msg("order placed")
	return placed, nil
}

func (s *Service) releaseVoucher(ctx context.Context, code string) {
	if code == "" {
		return
	}
	if err := s.Vouchers.Release(ctx, code); err != nil {
		s.Logger.Warn().Err(err).Str("voucher", code).Msg("voucher usage not released")
	}
}

// quote prices c in two passes when a voucher is set: the first pass gives the
// effective-mode subtotal the voucher is evaluated against, the second applies the discount.
func (s *Service) quote(ctx context.Context, c cart.Cart, mode pricing.BillingMode) (Quote, error) {
	ctx, span := obs.Tracer("checkout").Start(ctx, "checkout.quote")
	defer span.End()
	span.SetAttributes(attribute.Int("cart.lines", len(c.Lines)), attribute.Bool("cart.voucher", c.VoucherCode != ""))

	items := c.Snapshot()
	b, err := s.Engine.Quote(pricing.QuoteInput{Items: items, RequestedMode: mode})
	if err != nil {
		s.Metrics.ObserveValidationFailure(failureReason(err))
		return Quote{}, err
	}
	q := Quote{CartID: c.ID, Currency: s.Currency, Breakdown: b}

	if c.VoucherCode != "" && s.Vouchers != nil {
		scoped := lo.Map(b.Lines, func(l pricing.LineResult, _ int) voucher.Item {
			return voucher.Item{ProductID: l.ProductID, Subtotal: l.Subtotal}
		})
		preview, err := s.Vouchers.Evaluate(ctx, c.VoucherCode, b.Subtotal, scoped)
		switch {
		case err == nil:
			discounted, err := s.Engine.Quote(pricing.QuoteInput{Items: items, RequestedMode: b.BillingMode, Discount: preview.Discount})
			if err != nil {
				return Quote{}, err
			}
			q.Breakdown = discounted
			q.Voucher = &preview
		case isVoucherRejection(err):
			q.voucherErr = err
			q.VoucherError = err.Error()
		default:
			return Quote{}, err
		}
	}
	s.Metrics.ObserveQuote(string(q.Breakdown.BillingMode))
	return q, nil
}

func isVoucherRejection(err error) bool {
	for _, target := range []error{
		voucher.ErrNotFound, voucher.ErrNotEligible, voucher.ErrUsageLimitReached,
		voucher.ErrVoucherInactive, voucher.ErrVoucherExpired, voucher.ErrMinimumSpendUnmet,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, pricing.ErrRetailNotEligible):
		return "retail_not_eligible"
	case errors.Is(err, pricing.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, pricing.ErrNegativePrice):
		return "negative_price"
	case errors.Is(err, pricing.ErrInvalidTierTable):
		return "invalid_tier_table"
	case errors.Is(err, pricing.ErrDuplicateProduct):
		return "duplicate_product"
	case errors.Is(err, pricing.ErrMissingProduct):
		return "missing_product"
	default:
		return "other"
	}
}
