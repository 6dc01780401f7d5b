package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	return engine
}

func TestQuoteBelowThresholdChargesMRP(t *testing.T) {
	engine := newTestEngine(t)
	items := []LineItem{
		{ProductID: "chyawanprash", UnitPrice: d("2400"), OriginalPrice: ptr(d("3000")), Quantity: 1},
		{ProductID: "triphala", UnitPrice: d("1200"), OriginalPrice: ptr(d("1500")), Quantity: 1},
	}
	out, err := engine.Quote(QuoteInput{Items: items})
	require.NoError(t, err)
	require.Equal(t, ModeMRP, out.BillingMode)
	require.Equal(t, StateIneligibleMRPOnly, out.BillingState)
	require.False(t, out.Eligible)
	requireMoney(t, "4500", out.CartValueAtMRP)
	requireMoney(t, "499", out.ShortfallToNextMode)
	requireMoney(t, "4500", out.Subtotal)
	requireMoney(t, "0", out.Savings)
	requireMoney(t, "810", out.Tax)
	requireMoney(t, "50", out.DeliveryFee)
	requireMoney(t, "5360", out.GrandTotal)

	_, err = engine.Quote(QuoteInput{Items: items, RequestedMode: ModeRetail})
	require.ErrorIs(t, err, ErrRetailNotEligible)
}

func TestQuoteAboveThresholdDefaultsToRetail(t *testing.T) {
	engine := newTestEngine(t)
	items := []LineItem{
		{ProductID: "chyawanprash", UnitPrice: d("2400"), OriginalPrice: ptr(d("3000")), Quantity: 1},
		{ProductID: "triphala", UnitPrice: d("1700"), OriginalPrice: ptr(d("2200")), Quantity: 1},
	}
	out, err := engine.Quote(QuoteInput{Items: items})
	require.NoError(t, err)
	require.Equal(t, ModeRetail, out.BillingMode)
	require.True(t, out.Eligible)
	require.ElementsMatch(t, []BillingMode{ModeMRP, ModeRetail}, out.AvailableModes)
	requireMoney(t, "5200", out.CartValueAtMRP)
	requireMoney(t, "0", out.ShortfallToNextMode)
	requireMoney(t, "4100", out.Subtotal)
	requireMoney(t, "1100", out.Savings)

	mrp, err := engine.Quote(QuoteInput{Items: items, RequestedMode: ModeMRP})
	require.NoError(t, err)
	require.Equal(t, ModeMRP, mrp.BillingMode)
	requireMoney(t, "5200", mrp.Subtotal)
}

func TestQuoteTierPricingAndDiscount(t *testing.T) {
	engine := newTestEngine(t)
	items := []LineItem{
		{ProductID: "ashwagandha", UnitPrice: d("100"), OriginalPrice: ptr(d("125")), Quantity: 60, Tiers: ashwagandhaTiers()},
	}
	out, err := engine.Quote(QuoteInput{Items: items, Discount: d("300")})
	require.NoError(t, err)
	require.Equal(t, ModeRetail, out.BillingMode)
	requireMoney(t, "7500", out.CartValueAtMRP)
	requireMoney(t, "4800", out.Subtotal)
	requireMoney(t, "2700", out.Savings)
	requireMoney(t, "300", out.Discount)
	requireMoney(t, "810", out.Tax)
	requireMoney(t, "50", out.DeliveryFee)
	requireMoney(t, "5360", out.GrandTotal)
}

func TestQuoteClampsDiscountToSubtotal(t *testing.T) {
	engine := newTestEngine(t)
	items := []LineItem{{ProductID: "neem", UnitPrice: d("120"), OriginalPrice: ptr(d("150")), Quantity: 1}}
	out, err := engine.Quote(QuoteInput{Items: items, Discount: d("200")})
	require.NoError(t, err)
	requireMoney(t, "150", out.Subtotal)
	requireMoney(t, "150", out.Discount)
	requireMoney(t, "0", out.Tax)
	requireMoney(t, "50", out.GrandTotal)
}

func TestQuoteRejectsInvalidInput(t *testing.T) {
	engine := newTestEngine(t)
	_, err := engine.Quote(QuoteInput{Items: []LineItem{{ProductID: "x", UnitPrice: d("10"), Quantity: -2}}})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = engine.Quote(QuoteInput{
		Items:                 []LineItem{{ProductID: "x", UnitPrice: d("10"), Quantity: 1}},
		MRPFallbackMultiplier: d("0.5"),
	})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestQuoteFallbackMultiplierOverride(t *testing.T) {
	engine := newTestEngine(t)
	items := []LineItem{{ProductID: "shilajit", UnitPrice: d("4000"), Quantity: 1}}

	out, err := engine.Quote(QuoteInput{Items: items})
	require.NoError(t, err)
	requireMoney(t, "5000", out.CartValueAtMRP)
	require.Equal(t, ModeRetail, out.BillingMode)

	out, err = engine.Quote(QuoteInput{Items: items, MRPFallbackMultiplier: d("1")})
	require.NoError(t, err)
	requireMoney(t, "4000", out.CartValueAtMRP)
	require.Equal(t, ModeMRP, out.BillingMode)
	requireMoney(t, "999", out.ShortfallToNextMode)
}

func TestQuoteEmptyCart(t *testing.T) {
	engine := newTestEngine(t)
	out, err := engine.Quote(QuoteInput{})
	require.NoError(t, err)
	require.Equal(t, ModeMRP, out.BillingMode)
	requireMoney(t, "0", out.GrandTotal)
	requireMoney(t, "0", out.DeliveryFee)
	requireMoney(t, "4999", out.ShortfallToNextMode)
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TaxRate = decimal.NewFromInt(2)
	cfg.DeliveryFee = decimal.NewFromInt(-1)
	_, err := NewEngine(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestQuoteDoesNotMutateItems(t *testing.T) {
	engine := newTestEngine(t)
	items := []LineItem{{ProductID: "ashwagandha", UnitPrice: d("100"), Quantity: 12, Tiers: ashwagandhaTiers()}}
	before := append([]LineItem(nil), items...)
	_, err := engine.Quote(QuoteInput{Items: items, RequestedMode: ModeMRP})
	require.NoError(t, err)
	require.Equal(t, before, items)
	require.Nil(t, items[0].OriginalPrice)
}
