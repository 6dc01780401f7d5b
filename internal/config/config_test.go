package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-ayurmart/internal/pricing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":                    "",
		"REDIS_URL":                       "",
		"DB_AUTO_MIGRATE":                 "",
		"PRICING_TAX_RATE":                "",
		"PRICING_BILLING_THRESHOLD":       "",
		"PRICING_DELIVERY_THRESHOLD":      "",
		"PRICING_DELIVERY_FEE":            "",
		"PRICING_MRP_FALLBACK_MULTIPLIER": "",
		"CART_TTL":                        "",
		"PORT":                            "",
		"HTTP_MAX_BODY_BYTES":             "",
		"SECURITY_HEADERS_ENABLED":        "",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 168*time.Hour, cfg.CartTTL)
	require.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	require.True(t, cfg.SecurityHeaders)
	defaults := pricing.DefaultConfig()
	require.True(t, defaults.TaxRate.Equal(cfg.Pricing.TaxRate))
	require.True(t, defaults.BillingThreshold.Equal(cfg.Pricing.BillingThreshold))
	require.True(t, defaults.DeliveryThreshold.Equal(cfg.Pricing.DeliveryThreshold))
	require.True(t, defaults.DeliveryFee.Equal(cfg.Pricing.DeliveryFee))
	require.True(t, defaults.MRPFallbackMultiplier.Equal(cfg.Pricing.MRPFallbackMultiplier))
}

func TestLoadPricingOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"PRICING_TAX_RATE":                "0.12",
		"PRICING_BILLING_THRESHOLD":       "2500",
		"PRICING_MRP_FALLBACK_MULTIPLIER": "1.4",
		"PORT":                            ":9090",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, "0.12", cfg.Pricing.TaxRate.String())
	require.Equal(t, "2500", cfg.Pricing.BillingThreshold.String())
	require.Equal(t, "1.4", cfg.Pricing.MRPFallbackMultiplier.String())
}

func TestLoadRejectsInvalidPricing(t *testing.T) {
	_, err := LoadForTests(map[string]string{"PRICING_DELIVERY_FEE": "fifty"})
	require.Error(t, err)

	_, err = LoadForTests(map[string]string{"PRICING_TAX_RATE": "1.5"})
	require.ErrorIs(t, err, pricing.ErrInvalidConfig)

	_, err = LoadForTests(map[string]string{"DB_AUTO_MIGRATE": "true", "DATABASE_URL": ""})
	require.Error(t, err)
}

func TestLoadRateLimitStrategy(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{"RATE_LIMIT_STRATEGY": "Fixed"})
	require.NoError(t, err)
	require.Equal(t, "fixed", cfg.RateLimitStrategy)

	_, err = LoadForTests(map[string]string{"RATE_LIMIT_STRATEGY": "token-bucket"})
	require.Error(t, err)
}
