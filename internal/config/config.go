package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-ayurmart/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	DBAutoMigrate      bool
	CORSAllowedOrigins []string
	CurrencyCode       string
	CartTTL            time.Duration
	CatalogCacheTTL    time.Duration
	IdempotencyTTL     time.Duration
	CheckoutRateMax    int
	CheckoutRateWindow time.Duration
	// RateLimitStrategy is "sliding" (Redis sorted sets) or "fixed" (ulule windows).
	RateLimitStrategy string
	// AdminToken enables /api/v1/admin routes when set.
	AdminToken string
	// MaxBodyBytes caps request payloads; zero uses the middleware default.
	MaxBodyBytes    int64
	SecurityHeaders bool
	EnableHSTS      bool
	Pricing         pricing.Config
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		DBAutoMigrate:      parseBool(k.String("DB_AUTO_MIGRATE")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:       strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "INR")),
		CartTTL:            parseDuration(k.String("CART_TTL"), "168h"),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CheckoutRateMax:    parseInt(k.String("CHECKOUT_RATE_MAX"), 10),
		CheckoutRateWindow: parseDuration(k.String("CHECKOUT_RATE_WINDOW"), "1m"),
		RateLimitStrategy:  strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_STRATEGY"), "sliding")),
		AdminToken:         strings.TrimSpace(k.String("ADMIN_API_TOKEN")),
		MaxBodyBytes:       int64(parseInt(k.String("HTTP_MAX_BODY_BYTES"), 1<<20)),
		SecurityHeaders:    parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
		EnableHSTS:         parseBool(k.String("SECURITY_HSTS_ENABLED")),
	}

	defaults := pricing.DefaultConfig()
	var errs []error
	cfg.Pricing.TaxRate = parseDecimal(k.String("PRICING_TAX_RATE"), defaults.TaxRate, "PRICING_TAX_RATE", &errs)
	cfg.Pricing.BillingThreshold = parseDecimal(k.String("PRICING_BILLING_THRESHOLD"), defaults.BillingThreshold, "PRICING_BILLING_THRESHOLD", &errs)
	cfg.Pricing.DeliveryThreshold = parseDecimal(k.String("PRICING_DELIVERY_THRESHOLD"), defaults.DeliveryThreshold, "PRICING_DELIVERY_THRESHOLD", &errs)
	cfg.Pricing.DeliveryFee = parseDecimal(k.String("PRICING_DELIVERY_FEE"), defaults.DeliveryFee, "PRICING_DELIVERY_FEE", &errs)
	cfg.Pricing.MRPFallbackMultiplier = parseDecimal(k.String("PRICING_MRP_FALLBACK_MULTIPLIER"), defaults.MRPFallbackMultiplier, "PRICING_MRP_FALLBACK_MULTIPLIER", &errs)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Pricing.Validate(); err != nil {
		return nil, err
	}
	if cfg.RateLimitStrategy != "sliding" && cfg.RateLimitStrategy != "fixed" {
		return nil, fmt.Errorf("RATE_LIMIT_STRATEGY must be sliding or fixed, got %q", cfg.RateLimitStrategy)
	}
	if cfg.DBAutoMigrate && cfg.DatabaseURL == "" {
		return nil, errors.New("DB_AUTO_MIGRATE requires DATABASE_URL")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// parseDecimal is strict: a malformed money value is a configuration error, not a
// silent fallback.
func parseDecimal(value string, fallback decimal.Decimal, key string, errs *[]error) decimal.Decimal {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return parseBool(value)
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
