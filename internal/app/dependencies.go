// Package app assembles the storefront: shared infrastructure, domain services and the
// HTTP router. Postgres and Redis are optional; without them every store falls back to
// an in-process implementation.
package app

import (
	"context"
	"fmt"

	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-ayurmart/internal/config"
	"github.com/noah-isme/backend-ayurmart/internal/db"
	"github.com/noah-isme/backend-ayurmart/internal/lock"
	"github.com/noah-isme/backend-ayurmart/internal/obs"
	"github.com/noah-isme/backend-ayurmart/internal/ratelimit"
)

// Dependencies enumerates the infrastructure shared across modules.
type Dependencies struct {
	Config          *config.Config
	Logger          zerolog.Logger
	DB              *pgxpool.Pool
	Redis           *redis.Client
	Validator       *validator.Validate
	Limiter         ratelimit.Limiter
	Locker          lock.Mutex
	MetricsRegistry prometheus.Registerer
	PricingMetrics  *obs.PricingMetrics
}

// Options tune how Connect instruments clients.
type Options struct {
	MetricsNamespace string
	MetricsEnabled   bool
	// Registry defaults to the global Prometheus registerer.
	Registry prometheus.Registerer
}

// Connect opens the configured stores and returns a function that closes them.
func Connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, func(), error) {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	deps := &Dependencies{
		Config:          cfg,
		Logger:          logger,
		Validator:       validator.New(validator.WithRequiredStructEnabled()),
		MetricsRegistry: reg,
		PricingMetrics:  obs.NewPricingMetrics(opts.MetricsNamespace, reg),
	}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DatabaseURL != "" {
		if cfg.DBAutoMigrate {
			if err := RunMigrations(cfg.DatabaseURL); err != nil {
				return nil, func() {}, err
			}
			logger.Info().Msg("database migrations applied")
		}
		pool, err := NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, err
		}
		closers = append(closers, pool.Close)
		deps.DB = pool
	} else {
		logger.Warn().Msg("DATABASE_URL not set, catalog, vouchers and orders are kept in memory")
	}

	if cfg.RedisURL != "" {
		client, err := NewRedis(ctx, cfg.RedisURL, opts.MetricsEnabled, logger)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		})
		deps.Redis = client
		deps.Locker = lock.Locker{R: client}
	} else {
		logger.Warn().Msg("REDIS_URL not set, carts, locks and rate limits are process-local")
		deps.Locker = &lock.Local{}
	}

	limiter, err := NewLimiter(cfg, deps.Redis)
	if err != nil {
		closeAll()
		return nil, func() {}, err
	}
	deps.Limiter = limiter
	return deps, closeAll, nil
}

// NewPool connects to Postgres with query tracing enabled.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "ayurmart-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewRedis connects to Redis with OpenTelemetry instrumentation.
func NewRedis(ctx context.Context, redisURL string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewLimiter picks the checkout rate limiter for the configured strategy and stores.
func NewLimiter(cfg *config.Config, rdb *redis.Client) (ratelimit.Limiter, error) {
	switch {
	case rdb == nil:
		return ratelimit.NewMemory("ratelimit:"), nil
	case cfg.RateLimitStrategy == "fixed":
		return ratelimit.NewFixedRedis(rdb, "ratelimit:")
	default:
		return ratelimit.SlidingRedis{Client: rdb, Prefix: "ratelimit:"}, nil
	}
}

// RunMigrations brings the schema up to date.
func RunMigrations(databaseURL string) error {
	if err := db.Migrate(databaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
