package catalog

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Service reads the catalog through the cache and validates pricing data.
type Service struct {
	repo         Repository
	cache        *Cache
	logger       zerolog.Logger
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Repository   Repository
	Cache        *Cache
	Logger       zerolog.Logger
	DefaultLimit int
	MaxLimit     int
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []Product
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repository == nil {
		return nil, errors.New("catalog repository is required")
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	return &Service{
		repo:         cfg.Repository,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
	}, nil
}

// ListProducts returns one page of active products.
func (s *Service) ListProducts(ctx context.Context, page, limit int) (ProductListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	items, total, err := s.repo.ListProducts(ctx, limit, (page-1)*limit)
	if err != nil {
		return ProductListResult{}, err
	}
	return ProductListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// GetProduct returns a product, served from cache when possible. Products whose tier
// tables are malformed are refused so they can never be priced.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	var cached Product
	if hit, err := s.cache.GetJSON(ctx, productKey(id), &cached); err != nil {
		s.logger.Warn().Err(err).Str("product_id", id).Msg("catalog cache read")
	} else if hit {
		return cached, nil
	}
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := p.Validate(); err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("catalog product rejected")
		return Product{}, err
	}
	if err := s.cache.SetJSON(ctx, productKey(id), p); err != nil {
		s.logger.Warn().Err(err).Str("product_id", id).Msg("catalog cache write")
	}
	return p, nil
}

// Invalidate drops cached copies of the given products.
func (s *Service) Invalidate(ctx context.Context, ids ...string) error {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	return s.cache.Delete(ctx, keys...)
}
