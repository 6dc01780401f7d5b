package app

import (
	"fmt"

	"github.com/noah-isme/backend-ayurmart/internal/cart"
	"github.com/noah-isme/backend-ayurmart/internal/catalog"
	"github.com/noah-isme/backend-ayurmart/internal/checkout"
	"github.com/noah-isme/backend-ayurmart/internal/order"
	"github.com/noah-isme/backend-ayurmart/internal/pricing"
	"github.com/noah-isme/backend-ayurmart/internal/voucher"
)

// Services holds the domain services the router serves.
type Services struct {
	Catalog  *catalog.Service
	Carts    *cart.Service
	Vouchers *voucher.Service
	Orders   order.Store
	Checkout *checkout.Service
}

// NewServices wires domain services onto the available stores.
func NewServices(d *Dependencies) (*Services, error) {
	engine, err := pricing.NewEngine(d.Config.Pricing)
	if err != nil {
		return nil, fmt.Errorf("pricing engine: %w", err)
	}

	var (
		products catalog.Repository
		vouchers voucher.Repository
		orders   order.Store
	)
	if d.DB != nil {
		products = catalog.PGRepository{Pool: d.DB}
		vouchers = voucher.PGRepository{Pool: d.DB}
		orders = order.PGStore{Pool: d.DB}
	} else {
		products = catalog.NewMemoryRepository(catalog.DemoProducts()...)
		vouchers = voucher.NewMemoryRepository(voucher.DemoRules()...)
		orders = order.NewMemoryStore()
	}

	var carts cart.Store = cart.NewMemoryStore()
	if d.Redis != nil {
		carts = cart.RedisStore{Client: d.Redis}
	}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Repository: products,
		Cache:      catalog.NewCache(d.Redis, d.Config.CatalogCacheTTL),
		Logger:     d.Logger.With().Str("component", "catalog").Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}
	cartSvc := &cart.Service{
		Store:    carts,
		Products: catalogSvc,
		Locker:   d.Locker,
		TTL:      d.Config.CartTTL,
	}
	voucherSvc := &voucher.Service{Repo: vouchers}
	checkoutSvc := &checkout.Service{
		Carts:    cartSvc,
		Engine:   engine,
		Vouchers: voucherSvc,
		Orders:   orders,
		Metrics:  d.PricingMetrics,
		Currency: d.Config.CurrencyCode,
		Logger:   d.Logger.With().Str("component", "checkout").Logger(),
	}
	return &Services{
		Catalog:  catalogSvc,
		Carts:    cartSvc,
		Vouchers: voucherSvc,
		Orders:   orders,
		Checkout: checkoutSvc,
	}, nil
}
