package app

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/noah-isme/backend-ayurmart/internal/cart"
	"github.com/noah-isme/backend-ayurmart/internal/catalog"
	"github.com/noah-isme/backend-ayurmart/internal/checkout"
	"github.com/noah-isme/backend-ayurmart/internal/common"
	"github.com/noah-isme/backend-ayurmart/internal/health"
	"github.com/noah-isme/backend-ayurmart/internal/obs"
	"github.com/noah-isme/backend-ayurmart/internal/order"
	"github.com/noah-isme/backend-ayurmart/internal/ratelimit"
	"github.com/noah-isme/backend-ayurmart/internal/security"
)

// RouterOptions controls the cross-cutting middleware mounted on the router.
type RouterOptions struct {
	HTTPMetrics    *obs.HTTPMetrics
	MetricsHandler http.Handler
	Tracing        bool
	// Pprof is mounted under /debug/pprof when set.
	Pprof http.Handler
}

// NewRouter builds the HTTP API.
func NewRouter(d *Dependencies, s *Services, opts RouterOptions) http.Handler {
	cfg := d.Config

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{
		Service:       s.Catalog,
		MRPMultiplier: cfg.Pricing.MRPFallbackMultiplier,
	})
	cartHandler := &cart.Handler{
		Svc:      s.Carts,
		Quoter:   s.Checkout,
		Validate: d.Validator,
		Currency: cfg.CurrencyCode,
		Logger:   d.Logger,
	}
	checkoutHandler := &checkout.Handler{Svc: s.Checkout, Validate: d.Validator}
	orderHandler := &order.Handler{Store: s.Orders}
	orderAdmin := &order.AdminHandler{Store: s.Orders, Validate: d.Validator}

	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}
	checkoutLimit := ratelimit.Handler{
		Limiter: d.Limiter,
		Config: ratelimit.Config{
			Key:    ratelimit.CustomerOrIP("checkout:"),
			Window: cfg.CheckoutRateWindow,
			Max:    cfg.CheckoutRateMax,
		},
		OnError: func(err error) { d.Logger.Warn().Err(err).Msg("checkout rate limiter unavailable") },
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(common.CustomerMiddleware)
	r.Use(obs.RoutePatternMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.EnableHSTS}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", common.CustomerHeader},
		ExposedHeaders:   []string{"X-Total-Count", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}
	if opts.Pprof != nil {
		r.Mount("/debug/pprof", opts.Pprof)
	}

	healthHandler := health.Handler{Checker: health.Stores{DB: d.DB, Redis: d.Redis}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{id}", catalogHandler.ProductDetail)
		v.Get("/products/{id}/price", catalogHandler.PricePreview)

		v.Route("/carts", func(c chi.Router) {
			c.With(idem.Middleware).Post("/", cartHandler.Create)
			c.Get("/{id}", cartHandler.Get)
			c.With(idem.Middleware).Post("/{id}/items", cartHandler.AddItem)
			c.Patch("/{id}/items/{productId}", cartHandler.UpdateItem)
			c.Delete("/{id}/items/{productId}", cartHandler.RemoveItem)
			c.Post("/{id}/quote", checkoutHandler.Quote)
			c.Post("/{id}/voucher", checkoutHandler.ApplyVoucher)
			c.Delete("/{id}/voucher", checkoutHandler.RemoveVoucher)
		})

		v.With(idem.Middleware, checkoutLimit.Middleware).Post("/checkout", checkoutHandler.Checkout)

		v.Get("/orders", orderHandler.List)
		v.Get("/orders/{id}", orderHandler.Get)
		v.Post("/orders/{id}/cancel", orderHandler.Cancel)

		if cfg.AdminToken != "" {
			v.Route("/admin", func(admin chi.Router) {
				admin.Use(requireAdminToken(cfg.AdminToken))
				admin.Patch("/orders/{id}/status", orderAdmin.PatchStatus)
			})
		}
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// requireAdminToken guards back-office routes with a static bearer token.
func requireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
