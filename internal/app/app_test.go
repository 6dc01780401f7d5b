package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-ayurmart/internal/app"
	"github.com/noah-isme/backend-ayurmart/internal/config"
	"github.com/noah-isme/backend-ayurmart/internal/obs"
)

const ashwagandha = "0b6c5f7e-3f0e-4a55-9f39-6f0f1c0a1001"

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newServer(t *testing.T, env map[string]string) http.Handler {
	t.Helper()
	base := map[string]string{
		"DATABASE_URL":    "",
		"REDIS_URL":       "",
		"DB_AUTO_MIGRATE": "",
		"ADMIN_API_TOKEN": "",
	}
	for k, v := range env {
		base[k] = v
	}
	cfg, err := config.LoadForTests(base)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	deps, closeFn, err := app.Connect(context.Background(), cfg, zerolog.Nop(), app.Options{
		MetricsNamespace: "ayurmart_test",
		Registry:         reg,
	})
	require.NoError(t, err)
	t.Cleanup(closeFn)

	svcs, err := app.NewServices(deps)
	require.NoError(t, err)
	return app.NewRouter(deps, svcs, app.RouterOptions{
		HTTPMetrics:    obs.NewHTTPMetrics("ayurmart_test", nil, reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
}

func call(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func createCart(t *testing.T, h http.Handler, customer string) string {
	t.Helper()
	rec, env := call(t, h, http.MethodPost, "/api/v1/carts", nil, map[string]string{"X-Customer-ID": customer})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		Cart struct {
			ID string `json:"id"`
		} `json:"cart"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(t, out.Cart.ID)
	return out.Cart.ID
}

func TestStorefrontFlowInMemory(t *testing.T) {
	h := newServer(t, nil)
	customer := map[string]string{"X-Customer-ID": "buyer-1"}

	rec, _ := call(t, h, http.MethodGet, "/health/ready", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := call(t, h, http.MethodGet, "/api/v1/products", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, env.Data)

	cartID := createCart(t, h, "buyer-1")
	rec, _ = call(t, h, http.MethodPost, "/api/v1/carts/"+cartID+"/items", map[string]any{"productId": ashwagandha, "qty": 40}, customer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = call(t, h, http.MethodPost, "/api/v1/carts/"+cartID+"/quote", map[string]any{"mode": "retail"}, customer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var quote struct {
		Pricing struct {
			BillingMode string `json:"billingMode"`
			Subtotal    string `json:"subtotal"`
			Tax         string `json:"tax"`
			GrandTotal  string `json:"grandTotal"`
		} `json:"pricing"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	require.Equal(t, "retail", quote.Pricing.BillingMode)
	require.Equal(t, "3200", quote.Pricing.Subtotal)
	require.Equal(t, "576", quote.Pricing.Tax)
	require.Equal(t, "3826", quote.Pricing.GrandTotal)

	rec, env = call(t, h, http.MethodPost, "/api/v1/checkout", map[string]any{"cartId": cartID, "mode": "retail"}, customer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		GrandTotal string `json:"grandTotal"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &placed))
	require.Equal(t, "PLACED", placed.Status)
	require.Equal(t, "3826", placed.GrandTotal)

	rec, _ = call(t, h, http.MethodGet, "/api/v1/orders", nil, customer)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-Total-Count"))

	rec, _ = call(t, h, http.MethodGet, "/api/v1/orders/"+placed.ID, nil, map[string]string{"X-Customer-ID": "someone-else"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = call(t, h, http.MethodPost, "/api/v1/checkout", map[string]any{"cartId": cartID}, customer)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "CART_EMPTY", env.Error.Code)

	rec, _ = call(t, h, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ayurmart_test_orders_placed_total")
}

func TestRetailRefusedBelowThreshold(t *testing.T) {
	h := newServer(t, nil)
	customer := map[string]string{"X-Customer-ID": "buyer-2"}
	cartID := createCart(t, h, "buyer-2")
	rec, _ := call(t, h, http.MethodPost, "/api/v1/carts/"+cartID+"/items", map[string]any{"productId": ashwagandha, "qty": 2}, customer)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := call(t, h, http.MethodPost, "/api/v1/checkout", map[string]any{"cartId": cartID, "mode": "retail"}, customer)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "RETAIL_NOT_ELIGIBLE", env.Error.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h := newServer(t, nil)
	rec, _ := call(t, h, http.MethodPatch, "/api/v1/admin/orders/x/status", map[string]any{"status": "PACKED"}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	h = newServer(t, map[string]string{"ADMIN_API_TOKEN": "s3cret"})
	rec, _ = call(t, h, http.MethodPatch, "/api/v1/admin/orders/x/status", map[string]any{"status": "PACKED"}, map[string]string{"Authorization": "Bearer nope"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = call(t, h, http.MethodPatch, "/api/v1/admin/orders/x/status", map[string]any{"status": "PACKED"}, map[string]string{"Authorization": "Bearer s3cret"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRedisBackedIdempotencyAndRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	h := newServer(t, map[string]string{
		"REDIS_URL":         "redis://" + mr.Addr(),
		"CHECKOUT_RATE_MAX": "1",
	})
	customer := map[string]string{"X-Customer-ID": "buyer-3", "Idempotency-Key": "abc"}

	rec, _ := call(t, h, http.MethodPost, "/api/v1/carts", nil, customer)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, env := call(t, h, http.MethodPost, "/api/v1/carts", nil, customer)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "IDEMPOTENT_REPLAY", env.Error.Code)

	plain := map[string]string{"X-Customer-ID": "buyer-3"}
	rec, _ = call(t, h, http.MethodPost, "/api/v1/checkout", map[string]any{"cartId": "missing"}, plain)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec, env = call(t, h, http.MethodPost, "/api/v1/checkout", map[string]any{"cartId": "missing"}, plain)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "RATE_LIMITED", env.Error.Code)
}
