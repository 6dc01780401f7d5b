package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-ayurmart/internal/common"
	"github.com/noah-isme/backend-ayurmart/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("ayurmart", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/health/ready"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/health/ready", "204")))
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Zero(t, testutil.ToFloat64(metrics.InFlight))
}

func TestPricingMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := obs.NewPricingMetrics("ayurmart", registry)

	m.ObserveQuote("retail")
	m.ObserveQuote("retail")
	m.ObserveQuote("mrp")
	m.ObserveValidationFailure("retail_not_eligible")
	m.ObserveOrder("retail", 6250)

	require.Equal(t, float64(2), testutil.ToFloat64(m.Quotes.WithLabelValues("retail")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Quotes.WithLabelValues("mrp")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.ValidationFailures.WithLabelValues("retail_not_eligible")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.OrdersPlaced.WithLabelValues("retail")))
	require.Equal(t, 1, testutil.CollectAndCount(m.OrderGrandTotal))

	again := obs.NewPricingMetrics("ayurmart", registry)
	again.ObserveQuote("mrp")
	require.Equal(t, float64(2), testutil.ToFloat64(m.Quotes.WithLabelValues("mrp")))

	var nilMetrics *obs.PricingMetrics
	nilMetrics.ObserveQuote("retail")
}

func TestRequestLoggerIncludesCustomer(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.RequestLogger{Logger: zerolog.New(&buf)}
	handler := common.CustomerMiddleware(logger.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set(common.CustomerHeader, "cust-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, "cust-42", entry["customer_id"])
	require.EqualValues(t, http.StatusAccepted, entry["status"])
}

func TestParseBucketsCSV(t *testing.T) {
	require.Nil(t, obs.ParseBucketsCSV(""))
	require.Nil(t, obs.ParseBucketsCSV("x, -1, 0"))
	require.Equal(t, []float64{5, 50, 500}, obs.ParseBucketsCSV("5, 50,bogus, 500, 50"))
}

func TestHTTPMetricsResponseSize(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("ayurmart", nil, registry)
	again := obs.NewHTTPMetrics("ayurmart", nil, registry)
	require.Same(t, metrics.ReqTotal, again.ReqTotal)

	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/products"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/products", "200")))
	require.Equal(t, 1, testutil.CollectAndCount(metrics.ResponseBytes))
}

func TestRequestLoggerLevelsByStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.RequestLogger{Logger: zerolog.New(&buf)}
	handler := logger.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "192.0.2.1", entry["client_ip"])
}
