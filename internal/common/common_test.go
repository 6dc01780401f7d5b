package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorUsesAppErrorMetadata(t *testing.T) {
	rec := httptest.NewRecorder()
	err := NewAppError("RETAIL_NOT_ELIGIBLE", "cart below retail threshold", http.StatusUnprocessableEntity, errors.New("short"))
	WriteError(rec, err)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Error ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "RETAIL_NOT_ELIGIBLE", body.Error.Code)

	rec = httptest.NewRecorder()
	WriteError(rec, errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCustomerMiddleware(t *testing.T) {
	var seen string
	h := CustomerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CustomerID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CustomerHeader, " buyer-42 ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "buyer-42", seen)
}

func TestIdempotencyMiddlewareRejectsReplay(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	calls := 0
	h := Idem{R: client}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		req.Header.Set("Idempotency-Key", "order-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equalf(t, want, rec.Code, "request %d", i)
	}
	require.Equal(t, 1, calls)
}

func TestIdempotencyMiddlewareReleasesKeyOnFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	calls := 0
	h := Idem{R: client}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			JSONError(w, http.StatusUnprocessableEntity, "RETAIL_NOT_ELIGIBLE", "cart below retail threshold", nil)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	for i, want := range []int{http.StatusUnprocessableEntity, http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		req.Header.Set("Idempotency-Key", "order-2")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equalf(t, want, rec.Code, "request %d", i)
	}
	require.Equal(t, 2, calls)
	require.Len(t, mr.Keys(), 1)
}

func TestIdempotencyMiddlewareReleasesKeyOnPanic(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	h := Idem{R: client}.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("order store unavailable")
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set("Idempotency-Key", "order-3")
	require.Panics(t, func() { h.ServeHTTP(httptest.NewRecorder(), req) })
	require.Empty(t, mr.Keys())
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders?page=3&limit=5", nil)
	page, perPage := ParsePagination(req, 20)
	require.Equal(t, 3, page)
	require.Equal(t, 5, perPage)
	require.Equal(t, 10, Offset(page, perPage))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	require.Equal(t, "10.1.2.3", ClientIP(req))

	req.RemoteAddr = ""
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, "203.0.113.9", ClientIP(req))
}

func TestDataEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Data(rec, http.StatusCreated, map[string]string{"id": "cart-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.JSONEq(t, `{"data":{"id":"cart-1"}}`, rec.Body.String())
}
