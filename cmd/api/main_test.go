package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestPprofRoutesReachTheirHandlers(t *testing.T) {
	r := chi.NewRouter()
	r.Mount("/debug/pprof", protectPprof(newPprofMux(), "ops", "secret"))

	get := func(path string, auth bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if auth {
			req.SetBasicAuth("ops", "secret")
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/debug/pprof/", false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get("/debug/pprof/", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = get("/debug/pprof/cmdline", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	rec = get("/debug/pprof/symbol", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "num_symbols")

	rec = get("/debug/pprof/heap", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
}
