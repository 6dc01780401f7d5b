package common

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type ctxKey string

const customerIDKey ctxKey = "storefront/customer-id"

// CustomerHeader carries the buyer identifier injected by the session gateway.
const CustomerHeader = "X-Customer-ID"

// WithCustomerID stores the buyer identifier on the provided context.
func WithCustomerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, customerIDKey, id)
}

// CustomerID extracts the buyer identifier from the context if present.
func CustomerID(ctx context.Context) (string, bool) {
	v := ctx.Value(customerIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// CustomerMiddleware copies the customer header onto the request context.
func CustomerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(CustomerHeader)); id != "" {
			r = r.WithContext(WithCustomerID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the caller address. chi's RealIP middleware has already folded
// X-Forwarded-For and X-Real-IP into RemoteAddr when it runs first.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			addr, _, _ = strings.Cut(fwd, ",")
			return strings.TrimSpace(addr)
		}
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
