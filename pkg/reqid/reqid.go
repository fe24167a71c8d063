// Package reqid assigns each HTTP request an ID and carries it through the
// request context, so one slow checkout can be followed across the access
// log, the service log lines, and the client's own records.
//
// The router installs the middleware once:
//
//	r.Use(reqid.Middleware())
//
// and logger.WithCtx(ctx) stamps the ID onto every log line downstream:
//
//	logger.WithCtx(r.Context()).Info("order placed", "order_id", order.ID)
//	// → time=... level=INFO msg="order placed" request_id=ab12... order_id=7
package reqid

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

type ctxKey struct{}

// Header is the HTTP header the ID travels in, inbound and outbound.
const Header = "X-Request-ID"

// New returns a random 32-hex-char request ID.
func New() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// WithValue stores id in ctx and returns the new context.
func WithValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromCtx extracts the request ID from ctx, or "" when none is set.
func FromCtx(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}

// Middleware tags every request. An X-Request-ID the client already sent is
// kept, so an upstream proxy or mobile app can correlate its own trace; the
// ID is echoed on the response either way.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(Header)
			if id == "" {
				id = New()
			}

			w.Header().Set(Header, id)
			next.ServeHTTP(w, r.WithContext(WithValue(r.Context(), id)))
		})
	}
}
