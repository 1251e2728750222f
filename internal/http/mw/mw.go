// Package mw provides HTTP middleware for the API router.
package mw

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/hoangnd/docpull/internal/logging"
)

// RateLimit caps requests per client IP within the window. Abuse
// control for the public form, alongside Turnstile.
func RateLimit(requestLimit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"status":429,"title":"Too Many Requests","detail":"rate limit exceeded, try again shortly"}`))
		}),
	)
}

// ClientIP stores the request's client IP in the context for handlers
// and log filtering. Expects chi's RealIP middleware upstream.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(logging.WithClientIP(r.Context(), ip)))
	})
}
