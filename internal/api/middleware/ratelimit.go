package middleware

import (
	"net"
	"net/http"

	"github.com/rensmac/go-api-starter/internal/api/response"
	"github.com/rensmac/go-api-starter/internal/ratelimit"
	"github.com/rs/zerolog/log"
)

// RateLimitMiddleware applies per-client admission control before
// handlers run
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(limiter ratelimit.Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit keys the bucket by authenticated user when available, falling
// back to the client IP for anonymous requests
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)

		allowed, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			// A broken limiter backend must not take the API down.
			log.Error().Err(err).Str("key", key).Msg("rate limiter unavailable, admitting request")
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			response.TooManyRequests(w, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if userID, ok := GetUserID(r.Context()); ok {
		return "user:" + userID.String()
	}
	return "ip:" + clientIP(r)
}

// clientIP assumes chi's RealIP middleware already resolved forwarding
// headers into RemoteAddr
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}
