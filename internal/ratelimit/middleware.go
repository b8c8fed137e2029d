package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// Options tunes Middleware. Both fields are optional.
type Options struct {
	Logger *zap.Logger
	// OnLimited is called for every rejected request.
	OnLimited func(key string)
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header, keyed by client IP. Limiter failures let the request through.
func Middleware(limiter Limiter, opts Options) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			d, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.String("client", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				if opts.OnLimited != nil {
					opts.OnLimited(key)
				}
				retry := int(math.Ceil(d.RetryAfter.Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP is the host part of the request's remote address.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
