package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("backend down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	l, _ := newTestLimiter(1, 0)
	var limited []string
	h := Middleware(l, Options{
		Logger:    zaptest.NewLogger(t),
		OnLimited: func(key string) { limited = append(limited, key) },
	})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "192.0.2.10:5000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// Same IP from a different port shares the window.
	req.RemoteAddr = "192.0.2.10:5001"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())
	assert.Equal(t, []string{"192.0.2.10"}, limited)
}

func TestMiddlewareFailsOpen(t *testing.T) {
	h := Middleware(failingLimiter{}, Options{Logger: zaptest.NewLogger(t)})(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", ClientIP(req))
	req.RemoteAddr = "unix"
	assert.Equal(t, "unix", ClientIP(req))
}

