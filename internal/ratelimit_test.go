package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	limiter := newRateLimiter(1, 1, time.Minute)
	limiter.now = func() time.Time { return clock }

	if !limiter.allow("client") {
		t.Fatalf("expected first request to be allowed")
	}
	if limiter.allow("client") {
		t.Fatalf("expected second request to be rate limited")
	}

	clock = clock.Add(1100 * time.Millisecond)
	if !limiter.allow("client") {
		t.Fatalf("expected request after refill to be allowed")
	}
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	limiter := newRateLimiter(1, 1, time.Minute)
	limiter.now = func() time.Time { return clock }

	limiter.allow("a")
	clock = clock.Add(2 * time.Minute)
	limiter.allow("b")

	if _, ok := limiter.store["a"]; ok {
		t.Fatalf("expected idle client to be swept")
	}
	if _, ok := limiter.store["b"]; !ok {
		t.Fatalf("expected active client to remain")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimit(1, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [200 429], got %v", codes)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	called := 0
	handler := RateLimit(0, 0, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))
	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if called != 3 {
		t.Fatalf("expected every request through, got %d", called)
	}
}
