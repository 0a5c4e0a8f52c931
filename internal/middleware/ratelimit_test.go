package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func rlOKHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func limitedRequest(handler http.Handler, tenant, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = addr
	if tenant != "" {
		req.Header.Set(headerTenantID, tenant)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	handler := rl.Handler(rlOKHandler())

	for i := range 10 {
		rec := limitedRequest(handler, "", "192.168.1.1:4000")
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(10, 5)
	handler := rl.Handler(rlOKHandler())

	for range 5 {
		limitedRequest(handler, "", "192.168.1.1:4000")
	}

	rec := limitedRequest(handler, "", "192.168.1.1:4000")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimiterSetsHeaders(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	handler := rl.Handler(rlOKHandler())

	rec := limitedRequest(handler, "", "192.168.1.1:4000")
	if rec.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("expected X-RateLimit-Remaining header")
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("expected X-RateLimit-Reset header")
	}
}

func TestRateLimiterBucketsPerTenant(t *testing.T) {
	rl := NewRateLimiter(10, 2)
	handler := TenantID(rl.Handler(rlOKHandler()))

	// Exhaust tenant A's bucket from one address.
	for range 2 {
		limitedRequest(handler, "tenant-a", "10.0.0.1:5000")
	}
	rec := limitedRequest(handler, "tenant-a", "10.0.0.1:5000")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("tenant-a: expected 429, got %d", rec.Code)
	}

	// Tenant B from the same address has its own bucket.
	rec = limitedRequest(handler, "tenant-b", "10.0.0.1:5000")
	if rec.Code != http.StatusOK {
		t.Errorf("tenant-b: expected 200, got %d", rec.Code)
	}
}

func TestRateLimiterFallsBackToIP(t *testing.T) {
	rl := NewRateLimiter(10, 2)
	handler := rl.Handler(rlOKHandler())

	for range 2 {
		limitedRequest(handler, "", "10.0.0.1:5000")
	}

	rec := limitedRequest(handler, "", "10.0.0.1:5000")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("10.0.0.1: expected 429, got %d", rec.Code)
	}

	rec = limitedRequest(handler, "", "10.0.0.2:5000")
	if rec.Code != http.StatusOK {
		t.Errorf("10.0.0.2: expected 200, got %d", rec.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	handler := rl.Handler(rlOKHandler())

	limitedRequest(handler, "", "10.0.0.1:5000")
	limitedRequest(handler, "", "10.0.0.2:5000")
	if rl.Len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", rl.Len())
	}

	time.Sleep(5 * time.Millisecond)
	rl.cleanup(time.Millisecond)

	if rl.Len() != 0 {
		t.Errorf("expected 0 buckets after cleanup, got %d", rl.Len())
	}
}
