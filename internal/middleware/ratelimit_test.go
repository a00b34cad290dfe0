package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllow_ExhaustsBudget(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("client-a") {
			t.Fatalf("Expected request %d within budget to be allowed", i+1)
		}
	}
	if rl.Allow("client-a") {
		t.Error("Expected request past the budget to be denied")
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if !rl.Allow("client-a") {
		t.Fatal("Expected first request to be allowed")
	}
	if rl.Allow("client-a") {
		t.Error("Expected client-a to be out of budget")
	}
	if !rl.Allow("client-b") {
		t.Error("Expected client-b to have its own budget")
	}
}

func TestAllow_RefillsAfterWindow(t *testing.T) {
	rl := NewRateLimiter(2, 50*time.Millisecond)

	rl.Allow("client-a")
	rl.Allow("client-a")
	if rl.Allow("client-a") {
		t.Fatal("Expected empty bucket before refill")
	}

	time.Sleep(60 * time.Millisecond)

	if !rl.Allow("client-a") {
		t.Error("Expected bucket to refill after the window elapsed")
	}
}

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/calculations", nil)
		req.RemoteAddr = "10.0.0.1:50000"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200 for request %d, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/calculations", nil)
	req.RemoteAddr = "10.0.0.1:50000"
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected status 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Errorf("Expected X-RateLimit-Limit 2, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("Expected X-RateLimit-Remaining 0, got %q", got)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Expected Retry-After 60, got %q", got)
	}
}

func TestClientKey_PrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:50000"

	if got := clientKey(req); got != "10.0.0.1:50000" {
		t.Errorf("Expected RemoteAddr fallback, got %q", got)
	}

	req.Header.Set("X-Real-IP", "203.0.113.9")
	if got := clientKey(req); got != "203.0.113.9" {
		t.Errorf("Expected X-Real-IP, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.2")
	if got := clientKey(req); got != "198.51.100.7" {
		t.Errorf("Expected first forwarded ip, got %q", got)
	}
}
