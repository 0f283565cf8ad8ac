package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiterWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	defer rl.Stop()

	now := time.Now()
	if !rl.allowAt("1.1.1.1", now) || !rl.allowAt("1.1.1.1", now) {
		t.Fatal("first two requests should pass")
	}
	if rl.allowAt("1.1.1.1", now.Add(time.Second)) {
		t.Fatal("third request in the window should be limited")
	}
	if !rl.allowAt("2.2.2.2", now) {
		t.Error("other clients are counted separately")
	}
	if !rl.allowAt("1.1.1.1", now.Add(61*time.Second)) {
		t.Error("a new window should reset the count")
	}
	if got := rl.GetMetrics().TotalHits; got != 1 {
		t.Errorf("TotalHits = %d, want 1", got)
	}
}

func TestLimiterCleanup(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 5})
	defer rl.Stop()

	old := time.Now().Add(-time.Hour)
	rl.allowAt("old", old)
	rl.allowAt("new", time.Now())
	if removed := rl.cleanupStaleEntries(time.Now()); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients = %d, want 1", rl.ActiveClients())
	}
}

func TestMiddlewareOnlyCountsConfiguredMethods(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestsPerMinute = 1
	rl := NewLimiter(cfg)
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	serve := func(method string) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/tasks", nil))
		return rr.Code
	}

	for i := 0; i < 3; i++ {
		if code := serve(http.MethodGet); code != http.StatusNoContent {
			t.Fatalf("GET %d = %d", i, code)
		}
	}
	if code := serve(http.MethodPost); code != http.StatusNoContent {
		t.Fatalf("first POST = %d", code)
	}
	if code := serve(http.MethodDelete); code != http.StatusTooManyRequests {
		t.Fatalf("second mutating request = %d, want 429", code)
	}
}

func TestStopTwice(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
