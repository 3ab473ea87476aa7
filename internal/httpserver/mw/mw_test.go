package mw

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/updater/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host    string
		pattern string
		want    bool
	}{
		{"updater.example.com", "updater.example.com", true},
		{"updater.example.com:8080", "updater.example.com", true},
		{"updater.example.com:8080", "updater.example.com:8080", true},
		{"UPDATER.example.com", "updater.example.com", true},
		{"a.example.com", "*.example.com", true},
		{"a.example.com:443", "*.example.com", true},
		{"example.com", "*.example.com", false},
		{"evil.com", "updater.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.host+"_"+tt.pattern, func(t *testing.T) {
			if got := matchHost(tt.host, tt.pattern); got != tt.want {
				t.Errorf("matchHost(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"updater.local"}, logger.Nop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/update", nil)
	req.Host = "updater.local"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("allowed host got %d", rec.Code)
	}

	req.Host = "other.local"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("rejected host got %d", rec.Code)
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		remoteAddr string
		xff        string
		trustProxy bool
		want       int
	}{
		{name: "empty list is passthrough", remoteAddr: "203.0.113.9:1234", want: http.StatusOK},
		{name: "inside cidr", allowed: []string{"10.0.0.0/8"}, remoteAddr: "10.1.2.3:1234", want: http.StatusOK},
		{name: "outside cidr", allowed: []string{"10.0.0.0/8"}, remoteAddr: "203.0.113.9:1234", want: http.StatusForbidden},
		{name: "exact ip", allowed: []string{"192.168.1.4"}, remoteAddr: "192.168.1.4:80", want: http.StatusOK},
		{
			name:       "forwarded ip ignored without trust",
			allowed:    []string{"10.0.0.0/8"},
			remoteAddr: "127.0.0.1:1234",
			xff:        "10.0.0.1",
			want:       http.StatusForbidden,
		},
		{
			name:       "forwarded ip with trust",
			allowed:    []string{"10.0.0.0/8"},
			remoteAddr: "127.0.0.1:1234",
			xff:        "10.0.0.1, 127.0.0.1",
			trustProxy: true,
			want:       http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AllowOnlyCIDRS(tt.allowed, tt.trustProxy, logger.Nop())(okHandler)

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRateLimit(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	h := RateLimit(RateLimitConfig{
		Burst:             2,
		RefillPerIPPerMin: 6, // one token every 10s
		Now:               clock.Now,
	})(okHandler)

	do := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/license", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := do("10.0.0.1:1000")
	if first.Code != http.StatusOK {
		t.Fatalf("first request got %d", first.Code)
	}
	if got := first.Header().Get("X-RateLimit-Remaining"); got != "1" {
		t.Errorf("X-RateLimit-Remaining = %q, want 1", got)
	}
	if got := first.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Errorf("X-RateLimit-Limit = %q, want 2", got)
	}

	if rec := do("10.0.0.1:1000"); rec.Code != http.StatusOK {
		t.Fatalf("second request got %d", rec.Code)
	}

	rejected := do("10.0.0.1:1000")
	if rejected.Code != http.StatusTooManyRequests {
		t.Fatalf("third request got %d, want 429", rejected.Code)
	}
	if got := rejected.Header().Get("Retry-After"); got != "10" {
		t.Errorf("Retry-After = %q, want 10", got)
	}

	// Buckets are per client IP.
	if rec := do("10.0.0.2:1000"); rec.Code != http.StatusOK {
		t.Errorf("other client got %d", rec.Code)
	}

	clock.Advance(10 * time.Second)
	if rec := do("10.0.0.1:1000"); rec.Code != http.StatusOK {
		t.Errorf("request after refill got %d", rec.Code)
	}
}
