package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/meal-hub/internal/config"
)

func limitedHandler(cfg *config.Config) http.Handler {
	return RateLimitMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(h http.Handler, path, remoteAddr, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimit_SecondRequestReturns429(t *testing.T) {
	handler := limitedHandler(&config.Config{RateLimitRPS: 1, RateLimitBurst: 1})

	if rr := doRequest(handler, "/v1/ledger/day", "1.2.3.4:12345", ""); rr.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr.Code)
	}

	rr := doRequest(handler, "/v1/ledger/day", "1.2.3.4:12345", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After=1, got %q", rr.Header().Get("Retry-After"))
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Error.Code != "rate_limited" {
		t.Errorf("expected code=rate_limited, got %q", body.Error.Code)
	}
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	handler := limitedHandler(&config.Config{})

	for i := 0; i < 10; i++ {
		if rr := doRequest(handler, "/v1/meals", "1.2.3.4:12345", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}
}

func TestRateLimit_ClientsIndependent(t *testing.T) {
	handler := limitedHandler(&config.Config{RateLimitRPS: 1, RateLimitBurst: 1})

	if rr := doRequest(handler, "/v1/meals", "1.2.3.4:1", ""); rr.Code != http.StatusOK {
		t.Fatalf("IP1: expected 200, got %d", rr.Code)
	}
	if rr := doRequest(handler, "/v1/meals", "5.6.7.8:1", ""); rr.Code != http.StatusOK {
		t.Fatalf("IP2: expected 200, got %d", rr.Code)
	}

	// same proxy, different forwarded clients
	if rr := doRequest(handler, "/v1/meals", "10.0.0.1:1", "9.9.9.9, 10.0.0.1"); rr.Code != http.StatusOK {
		t.Fatalf("XFF client 1: expected 200, got %d", rr.Code)
	}
	if rr := doRequest(handler, "/v1/meals", "10.0.0.1:1", "8.8.8.8"); rr.Code != http.StatusOK {
		t.Fatalf("XFF client 2: expected 200, got %d", rr.Code)
	}
	if rr := doRequest(handler, "/v1/meals", "10.0.0.2:1", "9.9.9.9"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("XFF client 1 again: expected 429, got %d", rr.Code)
	}
}

func TestRateLimit_HealthzExempt(t *testing.T) {
	handler := limitedHandler(&config.Config{RateLimitRPS: 1, RateLimitBurst: 1})

	for i := 0; i < 5; i++ {
		if rr := doRequest(handler, "/healthz", "1.2.3.4:1", ""); rr.Code != http.StatusOK {
			t.Fatalf("healthz %d: expected 200, got %d", i, rr.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote, xff, want string
	}{
		{"1.2.3.4:80", "", "1.2.3.4"},
		{"1.2.3.4:80", " 5.6.7.8 , 1.2.3.4", "5.6.7.8"},
		{"not-a-hostport", "", "not-a-hostport"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if tt.xff != "" {
			req.Header.Set("X-Forwarded-For", tt.xff)
		}
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q, %q) = %q, want %q", tt.remote, tt.xff, got, tt.want)
		}
	}
}
