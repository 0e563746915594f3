package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/meal-hub/internal/config"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS_Preflight(t *testing.T) {
	cfg := &config.Config{CORSAllowedOrigins: []string{"https://app.example.com/"}}

	tests := []struct {
		name        string
		origin      string
		wantOrigin  string
		wantMethods bool
	}{
		{"allowed", "https://app.example.com", "https://app.example.com", true},
		{"disallowed", "https://evil.com", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := CORSMiddleware(cfg, okHandler(&called))

			req := httptest.NewRequest(http.MethodOptions, "/v1/ledger/assign", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", "POST")
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if called {
				t.Error("handler should not be called for preflight")
			}
			if rr.Code != http.StatusNoContent {
				t.Errorf("expected 204, got %d", rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rr.Header().Get("Access-Control-Allow-Methods"); (got != "") != tt.wantMethods {
				t.Errorf("Allow-Methods = %q", got)
			}
		})
	}
}

func TestCORS_NormalRequests(t *testing.T) {
	tests := []struct {
		name            string
		origins         []string
		credentials     bool
		origin          string
		wantOrigin      string
		wantCredentials string
	}{
		{"allowed with credentials", []string{"https://app.example.com"}, true, "https://app.example.com", "https://app.example.com", "true"},
		{"disallowed", []string{"https://app.example.com"}, true, "https://evil.com", "", ""},
		{"no origin header", []string{"https://app.example.com"}, false, "", "", ""},
		{"wildcard drops credentials", []string{"*"}, true, "https://any.example.org", "https://any.example.org", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{CORSAllowedOrigins: tt.origins, CORSAllowCredentials: tt.credentials}
			called := false
			handler := CORSMiddleware(cfg, okHandler(&called))

			req := httptest.NewRequest(http.MethodGet, "/v1/reports", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if !called || rr.Code != http.StatusOK {
				t.Fatalf("inner handler not reached, code %d", rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCredentials {
				t.Errorf("Allow-Credentials = %q, want %q", got, tt.wantCredentials)
			}
		})
	}
}

func TestCORS_OptionsWithoutPreflightHeaderPassesThrough(t *testing.T) {
	cfg := &config.Config{CORSAllowedOrigins: []string{"https://app.example.com"}}
	called := false
	handler := CORSMiddleware(cfg, okHandler(&called))

	req := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !called {
		t.Error("plain OPTIONS should reach the router")
	}
}
