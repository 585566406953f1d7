package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIKeyMiddleware(t *testing.T) {
	protected := []string{"/cache/clear", "/cache/restore", "/circuit-breaker/reset"}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		apiKey   string
		path     string
		header   string
		expected int
	}{
		{"no key configured", "", "/cache/clear", "", http.StatusOK},
		{"unprotected path", "secret", "/cue", "", http.StatusOK},
		{"missing key", "secret", "/cache/clear", "", http.StatusUnauthorized},
		{"wrong key", "secret", "/cache/restore", "nope", http.StatusUnauthorized},
		{"valid key", "secret", "/circuit-breaker/reset", "secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := APIKeyMiddleware(tt.apiKey, protected)(ok)
			req := httptest.NewRequest("POST", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, rec.Code)
			}
		})
	}
}

func TestAPIKeyMiddleware_PrefixPath(t *testing.T) {
	handler := APIKeyMiddleware("secret", []string{"/cache/*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("POST", "/cache/invalidate", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected prefix match to be protected, got %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/cue", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected /cue to pass, got %d", rec.Code)
	}
}

func TestValidAPIKey(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if ValidAPIKey(req, "") {
		t.Error("Expected empty key to never match")
	}
	req.Header.Set("X-API-Key", "secret")
	if !ValidAPIKey(req, "secret") {
		t.Error("Expected matching key to be valid")
	}
}
