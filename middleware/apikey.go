package middleware

import (
	"net/http"
	"strings"

	"lyrics-sync-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// APIKeyMiddleware requires the X-API-Key header on protected paths.
// With no key configured every request passes. Paths ending in * match by prefix.
func APIKeyMiddleware(apiKey string, protectedPaths []string) func(http.Handler) http.Handler {
	protected := make(map[string]bool)
	var prefixes []string
	for _, path := range protectedPaths {
		if strings.HasSuffix(path, "*") {
			prefixes = append(prefixes, strings.TrimSuffix(path, "*"))
			continue
		}
		protected[path] = true
	}

	isProtected := func(path string) bool {
		if protected[path] {
			return true
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" || !isProtected(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get("X-API-Key")
			if providedKey == "" {
				log.Warnf("%s Missing API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"API key required","message":"Provide a valid API key via X-API-Key header"}`))
				return
			}

			if providedKey != apiKey {
				log.Warnf("%s Invalid API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"Invalid API key","message":"The provided API key is not valid"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ValidAPIKey reports whether r carries apiKey. An empty apiKey never matches.
func ValidAPIKey(r *http.Request, apiKey string) bool {
	return apiKey != "" && r.Header.Get("X-API-Key") == apiKey
}
