package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"lyrics-sync-go/cache"
	"lyrics-sync-go/config"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/middleware"
	"lyrics-sync-go/resolver"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/stats"
	"lyrics-sync-go/synchronizer"

	_ "lyrics-sync-go/services/providers/kugou"
	_ "lyrics-sync-go/services/providers/local"
	_ "lyrics-sync-go/services/providers/lrclib"
	_ "lyrics-sync-go/services/providers/netease"
	_ "lyrics-sync-go/services/providers/qqmusic"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// adminPaths need X-API-Key when ADMIN_API_KEY is set
var adminPaths = []string{
	"/cache/clear",
	"/cache/restore",
	"/cache/backups/delete",
	"/cache/invalidate",
	"/circuit-breaker/reset",
}

// resolvePaths may reach the network and use the resolve tier
var resolvePaths = map[string]bool{
	"/resolve": true,
}

// newMirror opens the configured durable store. "memory" returns nil.
func newMirror(c config.Config) (cache.Mirror, error) {
	cfg := c.Configuration
	switch cfg.CacheBackend {
	case "memory":
		log.Infof("%s Memory-only cache", logcolors.LogCacheInit)
		return nil, nil
	case "redis":
		return cache.NewRedisMirror(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cache.DefaultRedisPrefix, time.Duration(cfg.RedisTTLHours)*time.Hour)
	default:
		return cache.NewBoltMirror(cfg.CacheDBPath, cfg.CacheBackupPath, c.FeatureFlags.CacheCompression)
	}
}

// newCache builds the lyrics cache, falling back to memory only when the
// mirror cannot be opened
func newCache(c config.Config) (*cache.LyricsCache, error) {
	mirror, err := newMirror(c)
	if err != nil {
		log.Warnf("%s %s mirror unavailable, continuing in memory: %v", logcolors.LogCacheInit, c.Configuration.CacheBackend, err)
		mirror = nil
	}
	return cache.New(c.Configuration.CacheCapacity, mirror)
}

// newResolver wires the configured sources, in priority order
func newResolver(c config.Config, lc *cache.LyricsCache) (*resolver.Resolver, []string) {
	cfg := c.Configuration
	primaries, unknown := providers.Ordered(cfg.LyricsSources, providers.RolePrimary)
	translators, unknownTrans := providers.Ordered(cfg.TranslationSources, providers.RoleTranslation)
	unknown = append(unknown, unknownTrans...)

	for _, name := range unknown {
		log.Warnf("%s Unknown lyrics source %q, available: %v", logcolors.LogConfig, name, providers.List())
	}
	if len(primaries) == 0 {
		log.Warnf("%s No lyrics sources configured, every track will show no lyrics", logcolors.LogConfig)
	}

	names := make([]string, 0, len(primaries))
	for _, p := range primaries {
		names = append(names, p.Name())
	}
	log.Infof("%s Lyrics sources: %v (translation: %v)", logcolors.LogConfig, names, c.FeatureFlags.Translation && len(translators) > 0)

	return resolver.New(resolver.Config{
		Timeout:     c.AdapterTimeout(),
		Threshold:   cfg.CircuitBreakerThreshold,
		Cooldown:    time.Duration(cfg.CircuitBreakerCooldownSecs) * time.Second,
		Translation: c.FeatureFlags.Translation,
	}, lc, primaries, translators), unknown
}

func newSynchronizer(c config.Config, r synchronizer.Resolver) *synchronizer.Synchronizer {
	cfg := c.Configuration
	return synchronizer.New(r, synchronizer.Options{
		SeekThreshold:      time.Duration(cfg.SeekThresholdMs) * time.Millisecond,
		AdvanceTime:        time.Duration(cfg.LyricAdvanceMs) * time.Millisecond,
		MinLastLineDisplay: time.Duration(cfg.MinLastLineDisplayMs) * time.Millisecond,
	})
}

// newRouter builds the API routes with admin key checks applied
func newRouter(c config.Config) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.APIKeyMiddleware(c.Configuration.AdminAPIKey, adminPaths))
	setupRoutes(router)
	return router
}

// newHTTPHandler chains logging, CORS and rate limiting around the router
func newHTTPHandler(c config.Config) http.Handler {
	cfg := c.Configuration
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"X-API-Key", "Content-Type"},
		ExposedHeaders: []string{"X-Cache-Status", "X-Provider", "X-RateLimit-Type", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
	})

	limiter := middleware.NewIPRateLimiter(
		rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurstLimit,
		rate.Limit(cfg.ResolveRateLimitPerSecond), cfg.ResolveRateLimitBurstLimit,
	)

	loggedRouter := middleware.LoggingMiddleware(newRouter(c))
	return limitMiddleware(corsHandler.Handler(loggedRouter), limiter, cfg.AdminAPIKey)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limitMiddleware applies the read tier to status endpoints and the resolve
// tier to endpoints that may query lyric sources. The admin key bypasses both.
func limitMiddleware(next http.Handler, limiter *middleware.IPRateLimiter, apiKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.ValidAPIKey(r, apiKey) {
			w.Header().Set("X-RateLimit-Bypass", "true")
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, "bypass")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		ip := clientIP(r)
		limiters := limiter.GetLimiter(ip)

		tier, l, limit, remaining := "read", limiters.Read, limiter.ReadLimit(), limiters.ReadTokens
		if resolvePaths[r.URL.Path] {
			tier, l, limit, remaining = "resolve", limiters.Resolve, limiter.ResolveLimit(), limiters.ResolveTokens
		}

		if !l.Allow() {
			stats.Get().RecordRateLimit("exceeded")
			log.Warnf("%s %s exceeded the %s tier on %s", logcolors.LogRateLimit, ip, tier, r.URL.Path)
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Type", "exceeded")
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		stats.Get().RecordRateLimit(tier)
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(remaining(), 0)))
		ctx := context.WithValue(r.Context(), rateLimitTypeKey, tier)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
