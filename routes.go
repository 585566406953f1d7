package main

import (
	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	// What is showing now
	router.HandleFunc("/cue", getCue)
	router.HandleFunc("/timeline", getTimeline)
	router.HandleFunc("/track", getTrack)

	// Ad-hoc lookups through the same resolver and cache
	router.HandleFunc("/resolve", resolveHandler)

	// Cache management endpoints
	router.HandleFunc("/cache", getCacheStatus)
	router.HandleFunc("/cache/keys", cacheKeys)
	router.HandleFunc("/cache/invalidate", invalidateCache)
	router.HandleFunc("/cache/clear", clearCache)
	router.HandleFunc("/cache/backup", backupCache)
	router.HandleFunc("/cache/backups", listBackups)
	router.HandleFunc("/cache/restore", restoreCache)
	router.HandleFunc("/cache/backups/delete", deleteBackup)

	// Health and stats endpoints
	router.HandleFunc("/health", getHealthStatus)
	router.HandleFunc("/stats", getStats)
	router.HandleFunc("/providers", getProviders)

	// Circuit breaker endpoints
	router.HandleFunc("/circuit-breaker", getCircuitBreakerStatus)
	router.HandleFunc("/circuit-breaker/reset", resetCircuitBreaker)

	router.HandleFunc("/", helpHandler)
}
