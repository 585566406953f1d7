package main

import (
	"lyrics-sync-go/cache"
	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/synchronizer"
	"lyrics-sync-go/track"
)

type contextKey string

const (
	rateLimitTypeKey contextKey = "rateLimitType"
)

// CachePerformance contains cache hit/miss statistics
type CachePerformance struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	NegativeHits int64   `json:"negative_hits"`
	StoreErrors  int64   `json:"store_errors"`
	HitRate      float64 `json:"hit_rate_percent"`
}

// CacheStorage describes the durable mirror behind the memory cache
type CacheStorage struct {
	Backend string  `json:"backend"`
	Keys    int     `json:"keys,omitempty"`
	SizeKB  int64   `json:"size_kb,omitempty"`
	SizeMB  float64 `json:"size_mb,omitempty"`
}

// CacheStatusResponse is the response format for /cache
type CacheStatusResponse struct {
	Entries     int              `json:"entries"`
	Capacity    int              `json:"capacity"`
	Storage     CacheStorage     `json:"storage"`
	Performance CachePerformance `json:"performance"`
}

// TrackResponse is the response format for /track
type TrackResponse struct {
	State        synchronizer.State `json:"state"`
	Track        *track.Metadata    `json:"track,omitempty"`
	Fingerprint  string             `json:"fingerprint,omitempty"`
	Generation   uint64             `json:"generation"`
	ActivePlayer string             `json:"active_player,omitempty"`
	LineCount    int                `json:"line_count"`
	Source       string             `json:"source,omitempty"`
}

// BreakerStatusResponse is the response format for /circuit-breaker
type BreakerStatusResponse struct {
	Breakers []circuitbreaker.Stats `json:"breakers"`
	Config   BreakerConfig          `json:"config"`
}

// BreakerConfig echoes the configured breaker settings
type BreakerConfig struct {
	Threshold   int `json:"threshold"`
	CooldownSec int `json:"cooldown_sec"`
}

// ProvidersResponse is the response format for /providers
type ProvidersResponse struct {
	Registered  []string `json:"registered"`
	Primary     []string `json:"primary"`
	Translation []string `json:"translation"`
	Unknown     []string `json:"unknown,omitempty"`
}

// BackupsResponse is the response format for /cache/backups
type BackupsResponse struct {
	Count   int                `json:"count"`
	Backups []cache.BackupInfo `json:"backups"`
}
