package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// AdapterOutcome classifies one adapter call
type AdapterOutcome string

const (
	OutcomeHit         AdapterOutcome = "hit"
	OutcomeNotFound    AdapterOutcome = "not_found"
	OutcomeError       AdapterOutcome = "error"
	OutcomeTimeout     AdapterOutcome = "timeout"
	OutcomeCircuitOpen AdapterOutcome = "circuit_open"
)

// AdapterCounters tracks call outcomes for one adapter
type AdapterCounters struct {
	Hits        atomic.Int64
	NotFound    atomic.Int64
	Errors      atomic.Int64
	Timeouts    atomic.Int64
	CircuitOpen atomic.Int64
}

func (a *AdapterCounters) counter(o AdapterOutcome) *atomic.Int64 {
	switch o {
	case OutcomeHit:
		return &a.Hits
	case OutcomeNotFound:
		return &a.NotFound
	case OutcomeTimeout:
		return &a.Timeouts
	case OutcomeCircuitOpen:
		return &a.CircuitOpen
	default:
		return &a.Errors
	}
}

// Stats holds daemon statistics with atomic counters
type Stats struct {
	StartTime time.Time

	// Resolution
	Resolves              atomic.Int64
	CacheHits             atomic.Int64
	CacheMisses           atomic.Int64
	NegativeCacheHits     atomic.Int64
	CacheStoreErrors      atomic.Int64
	EmptyResults          atomic.Int64
	TranslationsMerged    atomic.Int64
	TranslationMismatches atomic.Int64

	// Synchronizer
	TrackChanges    atomic.Int64
	PositionUpdates atomic.Int64
	Seeks           atomic.Int64
	StaleResults    atomic.Int64

	// HTTP
	TotalRequests     atomic.Int64
	RateLimitRead     atomic.Int64
	RateLimitResolve  atomic.Int64
	RateLimitExceeded atomic.Int64
	Status2xx         atomic.Int64
	Status4xx         atomic.Int64
	Status5xx         atomic.Int64

	// Resolve time tracking (microseconds)
	totalResolveTime atomic.Int64
	resolveCount     atomic.Int64
	minResolveTime   atomic.Int64
	maxResolveTime   atomic.Int64

	adapters sync.Map // map[string]*AdapterCounters
}

const unsetMin = int64(^uint64(0) >> 1)

// New returns a zeroed Stats starting now
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResolveTime.Store(unsetMin)
	return s
}

var global = New()

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordCacheHit records a cache hit; empty marks a known-empty entry
func (s *Stats) RecordCacheHit(empty bool) {
	s.CacheHits.Add(1)
	if empty {
		s.NegativeCacheHits.Add(1)
	}
}

// RecordCacheMiss records a cache miss
func (s *Stats) RecordCacheMiss() {
	s.CacheMisses.Add(1)
}

// RecordCacheStoreError records a failed cache write
func (s *Stats) RecordCacheStoreError() {
	s.CacheStoreErrors.Add(1)
}

// RecordAdapter records the outcome of one adapter call
func (s *Stats) RecordAdapter(name string, outcome AdapterOutcome) {
	v, _ := s.adapters.LoadOrStore(name, &AdapterCounters{})
	v.(*AdapterCounters).counter(outcome).Add(1)
}

// Adapter returns the counters for name, or nil if it was never recorded
func (s *Stats) Adapter(name string) *AdapterCounters {
	if v, ok := s.adapters.Load(name); ok {
		return v.(*AdapterCounters)
	}
	return nil
}

// RecordResolve records a finished resolution and how long it took
func (s *Stats) RecordResolve(duration time.Duration, empty bool) {
	s.Resolves.Add(1)
	if empty {
		s.EmptyResults.Add(1)
	}

	us := duration.Microseconds()
	s.totalResolveTime.Add(us)
	s.resolveCount.Add(1)

	for {
		current := s.minResolveTime.Load()
		if us >= current || s.minResolveTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResolveTime.Load()
		if us <= current || s.maxResolveTime.CompareAndSwap(current, us) {
			break
		}
	}
}

// RecordTranslation records whether a translation lined up with the timeline
func (s *Stats) RecordTranslation(merged bool) {
	if merged {
		s.TranslationsMerged.Add(1)
	} else {
		s.TranslationMismatches.Add(1)
	}
}

// RecordRateLimit records rate limit tier usage
func (s *Stats) RecordRateLimit(tier string) {
	switch tier {
	case "read":
		s.RateLimitRead.Add(1)
	case "resolve":
		s.RateLimitResolve.Add(1)
	case "exceeded":
		s.RateLimitExceeded.Add(1)
	}
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	s.TotalRequests.Add(1)
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// Uptime returns the daemon uptime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// CacheHitRate returns the cache hit rate as a percentage
func (s *Stats) CacheHitRate() float64 {
	hits := s.CacheHits.Load()
	total := hits + s.CacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// AvgResolveTime returns the average resolution time
func (s *Stats) AvgResolveTime() time.Duration {
	count := s.resolveCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResolveTime.Load()/count) * time.Microsecond
}

// MinResolveTime returns the fastest resolution
func (s *Stats) MinResolveTime() time.Duration {
	v := s.minResolveTime.Load()
	if v == unsetMin {
		return 0
	}
	return time.Duration(v) * time.Microsecond
}

// MaxResolveTime returns the slowest resolution
func (s *Stats) MaxResolveTime() time.Duration {
	return time.Duration(s.maxResolveTime.Load()) * time.Microsecond
}

func (s *Stats) adapterSnapshot() map[string]map[string]int64 {
	out := map[string]map[string]int64{}
	s.adapters.Range(func(k, v interface{}) bool {
		c := v.(*AdapterCounters)
		out[k.(string)] = map[string]int64{
			string(OutcomeHit):         c.Hits.Load(),
			string(OutcomeNotFound):    c.NotFound.Load(),
			string(OutcomeError):       c.Errors.Load(),
			string(OutcomeTimeout):     c.Timeouts.Load(),
			string(OutcomeCircuitOpen): c.CircuitOpen.Load(),
		}
		return true
	})
	return out
}

// AdapterNames returns the recorded adapter names, sorted
func (s *Stats) AdapterNames() []string {
	var names []string
	s.adapters.Range(func(k, _ interface{}) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"resolver": map[string]interface{}{
			"resolves":               s.Resolves.Load(),
			"empty_results":          s.EmptyResults.Load(),
			"translations_merged":    s.TranslationsMerged.Load(),
			"translation_mismatches": s.TranslationMismatches.Load(),
			"avg_time":               s.AvgResolveTime().String(),
			"min_time":               s.MinResolveTime().String(),
			"max_time":               s.MaxResolveTime().String(),
		},
		"cache": map[string]interface{}{
			"hits":          s.CacheHits.Load(),
			"misses":        s.CacheMisses.Load(),
			"negative_hits": s.NegativeCacheHits.Load(),
			"store_errors":  s.CacheStoreErrors.Load(),
			"hit_rate":      s.CacheHitRate(),
		},
		"adapters": s.adapterSnapshot(),
		"sync": map[string]interface{}{
			"track_changes":    s.TrackChanges.Load(),
			"position_updates": s.PositionUpdates.Load(),
			"seeks":            s.Seeks.Load(),
			"stale_results":    s.StaleResults.Load(),
		},
		"http": map[string]interface{}{
			"total":               s.TotalRequests.Load(),
			"read_tier":           s.RateLimitRead.Load(),
			"resolve_tier":        s.RateLimitResolve.Load(),
			"rate_limit_exceeded": s.RateLimitExceeded.Load(),
			"2xx":                 s.Status2xx.Load(),
			"4xx":                 s.Status4xx.Load(),
			"5xx":                 s.Status5xx.Load(),
		},
	}
}
