package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lyrics-sync-go/logcolors"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	statsBucketName = "stats"
	statsKey        = "daemon_stats"
)

// Store persists a Stats value in its own bbolt file
type Store struct {
	db       *bolt.DB
	stats    *Stats
	mu       sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// PersistedStats is the on-disk form. Counters accumulate across restarts.
type PersistedStats struct {
	Resolves              int64 `json:"resolves"`
	CacheHits             int64 `json:"cache_hits"`
	CacheMisses           int64 `json:"cache_misses"`
	NegativeCacheHits     int64 `json:"negative_cache_hits"`
	CacheStoreErrors      int64 `json:"cache_store_errors"`
	EmptyResults          int64 `json:"empty_results"`
	TranslationsMerged    int64 `json:"translations_merged"`
	TranslationMismatches int64 `json:"translation_mismatches"`
	TrackChanges          int64 `json:"track_changes"`
	Seeks                 int64 `json:"seeks"`
	StaleResults          int64 `json:"stale_results"`
	TotalRequests         int64 `json:"total_requests"`
	RateLimitExceeded     int64 `json:"rate_limit_exceeded"`

	TotalResolveTime int64 `json:"total_resolve_time"`
	ResolveCount     int64 `json:"resolve_count"`
	MinResolveTime   int64 `json:"min_resolve_time"`
	MaxResolveTime   int64 `json:"max_resolve_time"`

	Adapters map[string]map[string]int64 `json:"adapters"`

	LastSaved    time.Time `json:"last_saved"`
	FirstStarted time.Time `json:"first_started"`
}

// NewStore opens the stats database at dbPath for s
func NewStore(dbPath string, s *Stats) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(statsBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create stats bucket: %w", err)
	}

	log.Infof("%s Stats store initialized at %s", logcolors.LogStats, dbPath)
	return &Store{db: db, stats: s, stopChan: make(chan struct{})}, nil
}

// Load applies the persisted counters to the store's Stats
func (st *Store) Load() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	var p PersistedStats
	found := false
	err := st.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(statsBucketName)).Get([]byte(statsKey))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &p)
	})
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	if !found {
		return nil
	}

	s := st.stats
	s.Resolves.Store(p.Resolves)
	s.CacheHits.Store(p.CacheHits)
	s.CacheMisses.Store(p.CacheMisses)
	s.NegativeCacheHits.Store(p.NegativeCacheHits)
	s.CacheStoreErrors.Store(p.CacheStoreErrors)
	s.EmptyResults.Store(p.EmptyResults)
	s.TranslationsMerged.Store(p.TranslationsMerged)
	s.TranslationMismatches.Store(p.TranslationMismatches)
	s.TrackChanges.Store(p.TrackChanges)
	s.Seeks.Store(p.Seeks)
	s.StaleResults.Store(p.StaleResults)
	s.TotalRequests.Store(p.TotalRequests)
	s.RateLimitExceeded.Store(p.RateLimitExceeded)
	s.totalResolveTime.Store(p.TotalResolveTime)
	s.resolveCount.Store(p.ResolveCount)

	if p.MinResolveTime > 0 && p.MinResolveTime < unsetMin {
		s.minResolveTime.Store(p.MinResolveTime)
	}
	if p.MaxResolveTime > 0 {
		s.maxResolveTime.Store(p.MaxResolveTime)
	}

	for name, outcomes := range p.Adapters {
		v, _ := s.adapters.LoadOrStore(name, &AdapterCounters{})
		c := v.(*AdapterCounters)
		for outcome, n := range outcomes {
			c.counter(AdapterOutcome(outcome)).Store(n)
		}
	}

	if !p.FirstStarted.IsZero() {
		s.StartTime = p.FirstStarted
	}

	log.Infof("%s Loaded persisted stats (resolves: %d, first started: %s)",
		logcolors.LogStats, p.Resolves, p.FirstStarted.Format(time.RFC3339))
	return nil
}

// Save persists the current counters
func (st *Store) Save() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.stats
	p := PersistedStats{
		Resolves:              s.Resolves.Load(),
		CacheHits:             s.CacheHits.Load(),
		CacheMisses:           s.CacheMisses.Load(),
		NegativeCacheHits:     s.NegativeCacheHits.Load(),
		CacheStoreErrors:      s.CacheStoreErrors.Load(),
		EmptyResults:          s.EmptyResults.Load(),
		TranslationsMerged:    s.TranslationsMerged.Load(),
		TranslationMismatches: s.TranslationMismatches.Load(),
		TrackChanges:          s.TrackChanges.Load(),
		Seeks:                 s.Seeks.Load(),
		StaleResults:          s.StaleResults.Load(),
		TotalRequests:         s.TotalRequests.Load(),
		RateLimitExceeded:     s.RateLimitExceeded.Load(),
		TotalResolveTime:      s.totalResolveTime.Load(),
		ResolveCount:          s.resolveCount.Load(),
		MinResolveTime:        s.minResolveTime.Load(),
		MaxResolveTime:        s.maxResolveTime.Load(),
		Adapters:              s.adapterSnapshot(),
		LastSaved:             time.Now(),
		FirstStarted:          s.StartTime,
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	err = st.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(statsBucketName)).Put([]byte(statsKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// StartAutoSave begins periodic saving of stats
func (st *Store) StartAutoSave(interval time.Duration) {
	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := st.Save(); err != nil {
					log.Warnf("%s Failed to auto-save stats: %v", logcolors.LogStats, err)
				}
			case <-st.stopChan:
				return
			}
		}
	}()
	log.Infof("%s Started auto-save with interval %v", logcolors.LogStats, interval)
}

// Close stops auto-save, saves once more and closes the database
func (st *Store) Close() error {
	st.stopOnce.Do(func() { close(st.stopChan) })
	st.wg.Wait()

	if err := st.Save(); err != nil {
		log.Warnf("%s Failed to save stats on close: %v", logcolors.LogStats, err)
	} else {
		log.Infof("%s Stats saved on shutdown", logcolors.LogStats)
	}
	return st.db.Close()
}
