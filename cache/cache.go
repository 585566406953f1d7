package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/timeline"
	"lyrics-sync-go/track"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

// Error reports a failed cache operation. Callers treat it as a warning.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// LyricsCache maps fingerprints to timelines. An LRU serves reads; non-empty
// timelines are also written to the mirror, when there is one. Empty
// timelines mark sources already queried and live in memory only.
type LyricsCache struct {
	mu       sync.Mutex // orders mirror access with LRU writes
	lru      *lru.Cache[string, *timeline.Timeline]
	capacity int
	mirror   Mirror
	now      func() time.Time
}

// New creates a cache holding up to capacity timelines in memory and loads
// the newest mirror entries. mirror may be nil.
func New(capacity int, mirror Mirror) (*LyricsCache, error) {
	if capacity <= 0 {
		capacity = 512
	}
	l, err := lru.New[string, *timeline.Timeline](capacity)
	if err != nil {
		return nil, err
	}

	c := &LyricsCache{lru: l, capacity: capacity, mirror: mirror, now: time.Now}
	if err := c.load(); err != nil {
		log.Warnf("%s Failed to preload mirror: %v", logcolors.LogCache, err)
	}
	return c, nil
}

// load fills the LRU from the mirror, oldest first so the newest survive
func (c *LyricsCache) load() error {
	if c.mirror == nil {
		return nil
	}

	type loaded struct {
		key string
		env *envelope
	}
	var entries []loaded
	err := c.mirror.Range(func(key string, value []byte) bool {
		env, err := decode(value)
		if err != nil {
			log.Warnf("%s Skipping entry %s: %v", logcolors.LogCacheMirror, key, err)
			return true
		}
		entries = append(entries, loaded{key: key, env: env})
		return true
	})
	if err != nil {
		return err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].env.StoredAt.Before(entries[j].env.StoredAt)
	})
	if len(entries) > c.capacity {
		entries = entries[len(entries)-c.capacity:]
	}
	for _, e := range entries {
		c.lru.Add(e.key, e.env.Timeline)
	}

	log.Infof("%s Loaded %d entries from %s mirror", logcolors.LogCache, len(entries), c.mirror.Name())
	return nil
}

// Get returns the timeline stored for fp. A hit may be an empty timeline.
// Misses read through to the mirror under mu so an Invalidate or Clear
// cannot be undone by a read already in progress.
func (c *LyricsCache) Get(fp track.Fingerprint) (*timeline.Timeline, bool) {
	key := fp.Key()
	if tl, ok := c.lru.Get(key); ok {
		return tl, true
	}
	if c.mirror == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// A Put may have landed while waiting for mu
	if tl, ok := c.lru.Get(key); ok {
		return tl, true
	}

	data, ok, err := c.mirror.Load(key)
	if err != nil {
		log.Warnf("%s %v", logcolors.LogCacheMirror, &Error{Op: "load", Key: key, Err: err})
		return nil, false
	}
	if !ok {
		return nil, false
	}
	env, err := decode(data)
	if err != nil {
		log.Warnf("%s %v", logcolors.LogCacheMirror, &Error{Op: "decode", Key: key, Err: err})
		return nil, false
	}

	c.lru.Add(key, env.Timeline)
	return env.Timeline, true
}

// Put stores tl under fp. The memory entry is always written; a mirror
// failure is returned as *Error.
func (c *LyricsCache) Put(fp track.Fingerprint, tl *timeline.Timeline) error {
	key := fp.Key()
	if tl == nil {
		tl = timeline.Empty("")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, tl)

	if tl.IsEmpty() {
		log.Debugf("%s Remembering empty result for %s", logcolors.LogCacheNegative, key)
		return nil
	}
	if c.mirror == nil {
		return nil
	}

	data, err := encode(tl, c.now())
	if err != nil {
		return &Error{Op: "encode", Key: key, Err: err}
	}
	if err := c.mirror.Store(key, data); err != nil {
		return &Error{Op: "store", Key: key, Err: err}
	}

	log.Debugf("%s Stored %s (%d lines, source: %s)", logcolors.LogCacheLyrics, key, len(tl.Lines), tl.Source)
	return nil
}

// Invalidate drops fp from memory and the mirror
func (c *LyricsCache) Invalidate(fp track.Fingerprint) error {
	key := fp.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Remove(key)
	if c.mirror == nil {
		return nil
	}
	if err := c.mirror.Delete(key); err != nil {
		return &Error{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Clear drops every entry from memory and the mirror
func (c *LyricsCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Purge()
	if c.mirror == nil {
		return nil
	}
	if err := c.mirror.Clear(); err != nil {
		return &Error{Op: "clear", Key: "*", Err: err}
	}
	log.Infof("%s Cache cleared", logcolors.LogCacheClear)
	return nil
}

// Reload replaces the memory front with the mirror's contents, used after a
// backup restore
func (c *LyricsCache) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Purge()
	return c.load()
}

// Len returns the number of entries in memory
func (c *LyricsCache) Len() int {
	return c.lru.Len()
}

// Keys returns the fingerprint keys in memory, oldest first
func (c *LyricsCache) Keys() []string {
	return c.lru.Keys()
}

// Mirror returns the mirror, or nil for a memory-only cache
func (c *LyricsCache) Mirror() Mirror {
	return c.mirror
}

// Close closes the mirror
func (c *LyricsCache) Close() error {
	if c.mirror == nil {
		return nil
	}
	return c.mirror.Close()
}
