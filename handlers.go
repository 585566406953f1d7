package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"lyrics-sync-go/cache"
	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/stats"
	"lyrics-sync-go/timeline"
	"lyrics-sync-go/track"

	log "github.com/sirupsen/logrus"
)

func helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"name": "lyrics-sync",
		"endpoints": map[string]string{
			"/cue":                   "Current line, word and progress",
			"/timeline":              "Timeline of the current track (?format=lrc for LRC)",
			"/track":                 "Current track and sync state",
			"/resolve":               "Resolve lyrics for ?artist=&title=[&album=&duration=&force=1&format=lrc]",
			"/health":                "Health summary",
			"/stats":                 "Counters",
			"/providers":             "Registered and configured lyric sources",
			"/cache":                 "Cache status",
			"/cache/keys":            "Cached fingerprint keys",
			"/cache/invalidate":      "Drop one entry (?key= or ?artist=&title=&duration=) [admin]",
			"/cache/clear":           "Back up and clear the cache [admin]",
			"/cache/backup":          "Back up the bolt mirror",
			"/cache/backups":         "List backups",
			"/cache/restore":         "Restore ?backup= [admin]",
			"/cache/backups/delete":  "Delete ?backup= [admin]",
			"/circuit-breaker":       "Breaker state per source",
			"/circuit-breaker/reset": "Close every breaker [admin]",
		},
	})
}

func getCue(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(syncer.Current())
}

func getTimeline(w http.ResponseWriter, r *http.Request) {
	tl := syncer.Timeline()
	if tl == nil {
		Respond(w, r).Error(http.StatusNotFound, "no timeline loaded")
		return
	}
	writeTimeline(w, r, Respond(w, r).SetProvider(tl.Source), tl)
}

func writeTimeline(w http.ResponseWriter, r *http.Request, resp *APIResponse, tl *timeline.Timeline) {
	if strings.EqualFold(r.URL.Query().Get("format"), "lrc") {
		resp.Text(timeline.FormatLRC(tl))
		return
	}
	resp.JSON(tl)
}

func getTrack(w http.ResponseWriter, r *http.Request) {
	resp := TrackResponse{
		State:        syncer.State(),
		Generation:   syncer.Generation(),
		ActivePlayer: loop.Active(),
	}
	if t := syncer.Track(); !t.IsZero() {
		resp.Track = &t
		resp.Fingerprint = t.Fingerprint().Key()
	}
	if tl := syncer.Timeline(); tl != nil {
		resp.LineCount = len(tl.Lines)
		resp.Source = tl.Source
	}
	Respond(w, r).JSON(resp)
}

// trackFromQuery reads artist, title, album and duration (seconds)
func trackFromQuery(r *http.Request) (track.Metadata, bool) {
	q := r.URL.Query()
	t := track.Metadata{
		Artist: strings.TrimSpace(q.Get("artist")),
		Title:  strings.TrimSpace(q.Get("title")),
		Album:  strings.TrimSpace(q.Get("album")),
	}
	if d := q.Get("duration"); d != "" {
		if secs, err := strconv.ParseFloat(d, 64); err == nil && secs > 0 {
			t.Duration = time.Duration(secs * float64(time.Second))
		}
	}
	return t, t.Title != ""
}

// replayIfCurrent re-resolves the followed track when its cache key is fp
func replayIfCurrent(fp track.Fingerprint) bool {
	current := loop.Current()
	if current.IsZero() || current.Fingerprint() != fp {
		return false
	}
	return loop.Replay()
}

func resolveHandler(w http.ResponseWriter, r *http.Request) {
	t, ok := trackFromQuery(r)
	if !ok {
		Respond(w, r).Error(http.StatusUnprocessableEntity, "title not provided")
		return
	}
	fp := t.Fingerprint()

	if r.URL.Query().Get("force") == "1" {
		if err := lyricsResolver.Invalidate(fp); err != nil {
			log.Warnf("%s Failed to invalidate %s: %v", logcolors.LogCache, fp, err)
		}
		replayIfCurrent(fp)
	}

	cacheStatus := "MISS"
	if cached, hit := lyricsResolver.Cache().Get(fp); hit {
		cacheStatus = "HIT"
		if cached.IsEmpty() {
			cacheStatus = "NEGATIVE_HIT"
		}
	}

	tl := lyricsResolver.Resolve(r.Context(), t)
	resp := Respond(w, r).SetCacheStatus(cacheStatus).SetProvider(tl.Source)
	if tl.IsEmpty() {
		resp.Error(http.StatusNotFound, "no lyrics found")
		return
	}
	writeTimeline(w, r, resp, tl)
}

func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	var open []string
	for _, b := range lyricsResolver.Breakers() {
		if b.IsOpen() {
			open = append(open, b.Name())
		}
	}

	health := map[string]interface{}{
		"status":        "ok",
		"sync_state":    syncer.State(),
		"active_player": loop.Active(),
		"cache_entries": lyricsResolver.Cache().Len(),
		"sources":       len(lyricsResolver.Primaries()),
	}
	if len(open) > 0 {
		health["status"] = "degraded"
		health["open_circuits"] = open
	}
	if len(lyricsResolver.Primaries()) == 0 {
		health["status"] = "unhealthy"
		health["error"] = "no lyrics sources configured"
	}
	Respond(w, r).JSON(health)
}

func getStats(w http.ResponseWriter, r *http.Request) {
	snapshot := stats.Get().Snapshot()
	snapshot["cache_storage"] = cacheStorage(lyricsResolver.Cache())

	breakers := make([]circuitbreaker.Stats, 0)
	for _, b := range lyricsResolver.Breakers() {
		breakers = append(breakers, b.Stats())
	}
	snapshot["circuit_breakers"] = breakers

	Respond(w, r).JSON(snapshot)
}

func cacheStorage(lc *cache.LyricsCache) CacheStorage {
	switch m := lc.Mirror().(type) {
	case nil:
		return CacheStorage{Backend: "memory"}
	case *cache.BoltMirror:
		numKeys, sizeKB := m.Stats()
		return CacheStorage{Backend: m.Name(), Keys: numKeys, SizeKB: sizeKB, SizeMB: float64(sizeKB) / 1024}
	default:
		return CacheStorage{Backend: m.Name()}
	}
}

func getCacheStatus(w http.ResponseWriter, r *http.Request) {
	lc := lyricsResolver.Cache()
	s := stats.Get()
	Respond(w, r).JSON(CacheStatusResponse{
		Entries:  lc.Len(),
		Capacity: conf.Configuration.CacheCapacity,
		Storage:  cacheStorage(lc),
		Performance: CachePerformance{
			Hits:         s.CacheHits.Load(),
			Misses:       s.CacheMisses.Load(),
			NegativeHits: s.NegativeCacheHits.Load(),
			StoreErrors:  s.CacheStoreErrors.Load(),
			HitRate:      s.CacheHitRate(),
		},
	})
}

func cacheKeys(w http.ResponseWriter, r *http.Request) {
	keys := lyricsResolver.Cache().Keys()
	Respond(w, r).JSON(map[string]interface{}{
		"count": len(keys),
		"keys":  keys,
	})
}

func invalidateCache(w http.ResponseWriter, r *http.Request) {
	var fp track.Fingerprint
	if key := r.URL.Query().Get("key"); key != "" {
		parsed, err := track.ParseKey(key)
		if err != nil {
			Respond(w, r).Error(http.StatusBadRequest, err.Error())
			return
		}
		fp = parsed
	} else {
		t, ok := trackFromQuery(r)
		if !ok {
			Respond(w, r).Error(http.StatusBadRequest, "provide ?key= or ?artist=&title=&duration=")
			return
		}
		fp = t.Fingerprint()
	}

	if err := lyricsResolver.Invalidate(fp); err != nil {
		log.Errorf("%s Failed to invalidate %s: %v", logcolors.LogCacheClear, fp, err)
		Respond(w, r).Error(http.StatusInternalServerError, err.Error())
		return
	}

	replayed := replayIfCurrent(fp)

	log.Infof("%s Invalidated %s", logcolors.LogCacheClear, fp)
	Respond(w, r).JSON(map[string]interface{}{
		"message":  "Entry invalidated",
		"key":      fp.Key(),
		"replayed": replayed,
	})
}

func clearCache(w http.ResponseWriter, r *http.Request) {
	lc := lyricsResolver.Cache()

	backupPath := ""
	if bolt, ok := lc.Mirror().(*cache.BoltMirror); ok {
		path, err := bolt.Backup()
		if err != nil {
			log.Errorf("%s Failed to back up before clearing: %v", logcolors.LogCacheClear, err)
			Respond(w, r).Error(http.StatusInternalServerError, "Failed to back up cache: "+err.Error())
			return
		}
		backupPath = path
	}

	if err := lc.Clear(); err != nil {
		log.Errorf("%s Failed to clear cache: %v", logcolors.LogCacheClear, err)
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to clear cache: "+err.Error())
		return
	}

	log.Infof("%s Cache cleared (backup: %q)", logcolors.LogCacheClear, backupPath)
	Respond(w, r).JSON(map[string]interface{}{
		"message":     "Cache cleared successfully",
		"backup_path": backupPath,
	})
}

// boltMirror returns the bolt mirror, writing an error when the cache has none
func boltMirror(w http.ResponseWriter, r *http.Request) (*cache.BoltMirror, bool) {
	bolt, ok := lyricsResolver.Cache().Mirror().(*cache.BoltMirror)
	if !ok {
		Respond(w, r).Error(http.StatusNotImplemented, "backups need the bolt cache backend")
		return nil, false
	}
	return bolt, true
}

func backupCache(w http.ResponseWriter, r *http.Request) {
	bolt, ok := boltMirror(w, r)
	if !ok {
		return
	}

	backupPath, err := bolt.Backup()
	if err != nil {
		log.Errorf("%s Failed to create backup: %v", logcolors.LogCacheBackup, err)
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to create backup: "+err.Error())
		return
	}

	log.Infof("%s Backup created at: %s", logcolors.LogCacheBackup, backupPath)
	Respond(w, r).JSON(map[string]interface{}{
		"message":     "Backup created successfully",
		"backup_path": backupPath,
	})
}

func listBackups(w http.ResponseWriter, r *http.Request) {
	bolt, ok := boltMirror(w, r)
	if !ok {
		return
	}

	backups, err := bolt.ListBackups()
	if err != nil {
		log.Errorf("%s Failed to list backups: %v", logcolors.LogCacheBackup, err)
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to list backups: "+err.Error())
		return
	}
	Respond(w, r).JSON(BackupsResponse{Count: len(backups), Backups: backups})
}

func restoreCache(w http.ResponseWriter, r *http.Request) {
	bolt, ok := boltMirror(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("backup")
	if name == "" {
		Respond(w, r).Error(http.StatusBadRequest, "Missing 'backup' query parameter. Use /cache/backups to list available backups.")
		return
	}

	if err := bolt.Restore(name); err != nil {
		log.Errorf("%s Failed to restore from backup %s: %v", logcolors.LogCacheRestore, name, err)
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to restore from backup: "+err.Error())
		return
	}
	if err := lyricsResolver.Cache().Reload(); err != nil {
		log.Warnf("%s Restored %s but reload failed: %v", logcolors.LogCacheRestore, name, err)
	}

	numKeys, sizeKB := bolt.Stats()
	log.Infof("%s Cache restored from backup: %s", logcolors.LogCacheRestore, name)
	Respond(w, r).JSON(map[string]interface{}{
		"message":       "Cache restored successfully",
		"restored_from": name,
		"keys_restored": numKeys,
		"size_kb":       sizeKB,
	})
}

func deleteBackup(w http.ResponseWriter, r *http.Request) {
	bolt, ok := boltMirror(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("backup")
	if name == "" {
		Respond(w, r).Error(http.StatusBadRequest, "Missing 'backup' query parameter")
		return
	}
	if err := bolt.DeleteBackup(name); err != nil {
		Respond(w, r).Error(http.StatusBadRequest, err.Error())
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"message": "Backup deleted",
		"deleted": name,
	})
}

func getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	resp := BreakerStatusResponse{
		Breakers: make([]circuitbreaker.Stats, 0),
		Config: BreakerConfig{
			Threshold:   conf.Configuration.CircuitBreakerThreshold,
			CooldownSec: conf.Configuration.CircuitBreakerCooldownSecs,
		},
	}
	for _, b := range lyricsResolver.Breakers() {
		resp.Breakers = append(resp.Breakers, b.Stats())
	}
	Respond(w, r).JSON(resp)
}

func resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	lyricsResolver.ResetBreakers()
	Respond(w, r).JSON(map[string]interface{}{
		"message": "Circuit breakers reset to CLOSED state",
	})
}

func getProviders(w http.ResponseWriter, r *http.Request) {
	resp := ProvidersResponse{
		Registered:  providers.List(),
		Primary:     make([]string, 0),
		Translation: make([]string, 0),
		Unknown:     unknownSources,
	}
	for _, p := range lyricsResolver.Primaries() {
		resp.Primary = append(resp.Primary, p.Name())
	}
	for _, p := range lyricsResolver.Translators() {
		resp.Translation = append(resp.Translation, p.Name())
	}
	Respond(w, r).JSON(resp)
}
