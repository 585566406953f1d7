// Package resolver turns track metadata into a lyric timeline by checking the
// cache and then querying lyric sources in priority order.
package resolver

import (
	"context"
	"errors"
	"time"

	"lyrics-sync-go/cache"
	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/stats"
	"lyrics-sync-go/timeline"
	"lyrics-sync-go/track"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Config controls adapter calls
type Config struct {
	Timeout     time.Duration // per adapter call
	Threshold   int           // consecutive failures before an adapter's circuit opens
	Cooldown    time.Duration // how long an open circuit skips the adapter
	Translation bool          // query translation adapters
}

// Resolver resolves lyrics for tracks. It never fails: the worst result is an
// empty timeline.
type Resolver struct {
	cfg         Config
	cache       *cache.LyricsCache
	primaries   []providers.Provider
	translators []providers.Provider
	breakers    map[string]*circuitbreaker.CircuitBreaker
	group       singleflight.Group
	stats       *stats.Stats
}

// New creates a resolver over the given adapters, each list in priority order
func New(cfg Config, c *cache.LyricsCache, primaries, translators []providers.Provider) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	r := &Resolver{
		cfg:         cfg,
		cache:       c,
		primaries:   primaries,
		translators: translators,
		breakers:    make(map[string]*circuitbreaker.CircuitBreaker),
		stats:       stats.Get(),
	}
	for _, p := range append(append([]providers.Provider{}, primaries...), translators...) {
		r.breakers[p.Name()] = circuitbreaker.New(circuitbreaker.Config{
			Name:      p.Name(),
			Threshold: cfg.Threshold,
			Cooldown:  cfg.Cooldown,
			IsFailure: func(err error) bool {
				return !providers.IsNotFound(err)
			},
		})
	}
	return r
}

// errAbandoned marks a shared resolution whose leader was canceled
var errAbandoned = errors.New("resolution abandoned")

// Resolve returns the timeline for t. Cached results, including known-empty
// ones, are returned without querying any adapter. Concurrent calls for the
// same track share one resolution; a caller whose shared resolution was
// abandoned by another caller's cancellation resolves again under its own ctx.
func (r *Resolver) Resolve(ctx context.Context, t track.Metadata) *timeline.Timeline {
	fp := t.Fingerprint()
	if tl, ok := r.lookup(fp); ok {
		return tl
	}

	for {
		v, err, shared := r.group.Do(fp.Key(), func() (interface{}, error) {
			// A resolution that finished between the lookup and Do already stored its result
			if tl, ok := r.cache.Get(fp); ok {
				return tl, nil
			}
			r.stats.RecordCacheMiss()
			tl, ok := r.resolve(ctx, t, fp)
			if !ok {
				return nil, errAbandoned
			}
			return tl, nil
		})
		if err == nil {
			if shared {
				log.Debugf("%s Shared in-flight resolution for %s", logcolors.LogResolve, fp.Key())
			}
			return v.(*timeline.Timeline)
		}
		if ctx.Err() != nil {
			return timeline.Empty("")
		}
		log.Debugf("%s Shared resolution for %s was abandoned, retrying", logcolors.LogResolve, fp.Key())
	}
}

func (r *Resolver) lookup(fp track.Fingerprint) (*timeline.Timeline, bool) {
	tl, ok := r.cache.Get(fp)
	if !ok {
		return nil, false
	}
	r.stats.RecordCacheHit(tl.IsEmpty())
	if tl.IsEmpty() {
		log.Debugf("%s Known empty: %s", logcolors.LogCacheNegative, fp.Key())
	} else {
		log.Debugf("%s Cache hit: %s (source: %s)", logcolors.LogCacheLyrics, fp.Key(), tl.Source)
	}
	return tl, true
}

// resolve queries the adapters and caches the result. ok is false when ctx
// ended first; nothing is cached then.
func (r *Resolver) resolve(ctx context.Context, t track.Metadata, fp track.Fingerprint) (*timeline.Timeline, bool) {
	start := time.Now()
	logger := log.WithFields(log.Fields{
		"request_id": uuid.New().String()[:8],
		"track":      t.String(),
	})
	logger.Infof("%s Resolving %s", logcolors.LogResolve, fp.Key())

	tl, res := r.queryPrimaries(ctx, logger, t)

	// Abandoned resolutions prove nothing about the sources, so nothing is cached
	if ctx.Err() != nil {
		logger.Debugf("%s Resolution abandoned: %v", logcolors.LogResolve, ctx.Err())
		return nil, false
	}

	if tl == nil {
		tl = timeline.Empty("")
		logger.Infof("%s No lyrics found in %d sources", logcolors.LogResolve, len(r.primaries))
	} else {
		if r.cfg.Translation && len(r.translators) > 0 && tl.IsSynced() && !tl.HasTranslations() {
			tl = r.mergeTranslation(ctx, logger, t, tl)
		}
		end := t.Duration
		if end <= 0 {
			end = res.TrackDuration
		}
		tl = tl.WithTrackEnd(end)
	}

	if err := r.cache.Put(fp, tl); err != nil {
		r.stats.RecordCacheStoreError()
		logger.Warnf("%s %v", logcolors.LogWarning, err)
	}

	r.stats.RecordResolve(time.Since(start), tl.IsEmpty())
	return tl, true
}

// queryPrimaries returns the first non-empty timeline in priority order
func (r *Resolver) queryPrimaries(ctx context.Context, logger *log.Entry, t track.Metadata) (*timeline.Timeline, *providers.LyricsResult) {
	for i, p := range r.primaries {
		if ctx.Err() != nil {
			return nil, nil
		}
		if i > 0 {
			logger.Debugf("%s Trying %s", logcolors.LogFallback, p.Name())
		}
		tl, res, err := r.fetch(ctx, logger, p, t)
		if err != nil {
			continue
		}
		logger.Infof("%s %s: %d lines (%s)", logcolors.LogSuccess, p.Name(), len(tl.Lines), tl.Format)
		return tl, res
	}
	return nil, nil
}

func (r *Resolver) mergeTranslation(ctx context.Context, logger *log.Entry, t track.Metadata, tl *timeline.Timeline) *timeline.Timeline {
	for _, p := range r.translators {
		trans, _, err := r.fetch(ctx, logger, p, t)
		if err != nil {
			continue
		}
		if !aligned(tl, trans) {
			r.stats.RecordTranslation(false)
			logger.Infof("%s %s does not line up (%d vs %d lines), ignored",
				logcolors.LogTranslation, p.Name(), len(trans.Lines), len(tl.Lines))
			continue
		}

		texts := make([]string, len(trans.Lines))
		for i := range trans.Lines {
			texts[i] = trans.Lines[i].Text
		}
		r.stats.RecordTranslation(true)
		logger.Infof("%s Merged %s", logcolors.LogTranslation, p.Name())
		return tl.WithTranslations(texts)
	}
	return tl
}

// aligned reports whether trans has one line per line of tl at the same start
func aligned(tl, trans *timeline.Timeline) bool {
	if len(tl.Lines) != len(trans.Lines) {
		return false
	}
	for i := range tl.Lines {
		if tl.Lines[i].Start != trans.Lines[i].Start {
			return false
		}
	}
	return true
}

type fetchResult struct {
	res *providers.LyricsResult
	err error
}

// fetch calls one adapter through its breaker and parses the result. Any
// error means "not found" to the caller.
func (r *Resolver) fetch(ctx context.Context, logger *log.Entry, p providers.Provider, t track.Metadata) (*timeline.Timeline, *providers.LyricsResult, error) {
	name := p.Name()
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	res, err := circuitbreaker.Execute(r.breakers[name], func() (*providers.LyricsResult, error) {
		done := make(chan fetchResult, 1)
		go func() {
			res, err := p.Fetch(callCtx, t)
			done <- fetchResult{res: res, err: err}
		}()

		// An adapter ignoring its context is left behind once the deadline passes
		select {
		case fr := <-done:
			return fr.res, fr.err
		case <-callCtx.Done():
			return nil, callCtx.Err()
		}
	})

	if err == nil && (res == nil || res.Raw == "") {
		err = providers.NotFound(name, "empty response")
	}
	if err != nil {
		r.recordFailure(logger, name, err)
		return nil, nil, err
	}

	tl, err := timeline.Parse(res.Raw, res.Format)
	if err == nil && tl.IsEmpty() {
		err = timeline.ErrNoUsableLines
	}
	if err != nil {
		r.stats.RecordAdapter(name, stats.OutcomeNotFound)
		logger.Debugf("%s Unusable lyrics: %v", logcolors.Adapter(name), err)
		return nil, nil, providers.NotFound(name, err.Error())
	}

	tl.Source = name
	r.stats.RecordAdapter(name, stats.OutcomeHit)
	return tl, res, nil
}

func (r *Resolver) recordFailure(logger *log.Entry, name string, err error) {
	prefix := logcolors.Adapter(name)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Debugf("%s Canceled", prefix)
	case errors.Is(err, circuitbreaker.ErrOpen):
		r.stats.RecordAdapter(name, stats.OutcomeCircuitOpen)
		logger.Debugf("%s Skipped, circuit open (retry in %v)", prefix, r.breakers[name].TimeUntilRetry())
	case providers.IsNotFound(err):
		r.stats.RecordAdapter(name, stats.OutcomeNotFound)
		logger.Debugf("%s %v", prefix, err)
	case errors.Is(err, context.DeadlineExceeded):
		r.stats.RecordAdapter(name, stats.OutcomeTimeout)
		logger.Warnf("%s Timed out after %v", prefix, r.cfg.Timeout)
	default:
		r.stats.RecordAdapter(name, stats.OutcomeError)
		logger.Warnf("%s %v", prefix, err)
	}
}

// Invalidate drops the cached result for fp so the next Resolve queries the
// sources again
func (r *Resolver) Invalidate(fp track.Fingerprint) error {
	return r.cache.Invalidate(fp)
}

// Cache returns the underlying cache
func (r *Resolver) Cache() *cache.LyricsCache {
	return r.cache
}

// Primaries returns the primary adapters in priority order
func (r *Resolver) Primaries() []providers.Provider {
	return r.primaries
}

// Translators returns the translation adapters in priority order
func (r *Resolver) Translators() []providers.Provider {
	return r.translators
}

// Breakers returns one circuit breaker per adapter, primaries first
func (r *Resolver) Breakers() []*circuitbreaker.CircuitBreaker {
	out := make([]*circuitbreaker.CircuitBreaker, 0, len(r.breakers))
	for _, p := range r.primaries {
		out = append(out, r.breakers[p.Name()])
	}
	for _, p := range r.translators {
		if b, ok := r.breakers[p.Name()]; ok && !containsBreaker(out, b) {
			out = append(out, b)
		}
	}
	return out
}

func containsBreaker(list []*circuitbreaker.CircuitBreaker, b *circuitbreaker.CircuitBreaker) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}

// ResetBreakers closes every adapter circuit
func (r *Resolver) ResetBreakers() {
	for _, b := range r.breakers {
		b.Reset()
	}
}
