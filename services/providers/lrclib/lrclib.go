package lrclib

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lyrics-sync-go/config"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/timeline"
	"lyrics-sync-go/track"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the LRCLIB provider
	ProviderName = "lrclib"

	// DefaultBaseURL is the public LRCLIB instance
	DefaultBaseURL = "https://lrclib.net"
)

// retryDelay is the pause before the single retry of a transient failure
var retryDelay = 2 * time.Second

// Record is one LRCLIB entry
type Record struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"` // seconds
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// LrclibProvider implements the providers.Provider interface for LRCLIB
type LrclibProvider struct {
	baseURL string
}

// NewProvider creates a provider for baseURL, or the public instance when empty
func NewProvider(baseURL string) *LrclibProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &LrclibProvider{baseURL: strings.TrimRight(baseURL, "/")}
}

// Name returns the provider identifier
func (p *LrclibProvider) Name() string {
	return ProviderName
}

// Role reports the provider as a primary source
func (p *LrclibProvider) Role() providers.Role {
	return providers.RolePrimary
}

// Fetch tries the exact-signature endpoint first and falls back to search.
// Synced lyrics are preferred; plain lyrics are returned untimed.
func (p *LrclibProvider) Fetch(ctx context.Context, t track.Metadata) (*providers.LyricsResult, error) {
	if strings.TrimSpace(t.Title) == "" {
		return nil, providers.NotFound(ProviderName, "track title is empty")
	}

	var plain *Record

	rec, err := withRetry(ctx, func() (*Record, error) { return p.get(ctx, t) })
	switch {
	case err == nil && rec.Instrumental:
		return nil, providers.NotFound(ProviderName, "track is instrumental")
	case err == nil && rec.SyncedLyrics != "":
		return p.result(rec, timeline.FormatTimed, 1.0), nil
	case err == nil && rec.PlainLyrics != "":
		plain = rec
	case err != nil && !providers.IsNotFound(err):
		return nil, providers.NewProviderError(ProviderName, "lookup failed", err)
	}

	records, err := withRetry(ctx, func() ([]Record, error) { return p.search(ctx, t) })
	if err != nil && !providers.IsNotFound(err) {
		return nil, providers.NewProviderError(ProviderName, "search failed", err)
	}

	if best, score := p.bestSynced(records, t); best != nil {
		return p.result(best, timeline.FormatTimed, score), nil
	}
	if plain != nil {
		log.Debugf("%s Only plain lyrics for: %s", logcolors.Adapter(ProviderName), t)
		return p.result(plain, timeline.FormatUntimed, 1.0), nil
	}
	return nil, providers.NotFound(ProviderName, fmt.Sprintf("no lyrics for: %s", t))
}

func (p *LrclibProvider) result(rec *Record, format timeline.Format, score float64) *providers.LyricsResult {
	raw := rec.SyncedLyrics
	if format == timeline.FormatUntimed {
		raw = rec.PlainLyrics
	}
	log.Infof("%s Fetched lyrics for: %s - %s (id: %d, %s)",
		logcolors.LogSuccess, rec.ArtistName, rec.TrackName, rec.ID, format)
	return &providers.LyricsResult{
		Raw:           raw,
		Format:        format,
		Provider:      ProviderName,
		Score:         score,
		TrackDuration: time.Duration(rec.Duration * float64(time.Second)),
	}
}

func (p *LrclibProvider) bestSynced(records []Record, t track.Metadata) (*Record, float64) {
	conf := config.Get()

	var synced []providers.Candidate
	byID := make(map[string]*Record, len(records))
	for i := range records {
		r := &records[i]
		if r.SyncedLyrics == "" || r.Instrumental {
			continue
		}
		id := strconv.FormatInt(r.ID, 10)
		byID[id] = r
		synced = append(synced, providers.Candidate{
			ID:       id,
			Title:    r.TrackName,
			Artist:   r.ArtistName,
			Album:    r.AlbumName,
			Duration: time.Duration(r.Duration * float64(time.Second)),
		})
	}

	delta := time.Duration(conf.Configuration.DurationMatchDeltaMs) * time.Millisecond
	best, score := providers.BestMatch(synced, t, delta)
	if best == nil || score < conf.Configuration.MinSimilarityScore {
		return nil, 0
	}
	return byID[best.ID], score
}

func (p *LrclibProvider) get(ctx context.Context, t track.Metadata) (*Record, error) {
	params := url.Values{}
	params.Set("track_name", t.Title)
	params.Set("artist_name", t.Artist)
	if t.Album != "" {
		params.Set("album_name", t.Album)
	}
	if t.Duration > 0 {
		params.Set("duration", strconv.Itoa(int(t.Duration.Round(time.Second)/time.Second)))
	}

	var rec Record
	if err := providers.GetJSON(ctx, p.baseURL+"/api/get?"+params.Encode(), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *LrclibProvider) search(ctx context.Context, t track.Metadata) ([]Record, error) {
	params := url.Values{}
	params.Set("track_name", t.Title)
	if t.Artist != "" {
		params.Set("artist_name", t.Artist)
	}

	log.Debugf("%s Searching LRCLIB: %s", logcolors.LogSearch, t)

	var records []Record
	if err := providers.GetJSON(ctx, p.baseURL+"/api/search?"+params.Encode(), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// withRetry retries fn once on a transient failure, unless ctx ends first
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err == nil || !isTransient(err) {
		return v, err
	}

	select {
	case <-ctx.Done():
		return v, err
	case <-time.After(retryDelay):
	}
	return fn()
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *providers.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// init registers the LRCLIB provider with the global registry
func init() {
	providers.Register(NewProvider(""))
}
