package netease

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lyrics-sync-go/config"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/timeline"
	"lyrics-sync-go/track"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the NetEase provider
	ProviderName = "netease"

	// TranslationProviderName is the identifier for the NetEase translation track
	TranslationProviderName = "netease-translation"

	// lookupCacheSize bounds the song-ID and lyric response caches shared by both adapters
	lookupCacheSize = 128
)

type match struct {
	id       int64
	score    float64
	duration time.Duration
}

// lookup is shared by the primary and translation adapters so that the
// translation pass after a NetEase hit costs no extra request.
type lookup struct {
	client  *Client
	matches *lru.Cache[track.Fingerprint, match]
	lyrics  *lru.Cache[int64, *LyricResponse]
}

func newLookup(client *Client) *lookup {
	matches, _ := lru.New[track.Fingerprint, match](lookupCacheSize)
	lyrics, _ := lru.New[int64, *LyricResponse](lookupCacheSize)
	return &lookup{client: client, matches: matches, lyrics: lyrics}
}

func (l *lookup) find(ctx context.Context, name string, t track.Metadata) (match, error) {
	fp := t.Fingerprint()
	if m, ok := l.matches.Get(fp); ok {
		return m, nil
	}

	conf := config.Get()

	keyword := strings.TrimSpace(t.Title + " " + t.Artist)
	songs, err := l.client.Search(ctx, keyword)
	if err != nil {
		return match{}, providers.NewProviderError(name, "song search failed", err)
	}
	if len(songs) == 0 {
		return match{}, providers.NotFound(name, fmt.Sprintf("no songs found for: %s", t))
	}

	delta := time.Duration(conf.Configuration.DurationMatchDeltaMs) * time.Millisecond
	best, score := providers.BestMatch(candidates(songs), t, delta)
	minScore := conf.Configuration.MinSimilarityScore
	if best == nil || score < minScore {
		return match{}, providers.NotFound(name,
			fmt.Sprintf("best match score %.2f below threshold %.2f for: %s", score, minScore, t))
	}

	id, err := strconv.ParseInt(best.ID, 10, 64)
	if err != nil {
		return match{}, providers.NewProviderError(name, "invalid song id", err)
	}

	log.Infof("%s Found song: %s - %s (score: %.2f, id: %d)",
		logcolors.Adapter(name), best.Artist, best.Title, score, id)

	m := match{id: id, score: score, duration: best.Duration}
	l.matches.Add(fp, m)
	return m, nil
}

func (l *lookup) fetchLyrics(ctx context.Context, name string, id int64) (*LyricResponse, error) {
	if resp, ok := l.lyrics.Get(id); ok {
		return resp, nil
	}
	resp, err := l.client.Lyrics(ctx, id)
	if err != nil {
		return nil, providers.NewProviderError(name, "failed to download lyrics", err)
	}
	l.lyrics.Add(id, resp)
	return resp, nil
}

// NeteaseProvider returns the original lyric track
type NeteaseProvider struct {
	lookup *lookup
}

// TranslationProvider returns the translated lyric track
type TranslationProvider struct {
	lookup *lookup
}

// NewProviders creates the primary and translation adapters over one client
func NewProviders(client *Client) (*NeteaseProvider, *TranslationProvider) {
	l := newLookup(client)
	return &NeteaseProvider{lookup: l}, &TranslationProvider{lookup: l}
}

// Name returns the provider identifier
func (p *NeteaseProvider) Name() string {
	return ProviderName
}

// Role reports the provider as a primary source
func (p *NeteaseProvider) Role() providers.Role {
	return providers.RolePrimary
}

// Fetch searches NetEase and downloads the best match's lyrics
func (p *NeteaseProvider) Fetch(ctx context.Context, t track.Metadata) (*providers.LyricsResult, error) {
	if strings.TrimSpace(t.Title) == "" {
		return nil, providers.NotFound(ProviderName, "track title is empty")
	}

	m, err := p.lookup.find(ctx, ProviderName, t)
	if err != nil {
		return nil, err
	}

	resp, err := p.lookup.fetchLyrics(ctx, ProviderName, m.id)
	if err != nil {
		return nil, err
	}
	if resp.NoLyric || resp.Uncollected || strings.TrimSpace(resp.Lrc.Lyric) == "" {
		return nil, providers.NotFound(ProviderName, fmt.Sprintf("no lyrics for song %d", m.id))
	}

	log.Infof("%s Fetched lyrics for: %s (%d bytes)", logcolors.LogSuccess, t, len(resp.Lrc.Lyric))

	return &providers.LyricsResult{
		Raw:           resp.Lrc.Lyric,
		Format:        timeline.FormatAuto,
		Provider:      ProviderName,
		Score:         m.score,
		TrackDuration: m.duration,
	}, nil
}

// Name returns the provider identifier
func (p *TranslationProvider) Name() string {
	return TranslationProviderName
}

// Role reports the provider as a translation source
func (p *TranslationProvider) Role() providers.Role {
	return providers.RoleTranslation
}

// Fetch returns the translated track of the best NetEase match
func (p *TranslationProvider) Fetch(ctx context.Context, t track.Metadata) (*providers.LyricsResult, error) {
	if strings.TrimSpace(t.Title) == "" {
		return nil, providers.NotFound(TranslationProviderName, "track title is empty")
	}

	m, err := p.lookup.find(ctx, TranslationProviderName, t)
	if err != nil {
		return nil, err
	}

	resp, err := p.lookup.fetchLyrics(ctx, TranslationProviderName, m.id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Tlyric.Lyric) == "" {
		return nil, providers.NotFound(TranslationProviderName, fmt.Sprintf("no translation for song %d", m.id))
	}

	log.Infof("%s Fetched translation for: %s", logcolors.LogTranslation, t)

	return &providers.LyricsResult{
		Raw:           resp.Tlyric.Lyric,
		Format:        timeline.FormatTimed,
		Provider:      TranslationProviderName,
		Score:         m.score,
		TrackDuration: m.duration,
	}, nil
}

// init registers both NetEase adapters with the global registry
func init() {
	p, tp := NewProviders(NewClient(""))
	providers.Register(p)
	providers.Register(tp)
}
