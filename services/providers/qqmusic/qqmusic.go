package qqmusic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lyrics-sync-go/config"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/timeline"
	"lyrics-sync-go/track"

	log "github.com/sirupsen/logrus"
)

// ProviderName is the identifier for the QQ Music provider
const ProviderName = "qqmusic"

// QQMusicProvider implements the providers.Provider interface for QQ Music
type QQMusicProvider struct {
	client *Client
}

// NewProvider creates a QQ Music provider over client
func NewProvider(client *Client) *QQMusicProvider {
	return &QQMusicProvider{client: client}
}

// Name returns the provider identifier
func (p *QQMusicProvider) Name() string {
	return ProviderName
}

// Role reports the provider as a primary source
func (p *QQMusicProvider) Role() providers.Role {
	return providers.RolePrimary
}

// Fetch searches QQ Music and downloads the best match's lyrics
func (p *QQMusicProvider) Fetch(ctx context.Context, t track.Metadata) (*providers.LyricsResult, error) {
	conf := config.Get()

	if strings.TrimSpace(t.Title) == "" {
		return nil, providers.NotFound(ProviderName, "track title is empty")
	}

	songs, err := p.client.Search(ctx, strings.TrimSpace(t.Title+" "+t.Artist))
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "song search failed", err)
	}

	delta := time.Duration(conf.Configuration.DurationMatchDeltaMs) * time.Millisecond
	best, score := providers.BestMatch(candidates(songs), t, delta)
	if best == nil {
		return nil, providers.NotFound(ProviderName, fmt.Sprintf("no songs found for: %s", t))
	}

	minScore := conf.Configuration.MinSimilarityScore
	if score < minScore {
		return nil, providers.NotFound(ProviderName,
			fmt.Sprintf("best match score %.2f below threshold %.2f for: %s", score, minScore, t))
	}

	log.Infof("%s Found song: %s - %s (score: %.2f, mid: %s)",
		logcolors.Adapter(ProviderName), best.Artist, best.Title, score, best.ID)

	resp, err := p.client.Lyrics(ctx, best.ID)
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "failed to download lyrics", err)
	}
	if strings.TrimSpace(resp.Lyric) == "" {
		return nil, providers.NotFound(ProviderName, fmt.Sprintf("no lyrics for song %s", best.ID))
	}

	log.Infof("%s Fetched lyrics for: %s (%d bytes)", logcolors.LogSuccess, t, len(resp.Lyric))

	return &providers.LyricsResult{
		Raw:           resp.Lyric,
		Format:        timeline.FormatAuto,
		Provider:      ProviderName,
		Score:         score,
		TrackDuration: best.Duration,
	}, nil
}

// init registers the QQ Music provider with the global registry
func init() {
	providers.Register(NewProvider(NewClient()))
}
