package kugou

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

// ProviderName is the identifier for the Kugou provider
const ProviderName = "kugou"

// KugouProvider implements the providers.Provider interface for Kugou lyrics
type KugouProvider struct {
	client *Client
}

// NewProvider creates a Kugou provider over client
func NewProvider(client *Client) *KugouProvider {
	return &KugouProvider{client: client}
}

// Name returns the provider identifier
func (p *KugouProvider) Name() string {
	return ProviderName
}

// Role reports the provider as a primary source
func (p *KugouProvider) Role() providers.Role {
	return providers.RolePrimary
}

// Fetch resolves the song hash, picks the best lyrics candidate and downloads it
func (p *KugouProvider) Fetch(ctx context.Context, t track.Metadata) (*providers.LyricsResult, error) {
	conf := config.Get()

	if strings.TrimSpace(t.Title) == "" {
		return nil, providers.NotFound(ProviderName, "track title is empty")
	}

	log.Infof("%s Searching: %s", logcolors.Adapter(ProviderName), t)

	songs, err := p.client.SearchSongs(ctx, t, 10)
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "song search failed", err)
	}
	if len(songs) == 0 {
		return nil, providers.NotFound(ProviderName, fmt.Sprintf("no songs found for: %s", t))
	}

	if t.Duration > 0 {
		delta := time.Duration(conf.Configuration.DurationMatchDeltaMs) * time.Millisecond
		filtered := filterSongsByDuration(songs, t.Duration, delta)
		if len(filtered) == 0 {
			return nil, providers.NotFound(ProviderName,
				fmt.Sprintf("no songs within %v of duration %v", delta, t.Duration))
		}
		log.Debugf("%s %d/%d songs passed duration filter", logcolors.Adapter(ProviderName), len(filtered), len(songs))
		songs = filtered
	}

	song, songScore := SelectBestSong(songs, t)
	minScore := conf.Configuration.MinSimilarityScore
	if song == nil || songScore < minScore {
		return nil, providers.NotFound(ProviderName,
			fmt.Sprintf("best match score %.2f below threshold %.2f for: %s", songScore, minScore, t))
	}

	log.Infof("%s Found song: %s - %s (score: %.2f)",
		logcolors.LogMatch, song.SingerName, song.SongName, songScore)

	candidates, err := p.client.SearchLyrics(ctx, t, song.Hash)
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "lyrics search failed", err)
	}

	best, score := SelectBestCandidate(candidates, t)
	if best == nil {
		return nil, providers.NotFound(ProviderName, fmt.Sprintf("no lyrics found for: %s", t))
	}

	content, err := p.client.DownloadLyrics(ctx, best.ID, best.AccessKey)
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "failed to download lyrics", err)
	}
	if IsInstrumental(content) {
		return nil, providers.NotFound(ProviderName, "track is instrumental")
	}

	content = NormalizeLyrics(content)
	if strings.TrimSpace(content) == "" {
		return nil, providers.NotFound(ProviderName, fmt.Sprintf("empty lyrics for candidate %s", best.ID))
	}

	log.Infof("%s Fetched lyrics for: %s - %s (%d bytes, score: %.2f)",
		logcolors.LogSuccess, best.Singer, best.Song, len(content), score)

	return &providers.LyricsResult{
		Raw:           content,
		Format:        timeline.FormatAuto,
		Provider:      ProviderName,
		Score:         score,
		TrackDuration: time.Duration(best.Duration) * time.Millisecond,
	}, nil
}

// init registers the Kugou provider with the global registry
func init() {
	providers.Register(NewProvider(NewClient()))
}
