package kugou

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/track"

	log "github.com/sirupsen/logrus"
)

const (
	// API endpoints
	DefaultLyricsSearchURL   = "https://krcs.kugou.com/search"
	DefaultLyricsDownloadURL = "https://krcs.kugou.com/download"
	DefaultSongSearchURL     = "http://msearchcdn.kugou.com/api/v3/search/song"
)

// Client talks to the Kugou song and lyrics endpoints
type Client struct {
	LyricsSearchURL   string
	LyricsDownloadURL string
	SongSearchURL     string
}

// NewClient returns a client for the public endpoints
func NewClient() *Client {
	return &Client{
		LyricsSearchURL:   DefaultLyricsSearchURL,
		LyricsDownloadURL: DefaultLyricsDownloadURL,
		SongSearchURL:     DefaultSongSearchURL,
	}
}

func keyword(t track.Metadata) string {
	return strings.TrimSpace(t.Title + " " + t.Artist)
}

// SearchSongs looks up songs for t; their hashes unlock the lyrics search
func (c *Client) SearchSongs(ctx context.Context, t track.Metadata, pageSize int) ([]SongInfo, error) {
	if pageSize <= 0 {
		pageSize = 10
	}

	params := url.Values{}
	params.Set("keyword", keyword(t))
	params.Set("pagesize", strconv.Itoa(pageSize))
	params.Set("page", "1")
	params.Set("plat", "0")
	params.Set("version", "9108")

	var resp SongSearchResponse
	if err := providers.GetJSON(ctx, c.SongSearchURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != 1 {
		return nil, fmt.Errorf("API error: status %d, errcode %d", resp.Status, resp.ErrCode)
	}
	return resp.Data.Info, nil
}

// SearchLyrics returns lyrics candidates for the song with the given hash
func (c *Client) SearchLyrics(ctx context.Context, t track.Metadata, hash string) ([]LyricsCandidate, error) {
	params := url.Values{}
	params.Set("ver", "1")
	params.Set("man", "yes")
	params.Set("client", "mobi")
	params.Set("keyword", keyword(t))
	if t.Duration > 0 {
		params.Set("duration", strconv.FormatInt(t.Duration.Milliseconds(), 10))
	}
	if hash != "" {
		params.Set("hash", hash)
	}

	log.Debugf("%s Searching Kugou lyrics: %s", logcolors.LogSearch, t)

	var resp SearchResponse
	if err := providers.GetJSON(ctx, c.LyricsSearchURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != 200 {
		return nil, fmt.Errorf("API error: %s (code: %d)", resp.ErrMsg, resp.ErrCode)
	}
	return resp.Candidates, nil
}

// DownloadLyrics fetches and decodes the LRC body of a candidate
func (c *Client) DownloadLyrics(ctx context.Context, id, accessKey string) (string, error) {
	params := url.Values{}
	params.Set("ver", "1")
	params.Set("client", "pc")
	params.Set("id", id)
	params.Set("accesskey", accessKey)
	params.Set("fmt", "lrc")

	log.Debugf("%s Downloading Kugou lyrics ID: %s", logcolors.LogLyrics, id)

	var resp DownloadResponse
	if err := providers.GetJSON(ctx, c.LyricsDownloadURL+"?"+params.Encode(), nil, &resp); err != nil {
		return "", err
	}
	if resp.Status != 200 {
		return "", fmt.Errorf("API error: %s (code: %d)", resp.Info, resp.ErrorCode)
	}
	if resp.Content == "" {
		return "", nil
	}

	content, err := DecodeBase64Content(resp.Content)
	if err != nil {
		return "", fmt.Errorf("failed to decode lyrics content: %w", err)
	}
	return content, nil
}

// durationScore grades how close two durations are
func durationScore(a, b time.Duration) int {
	if a <= 0 || b <= 0 {
		return 0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff < 3*time.Second:
		return 20
	case diff < 5*time.Second:
		return 10
	case diff < 10*time.Second:
		return 5
	}
	return 0
}

func normalize(score, ceiling int) float64 {
	n := float64(score) / float64(ceiling)
	if n > 1 {
		return 1
	}
	if n < 0 {
		return 0
	}
	return n
}

// SelectBestCandidate scores lyrics candidates against t.
// Returns the best candidate and a score in [0, 1].
func SelectBestCandidate(candidates []LyricsCandidate, t track.Metadata) (*LyricsCandidate, float64) {
	if len(candidates) == 0 {
		return nil, 0
	}

	// 60 API base + 20 synced + 20 song + 20 artist + 20 duration + 5 official
	const maxScore = 145

	song := strings.ToLower(t.Title)
	artist := strings.ToLower(t.Artist)

	var best *LyricsCandidate
	bestScore := -1
	for i := range candidates {
		c := &candidates[i]
		score := c.Score

		if c.KRCType == 1 {
			score += 20
		}

		name := strings.ToLower(c.Song)
		if name == song {
			score += 20
		} else if strings.Contains(name, song) || strings.Contains(song, name) {
			score += 10
		}

		if artist != "" {
			singer := strings.ToLower(c.Singer)
			if singer == artist {
				score += 20
			} else if strings.Contains(singer, artist) {
				score += 10
			}
		}

		score += durationScore(time.Duration(c.Duration)*time.Millisecond, t.Duration)

		if strings.Contains(c.ProductFrom, "官方") {
			score += 5
		}

		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	return best, normalize(bestScore, maxScore)
}

// filterSongsByDuration keeps songs within delta of target
func filterSongsByDuration(songs []SongInfo, target, delta time.Duration) []SongInfo {
	var filtered []SongInfo
	for _, s := range songs {
		diff := time.Duration(s.Duration)*time.Second - target
		if diff < 0 {
			diff = -diff
		}
		if diff <= delta {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// SelectBestSong picks the song whose metadata best fits t.
// Returns the best song and a score in [0, 1].
func SelectBestSong(songs []SongInfo, t track.Metadata) (*SongInfo, float64) {
	if len(songs) == 0 {
		return nil, 0
	}

	// 30 song + 25 artist + 20 duration + 3 quality
	const maxScore = 78

	song := strings.ToLower(t.Title)
	artist := strings.ToLower(t.Artist)

	var best *SongInfo
	bestScore := -1
	for i := range songs {
		s := &songs[i]
		score := 0

		name := strings.ToLower(s.SongName)
		if name == song {
			score += 30
		} else if strings.Contains(name, song) || strings.Contains(song, name) {
			score += 15
		}

		if artist != "" {
			singer := strings.ToLower(s.SingerName)
			if singer == artist {
				score += 25
			} else if strings.Contains(singer, artist) || strings.Contains(artist, singer) {
				score += 10
			}
		}

		score += durationScore(time.Duration(s.Duration)*time.Second, t.Duration)

		if s.SQHash != "" {
			score += 2
		}
		if s.Hash320 != "" {
			score++
		}

		if score > bestScore {
			bestScore = score
			best = s
		}
	}

	return best, normalize(bestScore, maxScore)
}
