package netease

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is the public NetEase Cloud Music host
	DefaultBaseURL = "https://music.163.com"

	searchPath = "/api/search/get/web"
	lyricPath  = "/api/song/lyric"

	searchLimit = 30
)

// Client talks to the NetEase web API
type Client struct {
	BaseURL string
}

// NewClient returns a client for baseURL, or the public host when empty
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Referer", "https://music.163.com/")
	return h
}

// Search returns songs matching keyword
func (c *Client) Search(ctx context.Context, keyword string) ([]Song, error) {
	params := url.Values{}
	params.Set("s", keyword)
	params.Set("type", "1")
	params.Set("offset", "0")
	params.Set("limit", strconv.Itoa(searchLimit))

	log.Debugf("%s Searching NetEase: %s", logcolors.LogSearch, keyword)

	var resp SearchResponse
	if err := providers.GetJSON(ctx, c.BaseURL+searchPath+"?"+params.Encode(), c.header(), &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 && resp.Code != http.StatusOK {
		return nil, fmt.Errorf("API error: code %d", resp.Code)
	}
	return resp.Result.Songs, nil
}

// Lyrics downloads the lyric tracks of a song
func (c *Client) Lyrics(ctx context.Context, songID int64) (*LyricResponse, error) {
	params := url.Values{}
	params.Set("id", strconv.FormatInt(songID, 10))
	params.Set("os", "pc")
	params.Set("lv", "-1")
	params.Set("kv", "-1")
	params.Set("tv", "-1")

	log.Debugf("%s Downloading NetEase lyrics ID: %d", logcolors.LogLyrics, songID)

	var resp LyricResponse
	if err := providers.GetJSON(ctx, c.BaseURL+lyricPath+"?"+params.Encode(), c.header(), &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 && resp.Code != http.StatusOK {
		return nil, fmt.Errorf("API error: code %d", resp.Code)
	}
	return &resp, nil
}

// candidates converts songs into match candidates
func candidates(songs []Song) []providers.Candidate {
	out := make([]providers.Candidate, 0, len(songs))
	for _, s := range songs {
		names := make([]string, 0, len(s.Artists))
		for _, a := range s.Artists {
			names = append(names, a.Name)
		}
		out = append(out, providers.Candidate{
			ID:       strconv.FormatInt(s.ID, 10),
			Title:    s.Name,
			Artist:   strings.Join(names, " "),
			Album:    s.Album.Name,
			Duration: time.Duration(s.Duration) * time.Millisecond,
		})
	}
	return out
}
