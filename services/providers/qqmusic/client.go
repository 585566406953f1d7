package qqmusic

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	// API endpoints
	DefaultSearchURL = "https://u.y.qq.com/cgi-bin/musicu.fcg"
	DefaultLyricURL  = "https://i.y.qq.com/lyric/fcgi-bin/fcg_query_lyric_new.fcg"

	referer       = "https://y.qq.com"
	searchPerPage = 30
)

// Client talks to the QQ Music web API
type Client struct {
	SearchURL string
	LyricURL  string
}

// NewClient returns a client for the public endpoints
func NewClient() *Client {
	return &Client{SearchURL: DefaultSearchURL, LyricURL: DefaultLyricURL}
}

// Search returns songs matching keyword
func (c *Client) Search(ctx context.Context, keyword string) ([]Song, error) {
	body, err := json.Marshal(searchRequest{
		Comm: map[string]interface{}{
			"ct":        19,
			"cv":        "1845",
			"tmeAppID":  "qqmusiclight",
			"nettype":   "NETWORK_WIFI",
			"phonetype": "0",
		},
		Req: searchModule{
			Module: "music.search.SearchCgiService",
			Method: "DoSearchForQQMusicLite",
			Param: searchParam{
				Query:      keyword,
				NumPerPage: searchPerPage,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	log.Debugf("%s Searching QQ Music: %s", logcolors.LogSearch, keyword)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.SearchURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := providers.Do(req)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Code != 0 || resp.Req.Code != 0 {
		return nil, fmt.Errorf("API error: code %d/%d", resp.Code, resp.Req.Code)
	}
	return resp.Req.Data.Body.ItemSong, nil
}

// Lyrics downloads the plain (non-base64) LRC of a song
func (c *Client) Lyrics(ctx context.Context, mid string) (*LyricResponse, error) {
	params := url.Values{}
	params.Set("songmid", mid)
	params.Set("g_tk", "5381")
	params.Set("format", "json")
	params.Set("inCharset", "utf8")
	params.Set("outCharset", "utf-8")
	params.Set("nobase64", "1")

	log.Debugf("%s Downloading QQ Music lyrics MID: %s", logcolors.LogLyrics, mid)

	header := http.Header{}
	header.Set("Referer", referer)

	var resp LyricResponse
	if err := providers.GetJSON(ctx, c.LyricURL+"?"+params.Encode(), header, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("API error: retcode %d", resp.RetCode)
	}

	// nobase64 output is HTML-entity escaped (&#58; for ':' and so on)
	resp.Lyric = html.UnescapeString(resp.Lyric)
	resp.Trans = html.UnescapeString(resp.Trans)
	return &resp, nil
}

// candidates converts songs into match candidates keyed by MID
func candidates(songs []Song) []providers.Candidate {
	out := make([]providers.Candidate, 0, len(songs))
	for _, s := range songs {
		if s.MID == "" {
			continue
		}
		names := make([]string, 0, len(s.Singer))
		for _, singer := range s.Singer {
			names = append(names, singer.Name)
		}
		out = append(out, providers.Candidate{
			ID:       s.MID,
			Title:    s.DisplayTitle(),
			Artist:   strings.Join(names, " "),
			Album:    s.DisplayAlbum(),
			Duration: time.Duration(s.Interval) * time.Second,
		})
	}
	return out
}
