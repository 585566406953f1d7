package kugou

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/timeline"
	"lyrics-sync-go/track"
)

const songsHit = `{"status":1,"errcode":0,"data":{"total":1,"info":[
	{"hash":"H1","songname":"Shape of You","singername":"Ed Sheeran","duration":233}
]}}`

const candidatesHit = `{"status":200,"candidates":[
	{"id":"42","accesskey":"K","song":"Shape of You","singer":"Ed Sheeran","duration":233000,"krctype":1,"score":60}
]}`

func newTestProvider(t *testing.T, songs, candidates, lyrics string) *KugouProvider {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/song":
			w.Write([]byte(songs))
		case "/search":
			if r.URL.Query().Get("hash") != "H1" {
				t.Errorf("Expected hash H1, got %q", r.URL.Query().Get("hash"))
			}
			w.Write([]byte(candidates))
		case "/download":
			if r.URL.Query().Get("id") != "42" || r.URL.Query().Get("accesskey") != "K" {
				t.Errorf("Unexpected download query %s", r.URL.RawQuery)
			}
			fmt.Fprintf(w, `{"status":200,"fmt":"lrc","content":%q}`, base64.StdEncoding.EncodeToString([]byte(lyrics)))
		}
	}))
	t.Cleanup(server.Close)

	return NewProvider(&Client{
		SongSearchURL:     server.URL + "/song",
		LyricsSearchURL:   server.URL + "/search",
		LyricsDownloadURL: server.URL + "/download",
	})
}

var shape = track.Metadata{Title: "Shape of You", Artist: "Ed Sheeran", Duration: 233 * time.Second}

func TestKugouProvider_Fetch(t *testing.T) {
	lyrics := "[ti:Shape of You]\n[00:01.00]作词：Ed Sheeran\n[00:05.00]The club isn't the best place\n[00:09.00]So the bar is where I go"
	p := newTestProvider(t, songsHit, candidatesHit, lyrics)

	result, err := p.Fetch(context.Background(), shape)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := "[00:05.00]The club isn't the best place\n[00:09.00]So the bar is where I go"
	if result.Raw != expected {
		t.Errorf("Expected %q, got %q", expected, result.Raw)
	}
	if result.Format != timeline.FormatAuto {
		t.Errorf("Expected auto format, got %v", result.Format)
	}
	if result.TrackDuration != 233*time.Second {
		t.Errorf("Expected 233s, got %v", result.TrackDuration)
	}
	if result.Provider != ProviderName {
		t.Errorf("Expected provider %q, got %q", ProviderName, result.Provider)
	}
}

func TestKugouProvider_NotFound(t *testing.T) {
	tests := []struct {
		name       string
		track      track.Metadata
		songs      string
		candidates string
		lyrics     string
	}{
		{
			name:  "Empty title",
			track: track.Metadata{Artist: "Ed Sheeran"},
		},
		{
			name:  "No songs",
			track: shape,
			songs: `{"status":1,"data":{"info":[]}}`,
		},
		{
			name:  "Duration filter rejects all",
			track: track.Metadata{Title: "Shape of You", Artist: "Ed Sheeran", Duration: 400 * time.Second},
			songs: songsHit,
		},
		{
			name:  "Score below threshold",
			track: track.Metadata{Title: "Completely Different", Artist: "Nobody"},
			songs: songsHit,
		},
		{
			name:       "No candidates",
			track:      shape,
			songs:      songsHit,
			candidates: `{"status":200,"candidates":[]}`,
		},
		{
			name:       "Instrumental",
			track:      shape,
			songs:      songsHit,
			candidates: candidatesHit,
			lyrics:     "[00:00.00]" + PureMusicText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, tt.songs, tt.candidates, tt.lyrics)
			_, err := p.Fetch(context.Background(), tt.track)
			if !providers.IsNotFound(err) {
				t.Errorf("Expected not-found, got %v", err)
			}
		})
	}
}

func TestKugouProvider_APIError(t *testing.T) {
	p := newTestProvider(t, `{"status":0,"errcode":20010}`, "", "")

	_, err := p.Fetch(context.Background(), shape)
	if err == nil || providers.IsNotFound(err) {
		t.Errorf("Expected a provider failure, got %v", err)
	}
}

func TestKugouProvider_Identity(t *testing.T) {
	p, err := providers.Get(ProviderName)
	if err != nil {
		t.Fatalf("Expected kugou to be registered: %v", err)
	}
	if p.Name() != ProviderName || p.Role() != providers.RolePrimary {
		t.Errorf("Unexpected identity %s/%s", p.Name(), p.Role())
	}
}
