package qqmusic

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/track"
)

func newTestProvider(t *testing.T, search, lyric string) *QQMusicProvider {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			if r.Method != http.MethodPost {
				t.Errorf("Expected POST search, got %s", r.Method)
			}
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), "DoSearchForQQMusicLite") {
				t.Errorf("Unexpected search body %s", body)
			}
			w.Write([]byte(search))
		case "/lyric":
			if r.Header.Get("Referer") != referer {
				t.Errorf("Expected Referer %q, got %q", referer, r.Header.Get("Referer"))
			}
			if r.URL.Query().Get("nobase64") != "1" {
				t.Error("Expected nobase64=1")
			}
			w.Write([]byte(lyric))
		}
	}))
	t.Cleanup(server.Close)

	return NewProvider(&Client{SearchURL: server.URL + "/search", LyricURL: server.URL + "/lyric"})
}

const searchHit = `{"code":0,"req":{"code":0,"data":{"body":{"item_song":[
	{"id":1,"mid":"mid-live","title":"Daoxiang","interval":260,"singer":[{"name":"Jay Chou"}],"album":{"name":"Live"}},
	{"id":2,"mid":"mid-studio","title":"Daoxiang","interval":223,"singer":[{"name":"Jay Chou"}],"album":{"name":"Mojito"}}
]}}}}`

func TestQQMusicProvider_Fetch(t *testing.T) {
	p := newTestProvider(t, searchHit, `{"retcode":0,"code":0,"lyric":"[00&#58;01.00]Line one"}`)

	result, err := p.Fetch(context.Background(), track.Metadata{Title: "Daoxiang", Artist: "Jay Chou", Duration: 223 * time.Second})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Raw != "[00:01.00]Line one" {
		t.Errorf("Expected unescaped lyrics, got %q", result.Raw)
	}
	if result.TrackDuration != 223*time.Second {
		t.Errorf("Expected the duration-matched studio version, got %v", result.TrackDuration)
	}
	if result.Provider != ProviderName {
		t.Errorf("Expected provider %q, got %q", ProviderName, result.Provider)
	}
}

func TestQQMusicProvider_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		search string
		lyric  string
	}{
		{"No songs", `{"code":0,"req":{"code":0,"data":{"body":{"item_song":[]}}}}`, ""},
		{"Empty lyric", searchHit, `{"retcode":0,"lyric":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, tt.search, tt.lyric)
			_, err := p.Fetch(context.Background(), track.Metadata{Title: "Daoxiang", Artist: "Jay Chou"})
			if !providers.IsNotFound(err) {
				t.Errorf("Expected not-found, got %v", err)
			}
		})
	}
}

func TestQQMusicProvider_APIError(t *testing.T) {
	p := newTestProvider(t, `{"code":500001,"req":{"code":0}}`, "")

	_, err := p.Fetch(context.Background(), track.Metadata{Title: "Daoxiang"})
	if err == nil || providers.IsNotFound(err) {
		t.Errorf("Expected a provider failure, got %v", err)
	}
}

func TestSong_DisplayFields(t *testing.T) {
	s := Song{SongName: "legacy", AlbumName: "old album"}
	if s.DisplayTitle() != "legacy" || s.DisplayAlbum() != "old album" {
		t.Errorf("Unexpected display fields %q / %q", s.DisplayTitle(), s.DisplayAlbum())
	}

	s = Song{Title: "new", Name: "ignored"}
	s.Album.Name = "new album"
	if s.DisplayTitle() != "new" || s.DisplayAlbum() != "new album" {
		t.Errorf("Unexpected display fields %q / %q", s.DisplayTitle(), s.DisplayAlbum())
	}
}
