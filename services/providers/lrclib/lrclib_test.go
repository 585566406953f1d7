package lrclib

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/timeline"
	"lyrics-sync-go/track"
)

var song = track.Metadata{Title: "Bohemian Rhapsody", Artist: "Queen", Duration: 355 * time.Second}

func TestMain(m *testing.M) {
	retryDelay = 10 * time.Millisecond
	m.Run()
}

func TestLrclibProvider_Fetch(t *testing.T) {
	tests := []struct {
		name       string
		get        func(w http.ResponseWriter)
		search     string
		wantRaw    string
		wantFormat timeline.Format
		wantErr    bool
		notFound   bool
	}{
		{
			name: "Synced from get",
			get: func(w http.ResponseWriter) {
				w.Write([]byte(`{"id":1,"trackName":"Bohemian Rhapsody","artistName":"Queen","duration":355,"syncedLyrics":"[00:01.00]Is this the real life?"}`))
			},
			wantRaw:    "[00:01.00]Is this the real life?",
			wantFormat: timeline.FormatTimed,
		},
		{
			name: "Get misses, search hits",
			get:  func(w http.ResponseWriter) { w.WriteHeader(http.StatusNotFound) },
			search: `[
				{"id":2,"trackName":"Unrelated","artistName":"Someone","duration":355,"syncedLyrics":"[00:01.00]nope"},
				{"id":3,"trackName":"Bohemian Rhapsody","artistName":"Queen","duration":354,"syncedLyrics":"[00:02.00]Is this just fantasy?"}
			]`,
			wantRaw:    "[00:02.00]Is this just fantasy?",
			wantFormat: timeline.FormatTimed,
		},
		{
			name: "Plain only is returned untimed",
			get: func(w http.ResponseWriter) {
				w.Write([]byte(`{"id":4,"trackName":"Bohemian Rhapsody","artistName":"Queen","plainLyrics":"Is this the real life?"}`))
			},
			search:     `[]`,
			wantRaw:    "Is this the real life?",
			wantFormat: timeline.FormatUntimed,
		},
		{
			name: "Instrumental",
			get: func(w http.ResponseWriter) {
				w.Write([]byte(`{"id":5,"instrumental":true}`))
			},
			wantErr:  true,
			notFound: true,
		},
		{
			name:     "Nothing anywhere",
			get:      func(w http.ResponseWriter) { w.WriteHeader(http.StatusNotFound) },
			search:   `[]`,
			wantErr:  true,
			notFound: true,
		},
		{
			name:    "Hard failure",
			get:     func(w http.ResponseWriter) { w.WriteHeader(http.StatusBadRequest) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/api/get":
					if r.URL.Query().Get("duration") != "355" {
						t.Errorf("Expected duration 355, got %q", r.URL.Query().Get("duration"))
					}
					tt.get(w)
				case "/api/search":
					w.Write([]byte(tt.search))
				}
			}))
			defer server.Close()

			result, err := NewProvider(server.URL).Fetch(context.Background(), song)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				if providers.IsNotFound(err) != tt.notFound {
					t.Errorf("Expected not-found %v, got %v", tt.notFound, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result.Raw != tt.wantRaw {
				t.Errorf("Expected raw %q, got %q", tt.wantRaw, result.Raw)
			}
			if result.Format != tt.wantFormat {
				t.Errorf("Expected format %v, got %v", tt.wantFormat, result.Format)
			}
		})
	}
}

func TestLrclibProvider_RetriesTransientFailureOnce(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id":1,"trackName":"Bohemian Rhapsody","artistName":"Queen","syncedLyrics":"[00:01.00]ok"}`))
	}))
	defer server.Close()

	result, err := NewProvider(server.URL).Fetch(context.Background(), song)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Raw != "[00:01.00]ok" {
		t.Errorf("Unexpected raw %q", result.Raw)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("Expected 2 calls, got %d", n)
	}
}

func TestLrclibProvider_Identity(t *testing.T) {
	p := NewProvider("")
	if p.Name() != ProviderName || p.Role() != providers.RolePrimary {
		t.Errorf("Unexpected identity %s/%s", p.Name(), p.Role())
	}
	if p.baseURL != DefaultBaseURL {
		t.Errorf("Expected default base URL, got %q", p.baseURL)
	}
}
