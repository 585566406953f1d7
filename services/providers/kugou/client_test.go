package kugou

import (
	"testing"
	"time"

	"lyrics-sync-go/track"
)

func TestSelectBestCandidate(t *testing.T) {
	tests := []struct {
		name       string
		candidates []LyricsCandidate
		track      track.Metadata
		wantID     string
	}{
		{
			name: "Exact match",
			candidates: []LyricsCandidate{
				{ID: "1", Song: "Shape of You", Singer: "Ed Sheeran", Score: 50, KRCType: 1, Duration: 230000},
				{ID: "2", Song: "Perfect", Singer: "Ed Sheeran", Score: 50, KRCType: 1, Duration: 260000},
			},
			track:  track.Metadata{Title: "Shape of You", Artist: "Ed Sheeran", Duration: 230 * time.Second},
			wantID: "1",
		},
		{
			name: "Partial match beats unrelated",
			candidates: []LyricsCandidate{
				{ID: "1", Song: "Shape of You (Remix)", Singer: "Ed Sheeran feat. DJ", Score: 50, KRCType: 1},
				{ID: "2", Song: "Different Song", Singer: "Different Artist", Score: 50, KRCType: 1},
			},
			track:  track.Metadata{Title: "Shape of You", Artist: "Ed Sheeran"},
			wantID: "1",
		},
		{
			name: "Closest duration",
			candidates: []LyricsCandidate{
				{ID: "1", Song: "Test Song", Singer: "Test Artist", Score: 50, KRCType: 1, Duration: 200000},
				{ID: "2", Song: "Test Song", Singer: "Test Artist", Score: 50, KRCType: 1, Duration: 229000},
				{ID: "3", Song: "Test Song", Singer: "Test Artist", Score: 50, KRCType: 1, Duration: 250000},
			},
			track:  track.Metadata{Title: "Test Song", Artist: "Test Artist", Duration: 230 * time.Second},
			wantID: "2",
		},
		{
			name: "Synced preferred over higher API score",
			candidates: []LyricsCandidate{
				{ID: "1", Song: "Test", Singer: "Artist", Score: 60, KRCType: 2},
				{ID: "2", Song: "Test", Singer: "Artist", Score: 50, KRCType: 1},
			},
			track:  track.Metadata{Title: "Test", Artist: "Artist"},
			wantID: "2",
		},
		{
			name: "Official bonus breaks ties",
			candidates: []LyricsCandidate{
				{ID: "1", Song: "Test", Singer: "Artist", Score: 50, KRCType: 1},
				{ID: "2", Song: "Test", Singer: "Artist", Score: 50, KRCType: 1, ProductFrom: "官方推荐歌词"},
			},
			track:  track.Metadata{Title: "Test", Artist: "Artist"},
			wantID: "2",
		},
		{
			name: "Case insensitive",
			candidates: []LyricsCandidate{
				{ID: "1", Song: "other", Singer: "someone", Score: 50},
				{ID: "2", Song: "SHAPE OF YOU", Singer: "ED SHEERAN", Score: 50},
			},
			track:  track.Metadata{Title: "shape of you", Artist: "ed sheeran"},
			wantID: "2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, score := SelectBestCandidate(tt.candidates, tt.track)
			if best == nil {
				t.Fatal("Expected a best candidate, got nil")
			}
			if best.ID != tt.wantID {
				t.Errorf("Expected candidate %s, got %s", tt.wantID, best.ID)
			}
			if score <= 0 || score > 1 {
				t.Errorf("Score should be between 0 and 1, got %f", score)
			}
		})
	}
}

func TestSelectBestCandidate_EmptyList(t *testing.T) {
	best, score := SelectBestCandidate(nil, track.Metadata{Title: "Test"})
	if best != nil || score != 0 {
		t.Errorf("Expected nil and 0, got %v and %f", best, score)
	}
}

func TestSelectBestCandidate_ScoreIsCapped(t *testing.T) {
	candidates := []LyricsCandidate{
		{Song: "Test", Singer: "Artist", Score: 500, KRCType: 1, Duration: 200000, ProductFrom: "官方"},
	}
	_, score := SelectBestCandidate(candidates, track.Metadata{Title: "Test", Artist: "Artist", Duration: 200 * time.Second})
	if score != 1 {
		t.Errorf("Expected capped score 1, got %f", score)
	}
}

func TestSelectBestSong(t *testing.T) {
	tests := []struct {
		name     string
		songs    []SongInfo
		track    track.Metadata
		wantHash string
	}{
		{
			name: "Exact match",
			songs: []SongInfo{
				{Hash: "a", SongName: "Perfect", SingerName: "Ed Sheeran", Duration: 263},
				{Hash: "b", SongName: "Shape of You", SingerName: "Ed Sheeran", Duration: 233},
			},
			track:    track.Metadata{Title: "Shape of You", Artist: "Ed Sheeran", Duration: 233 * time.Second},
			wantHash: "b",
		},
		{
			name: "Duration bonus",
			songs: []SongInfo{
				{Hash: "a", SongName: "Song", SingerName: "Artist", Duration: 300},
				{Hash: "b", SongName: "Song", SingerName: "Artist", Duration: 201},
			},
			track:    track.Metadata{Title: "Song", Artist: "Artist", Duration: 200 * time.Second},
			wantHash: "b",
		},
		{
			name: "Quality bonus",
			songs: []SongInfo{
				{Hash: "a", SongName: "Song", SingerName: "Artist"},
				{Hash: "b", SongName: "Song", SingerName: "Artist", SQHash: "sq", Hash320: "320"},
			},
			track:    track.Metadata{Title: "Song", Artist: "Artist"},
			wantHash: "b",
		},
		{
			name: "No artist",
			songs: []SongInfo{
				{Hash: "a", SongName: "Other"},
				{Hash: "b", SongName: "Song"},
			},
			track:    track.Metadata{Title: "Song"},
			wantHash: "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, _ := SelectBestSong(tt.songs, tt.track)
			if best == nil {
				t.Fatal("Expected a best song, got nil")
			}
			if best.Hash != tt.wantHash {
				t.Errorf("Expected hash %s, got %s", tt.wantHash, best.Hash)
			}
		})
	}
}

func TestFilterSongsByDuration(t *testing.T) {
	songs := []SongInfo{
		{Hash: "a", Duration: 200},
		{Hash: "b", Duration: 203},
		{Hash: "c", Duration: 230},
	}

	tests := []struct {
		name  string
		delta time.Duration
		want  int
	}{
		{"Narrow", 5 * time.Second, 2},
		{"Wide", 30 * time.Second, 3},
		{"None", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterSongsByDuration(songs, 200*time.Second, tt.delta)
			if len(got) != tt.want {
				t.Errorf("Expected %d songs, got %d", tt.want, len(got))
			}
		})
	}

	if got := filterSongsByDuration(nil, time.Minute, time.Second); len(got) != 0 {
		t.Errorf("Expected no songs, got %d", len(got))
	}
}
