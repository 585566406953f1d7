package track

import (
	"testing"
	"time"
)

func TestNewFingerprint(t *testing.T) {
	tests := []struct {
		name     string
		artist   string
		title    string
		duration time.Duration
		expected string
	}{
		{
			name:     "Basic",
			artist:   "Ed Sheeran",
			title:    "Shape of You",
			duration: 233 * time.Second,
			expected: "ed sheeran|shape of you|233",
		},
		{
			name:     "Whitespace and casing",
			artist:   "  ED   SHEERAN ",
			title:    "Shape  of\tYou",
			duration: 233 * time.Second,
			expected: "ed sheeran|shape of you|233",
		},
		{
			name:     "Duration rounds to nearest second",
			artist:   "a",
			title:    "b",
			duration: 232600 * time.Millisecond,
			expected: "a|b|233",
		},
		{
			name:     "Unknown duration",
			artist:   "a",
			title:    "b",
			duration: 0,
			expected: "a|b|0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewFingerprint(tt.artist, tt.title, tt.duration).Key()
			if got != tt.expected {
				t.Errorf("Expected key %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestFingerprint_DistinguishesDuration(t *testing.T) {
	studio := NewFingerprint("Artist", "Song", 200*time.Second)
	live := NewFingerprint("Artist", "Song", 260*time.Second)
	if studio == live {
		t.Error("Expected different durations to produce different fingerprints")
	}
}

func TestMetadata_Fingerprint(t *testing.T) {
	m := Metadata{Artist: "Jay Chou", Title: "稻香", Duration: 223 * time.Second}
	if m.Fingerprint() != NewFingerprint("jay chou", "稻香", 223*time.Second) {
		t.Errorf("Unexpected fingerprint %v", m.Fingerprint())
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    Fingerprint
		wantErr bool
	}{
		{"Simple", "a|b|10", Fingerprint{Artist: "a", Title: "b", DurationSeconds: 10}, false},
		{"Pipe in title", "a|b|c|10", Fingerprint{Artist: "a", Title: "b|c", DurationSeconds: 10}, false},
		{"Too short", "a|10", Fingerprint{}, true},
		{"Bad duration", "a|b|x", Fingerprint{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseKey(%q) = %+v, expected %+v", tt.key, got, tt.want)
			}
		})
	}
}

func TestMetadata_String(t *testing.T) {
	if got := (Metadata{Artist: "A", Title: "T"}).String(); got != "A - T" {
		t.Errorf("Expected 'A - T', got %q", got)
	}
	if got := (Metadata{Title: "T"}).String(); got != "T" {
		t.Errorf("Expected 'T', got %q", got)
	}
}
