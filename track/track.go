package track

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Metadata is the identity of the track a player reports.
type Metadata struct {
	ID       string        `json:"id,omitempty"`
	Title    string        `json:"title"`
	Artist   string        `json:"artist"`
	Album    string        `json:"album,omitempty"`
	Duration time.Duration `json:"duration"`
	URL      string        `json:"url,omitempty"`
	Player   string        `json:"player,omitempty"`
}

// IsZero reports whether no track information is present.
func (m Metadata) IsZero() bool {
	return m.Title == "" && m.Artist == ""
}

func (m Metadata) String() string {
	if m.Artist == "" {
		return m.Title
	}
	return m.Artist + " - " + m.Title
}

// Fingerprint is the lookup key for a track. Two tracks with the same
// fingerprint share lyrics.
type Fingerprint struct {
	Artist          string `json:"artist"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"durationSeconds"`
}

// NewFingerprint normalizes artist and title (trim, lowercase, collapse
// whitespace) and rounds the duration to whole seconds.
func NewFingerprint(artist, title string, duration time.Duration) Fingerprint {
	seconds := 0
	if duration > 0 {
		seconds = int(math.Round(duration.Seconds()))
	}
	return Fingerprint{
		Artist:          normalize(artist),
		Title:           normalize(title),
		DurationSeconds: seconds,
	}
}

// Fingerprint derives the fingerprint of the track.
func (m Metadata) Fingerprint() Fingerprint {
	return NewFingerprint(m.Artist, m.Title, m.Duration)
}

// Key renders the fingerprint as a cache key.
func (f Fingerprint) Key() string {
	return fmt.Sprintf("%s|%s|%d", f.Artist, f.Title, f.DurationSeconds)
}

func (f Fingerprint) String() string {
	return f.Key()
}

// ParseKey reverses Key.
func ParseKey(key string) (Fingerprint, error) {
	parts := strings.Split(key, "|")
	if len(parts) < 3 {
		return Fingerprint{}, fmt.Errorf("invalid fingerprint key: %q", key)
	}
	// the title may itself contain '|', the artist is taken as the first field
	last := len(parts) - 1
	var seconds int
	if _, err := fmt.Sscanf(parts[last], "%d", &seconds); err != nil {
		return Fingerprint{}, fmt.Errorf("invalid duration in key %q: %w", key, err)
	}
	return Fingerprint{
		Artist:          parts[0],
		Title:           strings.Join(parts[1:last], "|"),
		DurationSeconds: seconds,
	}, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
