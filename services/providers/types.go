package providers

import (
	"errors"
	"time"

	"lyrics-sync-go/timeline"
)

// ErrNotFound is returned by a provider that has no lyrics for the track.
// It is not counted as a provider failure.
var ErrNotFound = errors.New("lyrics not found")

// LyricsResult is the standardized result from any lyrics provider
type LyricsResult struct {
	// Raw contains the lyric text as delivered (LRC, enhanced LRC or plain text)
	Raw string `json:"raw"`

	// Format is a parse hint; FormatAuto lets the parser detect it
	Format timeline.Format `json:"format"`

	// Provider is the name of the provider that returned these lyrics
	Provider string `json:"provider"`

	// Score is the match confidence (0.0 to 1.0)
	Score float64 `json:"score,omitempty"`

	// TrackDuration is the duration of the matched track, when the source reports it
	TrackDuration time.Duration `json:"trackDuration,omitempty"`
}

// ProviderError represents an error from a provider with additional context
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}

// NotFound wraps ErrNotFound with the provider name and a reason
func NotFound(provider, reason string) *ProviderError {
	return NewProviderError(provider, reason, ErrNotFound)
}

// IsNotFound reports whether err means "no lyrics" rather than a failure
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
