package providers

import (
	"time"

	"lyrics-sync-go/track"
	"lyrics-sync-go/utils"
)

// Candidate is one search hit from a remote source.
type Candidate struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
}

// ScoreCandidate weights title similarity twice as much as artist and album.
// The result is normalized to 0.0-1.0; album only counts when the track has one.
func ScoreCandidate(c Candidate, t track.Metadata) float64 {
	score := utils.Similarity(c.Title, t.Title)*2 + utils.Similarity(c.Artist, t.Artist)
	maxScore := 3.0
	if t.Album != "" {
		score += utils.Similarity(c.Album, t.Album)
		maxScore++
	}
	return score / maxScore
}

// BestMatch picks the highest scoring candidate. When the track duration is
// known, candidates within delta of it are preferred over all others.
// Returns nil when there are no candidates.
func BestMatch(candidates []Candidate, t track.Metadata, delta time.Duration) (*Candidate, float64) {
	if len(candidates) == 0 {
		return nil, 0
	}

	pool := candidates
	if t.Duration > 0 && delta > 0 {
		var near []Candidate
		for _, c := range candidates {
			if c.Duration > 0 && absDuration(c.Duration-t.Duration) <= delta {
				near = append(near, c)
			}
		}
		if len(near) > 0 {
			pool = near
		}
	}

	var best *Candidate
	bestScore := -1.0
	for i := range pool {
		score := ScoreCandidate(pool[i], t)
		if score > bestScore {
			bestScore = score
			best = &pool[i]
		}
	}
	return best, bestScore
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
