package cache

import (
	"fmt"
	"time"

	"lyrics-sync-go/timeline"

	"github.com/goccy/go-json"
)

// envelopeVersion is bumped whenever the timeline layout changes incompatibly
const envelopeVersion = 1

type envelope struct {
	Version  int                `json:"v"`
	StoredAt time.Time          `json:"storedAt"`
	Timeline *timeline.Timeline `json:"timeline"`
}

func encode(tl *timeline.Timeline, now time.Time) ([]byte, error) {
	return json.Marshal(envelope{Version: envelopeVersion, StoredAt: now, Timeline: tl})
}

func decode(data []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported entry version %d", env.Version)
	}
	if env.Timeline == nil {
		return nil, fmt.Errorf("entry has no timeline")
	}
	if env.Timeline.Lines == nil {
		env.Timeline.Lines = []timeline.Line{}
	}
	return &env, nil
}
