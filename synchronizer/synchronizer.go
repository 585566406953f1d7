// Package synchronizer maps playback position onto the active lyric line and
// word of the current track.
package synchronizer

import (
	"context"
	"sync"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/stats"
	"lyrics-sync-go/timeline"
	"lyrics-sync-go/track"

	log "github.com/sirupsen/logrus"
)

// State is the synchronizer lifecycle state
type State int

const (
	StateNoTrack State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "no-track"
	}
}

// MarshalText renders the state name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Resolver produces the timeline for a track. It must not fail; an empty
// timeline means no lyrics.
type Resolver interface {
	Resolve(ctx context.Context, t track.Metadata) *timeline.Timeline
}

// Options tunes position tracking
type Options struct {
	// SeekThreshold is the largest jump from the expected position still
	// treated as normal playback
	SeekThreshold time.Duration

	// AdvanceTime shifts the lookup position ahead of the reported one
	AdvanceTime time.Duration

	// MinLastLineDisplay is the assumed length of a last line with no end
	MinLastLineDisplay time.Duration

	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.SeekThreshold <= 0 {
		o.SeekThreshold = time.Second
	}
	if o.MinLastLineDisplay <= 0 {
		o.MinLastLineDisplay = 5 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// PlaybackSignal is one position report from the player
type PlaybackSignal struct {
	Position  time.Duration
	Playing   bool
	Timestamp time.Time // when the position was observed; zero means now
}

// Cue is what the renderer shows. It is a copy and safe to keep.
type Cue struct {
	State      State          `json:"state"`
	Track      track.Metadata `json:"track"`
	Line       *timeline.Line `json:"line,omitempty"`
	LineIndex  int            `json:"lineIndex"`
	WordIndex  int            `json:"wordIndex"`
	Progress   float64        `json:"progress"`
	Seek       bool           `json:"seek"`
	NoLyrics   bool           `json:"noLyrics"`
	Generation uint64         `json:"generation"`
}

// syncState lives only while a timeline is loaded
type syncState struct {
	timeline     *timeline.Timeline
	lineIndex    int
	wordIndex    int
	lastPosition time.Duration
	lastWall     time.Time
	lastPlaying  bool
	lastProgress float64
	primed       bool
}

// Synchronizer owns the current track and its sync state
type Synchronizer struct {
	resolver Resolver
	opts     Options
	stats    *stats.Stats

	mu         sync.Mutex
	state      State
	track      track.Metadata
	generation uint64
	cancel     context.CancelFunc
	tracking   *syncState
	lastSignal PlaybackSignal
	hasSignal  bool
	cue        Cue

	subs    map[int]chan Cue
	nextSub int
}

// New creates a synchronizer in the NoTrack state
func New(r Resolver, opts Options) *Synchronizer {
	s := &Synchronizer{
		resolver: r,
		opts:     opts.withDefaults(),
		stats:    stats.Get(),
		subs:     make(map[int]chan Cue),
	}
	s.cue = s.placeholder()
	return s
}

func (s *Synchronizer) placeholder() Cue {
	return Cue{
		State:      s.state,
		Track:      s.track,
		LineIndex:  -1,
		WordIndex:  -1,
		Generation: s.generation,
	}
}

// OnTrackChanged starts resolving t and returns the generation tagging that
// resolution. Any resolution in flight for an earlier track is canceled and
// its result discarded.
func (s *Synchronizer) OnTrackChanged(ctx context.Context, t track.Metadata) uint64 {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	s.state = StateLoading
	s.track = t
	s.tracking = nil

	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.setCue(s.placeholder())
	s.mu.Unlock()

	s.stats.TrackChanges.Add(1)
	log.Infof("%s Track changed: %s (generation %d)", logcolors.LogSync, t, gen)

	go s.load(loadCtx, cancel, gen, t)
	return gen
}

func (s *Synchronizer) load(ctx context.Context, cancel context.CancelFunc, gen uint64, t track.Metadata) {
	defer cancel()
	tl := s.resolver.Resolve(ctx, t)
	s.apply(gen, tl)
}

// apply installs tl if gen is still current
func (s *Synchronizer) apply(gen uint64, tl *timeline.Timeline) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.stats.StaleResults.Add(1)
		log.Debugf("%s Discarding stale result (generation %d, current %d)", logcolors.LogSync, gen, s.generation)
		return false
	}
	if tl == nil {
		tl = timeline.Empty("")
	}

	s.state = StateReady
	s.tracking = &syncState{timeline: tl, lineIndex: -1, wordIndex: -1}
	if tl.IsEmpty() {
		log.Infof("%s No lyrics found for %s", logcolors.LogSync, s.track)
	} else {
		log.Infof("%s Ready: %d lines from %s (%s)", logcolors.LogSync, len(tl.Lines), tl.Source, tl.Format)
	}

	if s.hasSignal {
		s.setCue(s.compute(s.lastSignal))
	} else {
		cue := s.placeholder()
		cue.NoLyrics = tl.IsEmpty()
		s.setCue(cue)
	}
	return true
}

// OnPlayerLost discards the track and any resolution in flight
func (s *Synchronizer) OnPlayerLost() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.state = StateNoTrack
	s.track = track.Metadata{}
	s.tracking = nil
	s.hasSignal = false
	s.setCue(s.placeholder())

	log.Infof("%s Player lost", logcolors.LogSync)
}

// OnPosition maps sig onto the timeline and returns the resulting cue. It
// never blocks on resolution: while loading the placeholder cue is returned.
func (s *Synchronizer) OnPosition(sig PlaybackSignal) Cue {
	if sig.Timestamp.IsZero() {
		sig.Timestamp = s.opts.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.PositionUpdates.Add(1)
	s.lastSignal = sig
	s.hasSignal = true

	if s.state != StateReady {
		return s.cue
	}
	s.setCue(s.compute(sig))
	return s.cue
}

// compute derives the cue for sig and advances the sync state. Callers hold mu.
func (s *Synchronizer) compute(sig PlaybackSignal) Cue {
	ss := s.tracking
	tl := ss.timeline
	cue := s.placeholder()

	seek := false
	if ss.primed {
		expected := ss.lastPosition
		if ss.lastPlaying && sig.Playing {
			expected += sig.Timestamp.Sub(ss.lastWall)
		}
		drift := sig.Position - expected
		if drift < 0 {
			drift = -drift
		}
		seek = drift > s.opts.SeekThreshold
	}
	if seek {
		s.stats.Seeks.Add(1)
		log.Debugf("%s %v -> %v", logcolors.LogSeek, ss.lastPosition, sig.Position)
	}

	pos := sig.Position + s.opts.AdvanceTime
	idx, word, progress := -1, -1, 0.0

	switch {
	case tl.IsEmpty():
		cue.NoLyrics = true
	case !tl.IsSynced():
		idx = 0
	default:
		idx = s.lineIndex(tl, pos, seek)
		if idx >= 0 {
			line := &tl.Lines[idx]
			progress = s.progress(tl, idx, pos)
			if tl.HasWordTiming {
				word = line.WordAt(pos)
			}
		}
	}

	ss.lineIndex = idx
	ss.wordIndex = word
	ss.lastPosition = sig.Position
	ss.lastWall = sig.Timestamp
	ss.lastPlaying = sig.Playing
	ss.lastProgress = progress
	ss.primed = true

	cue.LineIndex = idx
	cue.WordIndex = word
	cue.Progress = progress
	cue.Seek = seek
	if idx >= 0 {
		line := tl.Lines[idx]
		cue.Line = &line
	}
	return cue
}

// lineIndex finds the active line. Seeks and backward moves use binary
// search; normal playback scans forward from the previous line.
func (s *Synchronizer) lineIndex(tl *timeline.Timeline, pos time.Duration, seek bool) int {
	prev := s.tracking.lineIndex
	if seek || !s.tracking.primed || prev < 0 || prev >= len(tl.Lines) || pos < tl.Lines[prev].Start {
		return tl.LineAt(pos)
	}
	idx := prev
	for idx+1 < len(tl.Lines) && tl.Lines[idx+1].Start <= pos {
		idx++
	}
	return idx
}

func (s *Synchronizer) progress(tl *timeline.Timeline, idx int, pos time.Duration) float64 {
	start := tl.Lines[idx].Start
	end, ok := tl.LineEnd(idx)
	if !ok {
		end = start + s.opts.MinLastLineDisplay
		if pos > end && s.tracking.primed && s.tracking.lineIndex == idx {
			return s.tracking.lastProgress
		}
	}

	span := end - start
	if span <= 0 {
		return 1
	}
	f := float64(pos-start) / float64(span)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// setCue stores cue and notifies subscribers when what is shown changed.
// Callers hold mu.
func (s *Synchronizer) setCue(cue Cue) {
	prev := s.cue
	s.cue = cue
	if cue.State == prev.State && cue.LineIndex == prev.LineIndex && cue.WordIndex == prev.WordIndex &&
		cue.Generation == prev.Generation && cue.NoLyrics == prev.NoLyrics && !cue.Seek {
		return
	}
	for _, ch := range s.subs {
		// Keep only the newest cue for slow subscribers
		select {
		case ch <- cue:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- cue:
			default:
			}
		}
	}
}

// Subscribe returns a channel receiving each cue change and a function
// that ends the subscription
func (s *Synchronizer) Subscribe() (<-chan Cue, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Cue, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Current returns the most recent cue
func (s *Synchronizer) Current() Cue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cue
}

// State returns the lifecycle state
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Track returns the current track, zero in NoTrack
func (s *Synchronizer) Track() track.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// Timeline returns the loaded timeline, or nil unless Ready
func (s *Synchronizer) Timeline() *timeline.Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracking == nil {
		return nil
	}
	return s.tracking.timeline
}

// Generation returns the current generation
func (s *Synchronizer) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}
