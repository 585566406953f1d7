package main

import (
	"context"
	"sync"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/player"
	"lyrics-sync-go/synchronizer"
	"lyrics-sync-go/track"

	log "github.com/sirupsen/logrus"
)

// trackSink receives what the active player is doing
type trackSink interface {
	OnTrackChanged(ctx context.Context, t track.Metadata) uint64
	OnPosition(sig synchronizer.PlaybackSignal) synchronizer.Cue
	OnPlayerLost()
}

// eventLoop follows the active player and feeds the synchronizer. Events are
// handled one at a time, in arrival order.
type eventLoop struct {
	sink trackSink

	mu      sync.Mutex
	ctx     context.Context
	active  string
	current track.Metadata
}

func newEventLoop(sink trackSink) *eventLoop {
	return &eventLoop{sink: sink, ctx: context.Background()}
}

// Run handles events until ctx is done or events is closed
func (l *eventLoop) Run(ctx context.Context, events <-chan player.Event) {
	l.mu.Lock()
	l.ctx = ctx
	l.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			l.handle(ev)
		}
	}
}

func (l *eventLoop) handle(ev player.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch ev.Kind {
	case player.NoPlayersAvailable:
		l.active = ""
		l.lose()
	case player.ActivePlayerChanged:
		log.Debugf("%s Following %s", logcolors.LogPlayer, ev.Player)
		l.active = ev.Player
		l.follow(ev)
	case player.TrackChanged, player.PlaybackStatusChanged, player.PositionChanged:
		if ev.Player == l.active {
			l.follow(ev)
		}
	}
}

// follow applies the active player's state. Callers hold mu.
func (l *eventLoop) follow(ev player.Event) {
	if ev.Track.IsZero() {
		l.lose()
		return
	}
	if !sameTrack(l.current, ev.Track) {
		l.current = ev.Track
		l.sink.OnTrackChanged(l.ctx, ev.Track)
	}
	l.sink.OnPosition(synchronizer.PlaybackSignal{
		Position:  ev.Position,
		Playing:   ev.Status == player.StatusPlaying,
		Timestamp: ev.Timestamp,
	})
}

// lose drops the current track. Callers hold mu.
func (l *eventLoop) lose() {
	if l.current.IsZero() {
		return
	}
	l.current = track.Metadata{}
	l.sink.OnPlayerLost()
}

// Replay resolves the current track again, after its cache entry was dropped.
// It reports whether a track was playing.
func (l *eventLoop) Replay() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current.IsZero() {
		return false
	}
	l.sink.OnTrackChanged(l.ctx, l.current)
	return true
}

// Active returns the followed player, empty if none
func (l *eventLoop) Active() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Current returns the followed track
func (l *eventLoop) Current() track.Metadata {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// sameTrack ignores the player so a track moving between players is not reloaded
func sameTrack(a, b track.Metadata) bool {
	return a.ID == b.ID && a.Title == b.Title && a.Artist == b.Artist
}
