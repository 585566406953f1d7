package player

import (
	"context"
	"sort"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/track"

	log "github.com/sirupsen/logrus"
)

// EventKind identifies a player event
type EventKind int

const (
	TrackChanged EventKind = iota
	PlaybackStatusChanged
	PositionChanged
	PlayerAppeared
	PlayerDisappeared
	ActivePlayerChanged
	NoPlayersAvailable
)

func (k EventKind) String() string {
	switch k {
	case TrackChanged:
		return "TrackChanged"
	case PlaybackStatusChanged:
		return "PlaybackStatusChanged"
	case PositionChanged:
		return "PositionChanged"
	case PlayerAppeared:
		return "PlayerAppeared"
	case PlayerDisappeared:
		return "PlayerDisappeared"
	case ActivePlayerChanged:
		return "ActivePlayerChanged"
	default:
		return "NoPlayersAvailable"
	}
}

// Event reports one change. Track, Status and Position carry the player's
// state at Timestamp.
type Event struct {
	Kind      EventKind
	Player    string
	Track     track.Metadata
	Status    Status
	Position  time.Duration
	Timestamp time.Time
}

// Watcher polls playerctl and turns state differences into events
type Watcher struct {
	runner    Runner
	blacklist []string
	interval  time.Duration
	now       func() time.Time
	events    chan Event

	states  map[string]State
	active  string
	empty   bool
	lastErr string
}

// NewWatcher creates a watcher polling every interval
func NewWatcher(runner Runner, blacklist []string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Watcher{
		runner:    runner,
		blacklist: blacklist,
		interval:  interval,
		now:       time.Now,
		events:    make(chan Event, 64),
		states:    make(map[string]State),
	}
}

// Events returns the event channel. It is closed when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Active returns the name of the active player, empty if none
func (w *Watcher) Active() string {
	return w.active
}

// Run polls until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Infof("%s Watching players every %v (blacklist: %v)", logcolors.LogPlayer, w.interval, w.blacklist)
	for {
		events, err := w.Poll(ctx)
		if err != nil {
			if msg := err.Error(); msg != w.lastErr {
				log.Warnf("%s Poll failed: %v", logcolors.LogPlayer, err)
				w.lastErr = msg
			}
		} else {
			w.lastErr = ""
		}

		for _, ev := range events {
			select {
			case w.events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll reads every player once and returns the events since the previous poll
func (w *Watcher) Poll(ctx context.Context) ([]Event, error) {
	names, err := listPlayers(ctx, w.runner)
	if err != nil {
		return nil, err
	}
	now := w.now()

	current := make(map[string]State, len(names))
	for _, name := range names {
		if Blacklisted(name, w.blacklist) {
			continue
		}
		st, err := queryPlayer(ctx, w.runner, name)
		if err != nil {
			log.Debugf("%s Skipping %s: %v", logcolors.LogPlayer, name, err)
			continue
		}
		current[name] = st
	}

	events := w.diff(current, now)
	w.states = current

	if ev, ok := w.selectActive(current, now); ok {
		events = append(events, ev)
	}
	return events, nil
}

func sortedNames(states map[string]State) []string {
	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func event(kind EventKind, st State, now time.Time) Event {
	return Event{
		Kind:      kind,
		Player:    st.Name,
		Track:     st.Track,
		Status:    st.Status,
		Position:  st.Position,
		Timestamp: now,
	}
}

func trackChanged(old, cur track.Metadata) bool {
	return old.ID != cur.ID || old.Title != cur.Title || old.Artist != cur.Artist
}

func (w *Watcher) diff(current map[string]State, now time.Time) []Event {
	var events []Event

	for _, name := range sortedNames(current) {
		cur := current[name]
		old, known := w.states[name]
		if !known {
			log.Debugf("%s Player appeared: %s", logcolors.LogPlayer, name)
			events = append(events, event(PlayerAppeared, cur, now))
			if !cur.Track.IsZero() {
				events = append(events, event(TrackChanged, cur, now))
			}
			events = append(events, event(PlaybackStatusChanged, cur, now))
			continue
		}

		if !cur.Track.IsZero() && trackChanged(old.Track, cur.Track) {
			events = append(events, event(TrackChanged, cur, now))
		}
		if old.Status != cur.Status {
			events = append(events, event(PlaybackStatusChanged, cur, now))
		} else if cur.Status == StatusPlaying && old.Position != cur.Position {
			events = append(events, event(PositionChanged, cur, now))
		}
	}

	for _, name := range sortedNames(w.states) {
		if _, ok := current[name]; !ok {
			log.Debugf("%s Player disappeared: %s", logcolors.LogPlayer, name)
			events = append(events, Event{Kind: PlayerDisappeared, Player: name, Timestamp: now})
		}
	}
	return events
}

// selectActive prefers a playing player, keeping the current one if it plays,
// then the previously active one, then any paused player, then any player.
func (w *Watcher) selectActive(current map[string]State, now time.Time) (Event, bool) {
	if len(current) == 0 {
		w.active = ""
		if w.empty {
			return Event{}, false
		}
		w.empty = true
		log.Infof("%s No players available", logcolors.LogPlayer)
		return Event{Kind: NoPlayersAvailable, Timestamp: now}, true
	}
	w.empty = false

	names := sortedNames(current)
	next := ""
	if st, ok := current[w.active]; ok && st.Status == StatusPlaying {
		next = w.active
	}
	if next == "" {
		next = firstWithStatus(current, names, StatusPlaying)
	}
	if next == "" {
		if _, ok := current[w.active]; ok {
			next = w.active
		}
	}
	if next == "" {
		next = firstWithStatus(current, names, StatusPaused)
	}
	if next == "" {
		next = names[0]
	}

	if next == w.active {
		return Event{}, false
	}
	w.active = next
	log.Infof("%s Active player: %s (%s)", logcolors.LogPlayer, next, current[next].Status)
	return event(ActivePlayerChanged, current[next], now), true
}

func firstWithStatus(current map[string]State, names []string, status Status) string {
	for _, name := range names {
		if current[name].Status == status {
			return name
		}
	}
	return ""
}
