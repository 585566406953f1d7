// Package player watches desktop media players through playerctl and reports
// what the active one is playing.
package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"lyrics-sync-go/track"
)

// Status is a player's playback status
type Status int

const (
	StatusStopped Status = iota
	StatusPaused
	StatusPlaying
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	default:
		return "Stopped"
	}
}

func parseStatus(s string) Status {
	switch strings.TrimSpace(s) {
	case "Playing":
		return StatusPlaying
	case "Paused":
		return StatusPaused
	default:
		return StatusStopped
	}
}

// State is one player's state as of a poll
type State struct {
	Name     string
	Status   Status
	Track    track.Metadata // zero when the player has no track loaded
	Position time.Duration
}

// Runner runs playerctl with args and returns its stdout
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner runs the playerctl binary
type ExecRunner struct {
	Path string // defaults to "playerctl"
}

// Run executes playerctl. "No players found" is reported as empty output.
func (r ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	path := r.Path
	if path == "" {
		path = "playerctl"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(stderr.String(), "No player") {
			return "", nil
		}
		return "", fmt.Errorf("playerctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// metadataFormat asks for everything in one call, tab separated. Lengths and
// positions are microseconds.
const metadataFormat = "{{status}}\t{{mpris:trackid}}\t{{xesam:title}}\t{{xesam:artist}}\t{{xesam:album}}\t{{mpris:length}}\t{{xesam:url}}\t{{position}}"

const metadataFields = 8

// listPlayers returns the player names playerctl knows about
func listPlayers(ctx context.Context, r Runner) ([]string, error) {
	out, err := r.Run(ctx, "--list-all")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// queryPlayer reads the state of one player
func queryPlayer(ctx context.Context, r Runner, name string) (State, error) {
	out, err := r.Run(ctx, "--player="+name, "metadata", "--format", metadataFormat)
	if err != nil {
		return State{}, err
	}
	return parseMetadata(name, out)
}

func parseMetadata(name, out string) (State, error) {
	out = strings.TrimRight(out, "\r\n")
	fields := strings.Split(out, "\t")
	if len(fields) != metadataFields {
		return State{}, fmt.Errorf("unexpected metadata output for %s: %d fields", name, len(fields))
	}

	st := State{
		Name:     name,
		Status:   parseStatus(fields[0]),
		Position: micros(fields[7]),
	}

	title := strings.TrimSpace(fields[2])
	if title != "" {
		st.Track = track.Metadata{
			ID:       strings.TrimSpace(fields[1]),
			Title:    title,
			Artist:   strings.TrimSpace(fields[3]),
			Album:    strings.TrimSpace(fields[4]),
			Duration: micros(fields[5]),
			URL:      strings.TrimSpace(fields[6]),
			Player:   name,
		}
	}
	return st, nil
}

func micros(s string) time.Duration {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return time.Duration(v) * time.Microsecond
}

// Blacklisted reports whether name contains any blacklist keyword, ignoring case
func Blacklisted(name string, blacklist []string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range blacklist {
		if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
