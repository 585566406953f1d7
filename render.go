package main

import (
	"fmt"
	"io"

	"lyrics-sync-go/synchronizer"
)

// renderCues prints the active line to w each time it changes, until cues is
// closed
func renderCues(w io.Writer, cues <-chan synchronizer.Cue) {
	var lastGen uint64
	lastLine := -1
	announced := false

	for cue := range cues {
		if cue.Generation != lastGen {
			lastGen = cue.Generation
			lastLine = -1
			announced = false
		}

		switch {
		case cue.State == synchronizer.StateNoTrack:
			continue
		case cue.State == synchronizer.StateLoading:
			if !announced {
				fmt.Fprintf(w, "♪ %s\n", cue.Track)
				announced = true
			}
		case cue.NoLyrics:
			if lastLine != -2 {
				fmt.Fprintln(w, "(no lyrics found)")
				lastLine = -2
			}
		case cue.Line != nil && cue.LineIndex != lastLine:
			lastLine = cue.LineIndex
			fmt.Fprintln(w, cue.Line.Text)
			if cue.Line.Translation != "" {
				fmt.Fprintf(w, "  %s\n", cue.Line.Translation)
			}
		}
	}
}
