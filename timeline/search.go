package timeline

import (
	"sort"
	"time"
)

// LineAt returns the index of the last line whose Start is <= pos, or -1 when
// pos precedes the first line.
func (t *Timeline) LineAt(pos time.Duration) int {
	if t.IsEmpty() {
		return -1
	}
	i := sort.Search(len(t.Lines), func(i int) bool {
		return t.Lines[i].Start > pos
	})
	return i - 1
}

// LineEnd returns the effective end of line i: its own End, else the next
// line's start. The last line of an open timeline has no end.
func (t *Timeline) LineEnd(i int) (time.Duration, bool) {
	if t == nil || i < 0 || i >= len(t.Lines) {
		return 0, false
	}
	if t.Lines[i].HasEnd() {
		return t.Lines[i].End, true
	}
	if i+1 < len(t.Lines) {
		return t.Lines[i+1].Start, true
	}
	return 0, false
}

// WordAt returns the index of the last word starting at or before pos, or -1.
func (l *Line) WordAt(pos time.Duration) int {
	if len(l.Words) == 0 {
		return -1
	}
	i := sort.Search(len(l.Words), func(i int) bool {
		return l.Words[i].Start > pos
	})
	return i - 1
}
