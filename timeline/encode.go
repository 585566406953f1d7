package timeline

import (
	"fmt"
	"strings"
	"time"
)

// tagOrder is the order metadata tags are written in. offset is omitted since
// parsed timestamps already carry it.
var tagOrder = []string{"ar", "ti", "al", "by", "length"}

// FormatLRC renders the timeline as LRC text. Word timing is written as
// enhanced <mm:ss.xx> markers and explicit line ends as blank timed lines.
// Untimed timelines are returned as plain text.
func FormatLRC(t *Timeline) string {
	if t.IsEmpty() {
		return ""
	}
	if !t.IsSynced() {
		return t.Text()
	}

	var sb strings.Builder
	for _, tag := range tagOrder {
		if v, ok := t.Tags[tag]; ok && v != "" {
			fmt.Fprintf(&sb, "[%s:%s]\n", tag, v)
		}
	}

	for i, line := range t.Lines {
		sb.WriteString(formatTimestamp(line.Start, '[', ']'))
		if len(line.Words) > 0 {
			for w, word := range line.Words {
				if w > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(formatTimestamp(word.Start, '<', '>'))
				sb.WriteString(word.Text)
			}
		} else {
			sb.WriteString(line.Text)
		}
		sb.WriteByte('\n')

		// A gap before the next line (or a closed last line) is kept as a blank marker.
		if line.HasEnd() && (i+1 == len(t.Lines) || t.Lines[i+1].Start != line.End) {
			sb.WriteString(formatTimestamp(line.End, '[', ']'))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func formatTimestamp(d time.Duration, open, close byte) string {
	if d < 0 {
		d = 0
	}
	centis := int64(d / (10 * time.Millisecond))
	return fmt.Sprintf("%c%02d:%02d.%02d%c", open, centis/6000, (centis/100)%60, centis%100, close)
}
