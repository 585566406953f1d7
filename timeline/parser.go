package timeline

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"lyrics-sync-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// ErrNoUsableLines is returned when timed input yields no line at all.
var ErrNoUsableLines = errors.New("no usable lyric lines")

var (
	// Leading line timestamp: [mm:ss], [mm:ss.x], [mm:ss.xx], [mm:ss.xxx] or [mm:ss:xx]
	lineTimeRegex = regexp.MustCompile(`^\[(\d{1,3}):(\d{1,2})(?:[.:](\d{1,3}))?\]`)

	// Interior word timestamp: <mm:ss.xx>
	wordTimeRegex = regexp.MustCompile(`<(\d{1,3}):(\d{1,2})(?:[.:](\d{1,3}))?>`)

	// Metadata tags pattern: [tag:value]
	metadataRegex = regexp.MustCompile(`^\[([a-zA-Z]+):([^\]]*)\]$`)
)

// detectWindow is the number of non-blank, non-tag lines Detect inspects.
const detectWindow = 10

// entry is a parsed line before ordering and end assignment.
type entry struct {
	start   time.Duration
	text    string
	words   []Word
	wordEnd time.Duration
}

// Detect guesses the format of raw lyric text from its first lines.
func Detect(raw string) Format {
	seen := 0
	timed := false
	for _, rawLine := range splitLines(raw) {
		line := strings.TrimSpace(rawLine)
		if line == "" || metadataRegex.MatchString(line) {
			continue
		}
		if lineTimeRegex.MatchString(line) {
			timed = true
			if wordTimeRegex.MatchString(line) {
				return FormatWordTimed
			}
		}
		seen++
		if seen >= detectWindow {
			break
		}
	}
	if timed {
		return FormatTimed
	}
	return FormatUntimed
}

// Parse converts raw lyric text into a Timeline. When hint is FormatAuto the
// format is detected from the text. Malformed lines are dropped; an error is
// only returned when timed input was expected and nothing could be recovered.
func Parse(raw string, hint Format) (*Timeline, error) {
	format := hint
	if format == FormatAuto {
		format = Detect(raw)
	}

	if format == FormatUntimed {
		return parseUntimed(raw), nil
	}

	tl, err := parseTimed(raw, format == FormatWordTimed)
	if err != nil {
		return nil, err
	}
	if tl.IsEmpty() && (hint == FormatTimed || hint == FormatWordTimed) {
		return nil, ErrNoUsableLines
	}
	return tl, nil
}

func parseUntimed(raw string) *Timeline {
	tags := map[string]string{}
	rows := []string{}
	for _, rawLine := range splitLines(raw) {
		line := strings.TrimRight(rawLine, " \t")
		if m := metadataRegex.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			tags[strings.ToLower(m[1])] = strings.TrimSpace(m[2])
			continue
		}
		rows = append(rows, line)
	}

	text := strings.Trim(strings.Join(rows, "\n"), "\n ")
	tl := &Timeline{Format: FormatUntimed, Lines: []Line{}}
	if len(tags) > 0 {
		tl.Tags = tags
	}
	if text != "" {
		tl.Lines = append(tl.Lines, Line{Start: 0, Text: text})
	}
	return tl
}

func parseTimed(raw string, wordTimed bool) (*Timeline, error) {
	tags := map[string]string{}
	var entries []entry
	var breaks []time.Duration
	dropped := 0

	for _, rawLine := range splitLines(raw) {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if m := metadataRegex.FindStringSubmatch(line); m != nil {
			tags[strings.ToLower(m[1])] = strings.TrimSpace(m[2])
			continue
		}

		starts, rest, ok := leadingTimestamps(line)
		if !ok {
			dropped++
			continue
		}

		var words []Word
		var wordEnd time.Duration
		text := strings.TrimSpace(rest)
		if wordTimed && wordTimeRegex.MatchString(rest) {
			text, words, wordEnd = splitWords(rest, starts[0])
		}

		if text == "" {
			breaks = append(breaks, starts...)
			continue
		}

		for _, start := range starts {
			e := entry{start: start, text: text}
			if len(starts) == 1 && len(words) > 0 {
				e.words = words
				e.wordEnd = wordEnd
				if words[0].Start > start {
					e.start = words[0].Start
				}
			}
			entries = append(entries, e)
		}
	}

	if dropped > 0 {
		log.Debugf("%s Dropped %d malformed line(s)", logcolors.LogTimeline, dropped)
	}

	offset := parseOffset(tags["offset"])
	if offset != 0 {
		for i := range entries {
			entries[i].start = shift(entries[i].start, offset)
			for w := range entries[i].words {
				entries[i].words[w].Start = shift(entries[i].words[w].Start, offset)
			}
			if entries[i].wordEnd > 0 {
				entries[i].wordEnd = shift(entries[i].wordEnd, offset)
			}
		}
		for i := range breaks {
			breaks[i] = shift(breaks[i], offset)
		}
	}

	// Duplicate timestamps collapse, last one wins.
	byStart := make(map[time.Duration]int, len(entries))
	unique := make([]entry, 0, len(entries))
	for _, e := range entries {
		if idx, exists := byStart[e.start]; exists {
			unique[idx] = e
			continue
		}
		byStart[e.start] = len(unique)
		unique = append(unique, e)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].start < unique[j].start })
	sort.Slice(breaks, func(i, j int) bool { return breaks[i] < breaks[j] })

	tl := &Timeline{Format: FormatTimed, Lines: make([]Line, 0, len(unique))}
	if len(tags) > 0 {
		tl.Tags = tags
	}

	for i, e := range unique {
		line := Line{Start: e.start, Text: e.text}

		var end time.Duration
		if i+1 < len(unique) {
			end = unique[i+1].start
		}
		if b, ok := firstBreakAfter(breaks, e.start); ok && (end == 0 || b < end) {
			end = b
		}
		if e.wordEnd > e.start && (end == 0 || e.wordEnd < end) {
			end = e.wordEnd
		}
		line.End = end

		if len(e.words) > 0 {
			if wordsConsistent(e.words, line.Start, line.End) {
				line.Words = e.words
				tl.HasWordTiming = true
			} else {
				log.Debugf("%s Dropped inconsistent word timing at %v: %q", logcolors.LogTimeline, line.Start, line.Text)
			}
		}

		tl.Lines = append(tl.Lines, line)
	}

	if tl.HasWordTiming {
		tl.Format = FormatWordTimed
	}
	return tl, nil
}

// leadingTimestamps consumes every [mm:ss.xx] marker at the head of line.
func leadingTimestamps(line string) ([]time.Duration, string, bool) {
	var starts []time.Duration
	rest := line
	for {
		m := lineTimeRegex.FindStringSubmatch(rest)
		if m == nil {
			break
		}
		d, ok := toDuration(m[1], m[2], m[3])
		if !ok {
			return nil, "", false
		}
		starts = append(starts, d)
		rest = rest[len(m[0]):]
	}
	return starts, rest, len(starts) > 0
}

// splitWords strips <mm:ss.xx> markers from rest. Text before the first marker
// is timed at lineStart. A trailing marker with no text marks the end of the
// last word.
func splitWords(rest string, lineStart time.Duration) (string, []Word, time.Duration) {
	var words []Word
	var end time.Duration
	var text strings.Builder

	locs := wordTimeRegex.FindAllStringSubmatchIndex(rest, -1)
	if head := rest[:locs[0][0]]; strings.TrimSpace(head) != "" {
		words = append(words, Word{Start: lineStart, Text: strings.TrimSpace(head)})
		text.WriteString(head)
	}

	for i, loc := range locs {
		segEnd := len(rest)
		if i+1 < len(locs) {
			segEnd = locs[i+1][0]
		}
		segment := rest[loc[1]:segEnd]
		start, ok := toDuration(rest[loc[2]:loc[3]], rest[loc[4]:loc[5]], submatch(rest, loc, 6))
		if !ok {
			text.WriteString(segment)
			continue
		}
		if strings.TrimSpace(segment) == "" {
			if i == len(locs)-1 {
				end = start
			}
			text.WriteString(segment)
			continue
		}
		words = append(words, Word{Start: start, Text: strings.TrimSpace(segment)})
		text.WriteString(segment)
	}

	return strings.Join(strings.Fields(text.String()), " "), words, end
}

func submatch(s string, loc []int, i int) string {
	if loc[i] < 0 {
		return ""
	}
	return s[loc[i]:loc[i+1]]
}

// wordsConsistent checks that word starts increase strictly and stay inside
// [start, end). An unset end only bounds from below.
func wordsConsistent(words []Word, start, end time.Duration) bool {
	prev := time.Duration(-1)
	for _, w := range words {
		if w.Start <= prev || w.Start < start {
			return false
		}
		if end > 0 && w.Start >= end {
			return false
		}
		prev = w.Start
	}
	return true
}

func firstBreakAfter(breaks []time.Duration, start time.Duration) (time.Duration, bool) {
	i := sort.Search(len(breaks), func(i int) bool { return breaks[i] > start })
	if i < len(breaks) {
		return breaks[i], true
	}
	return 0, false
}

func toDuration(minPart, secPart, fracPart string) (time.Duration, bool) {
	minutes, err := strconv.Atoi(minPart)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(secPart)
	if err != nil || seconds >= 60 {
		return 0, false
	}

	var millis int
	if fracPart != "" {
		millis, err = strconv.Atoi(fracPart)
		if err != nil {
			return 0, false
		}
		// Scale by digit count: .5 is 500ms, .05 is 50ms, .005 is 5ms
		switch len(fracPart) {
		case 1:
			millis *= 100
		case 2:
			millis *= 10
		}
	}

	return time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, true
}

func parseOffset(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	ms, err := strconv.Atoi(strings.TrimPrefix(value, "+"))
	if err != nil {
		log.Debugf("%s Ignoring invalid offset tag %q", logcolors.LogTimeline, value)
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// shift applies an LRC offset tag: a positive offset shows lyrics earlier
func shift(d, offset time.Duration) time.Duration {
	d -= offset
	if d < 0 {
		return 0
	}
	return d
}

func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return strings.Split(raw, "\n")
}
