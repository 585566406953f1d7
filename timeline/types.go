package timeline

import (
	"strings"
	"time"
)

// Format identifies the lyric encoding of raw text.
type Format int

const (
	FormatAuto Format = iota
	FormatTimed
	FormatWordTimed
	FormatUntimed
)

func (f Format) String() string {
	switch f {
	case FormatTimed:
		return "timed"
	case FormatWordTimed:
		return "word-timed"
	case FormatUntimed:
		return "untimed"
	default:
		return "auto"
	}
}

// ParseFormat maps a format name back to a Format. Unknown names yield FormatAuto.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "timed", "lrc", "synced":
		return FormatTimed
	case "word-timed", "enhanced", "wordtimed":
		return FormatWordTimed
	case "untimed", "plain":
		return FormatUntimed
	default:
		return FormatAuto
	}
}

func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Format) UnmarshalText(b []byte) error {
	*f = ParseFormat(string(b))
	return nil
}

// Word is a single timed word inside a line.
type Word struct {
	Start time.Duration `json:"start"`
	Text  string        `json:"text"`
}

// Line is one lyric line. End is zero when the line has no known end.
type Line struct {
	Start       time.Duration `json:"start"`
	End         time.Duration `json:"end,omitempty"`
	Text        string        `json:"text"`
	Translation string        `json:"translation,omitempty"`
	Words       []Word        `json:"words,omitempty"`
}

// HasEnd reports whether the line carries an explicit end time.
func (l *Line) HasEnd() bool {
	return l.End > l.Start
}

// Timeline is the normalized lyric representation. It is never mutated after
// construction; the With* helpers return modified copies.
type Timeline struct {
	Source        string            `json:"source"`
	Format        Format            `json:"format"`
	Lines         []Line            `json:"lines"`
	HasWordTiming bool              `json:"hasWordTiming"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// Empty returns a timeline that records "no lyrics found".
func Empty(source string) *Timeline {
	return &Timeline{Source: source, Lines: []Line{}}
}

// IsEmpty reports whether the timeline has no lines.
func (t *Timeline) IsEmpty() bool {
	return t == nil || len(t.Lines) == 0
}

// IsSynced reports whether line times are meaningful.
func (t *Timeline) IsSynced() bool {
	return t != nil && t.Format != FormatUntimed && len(t.Lines) > 0
}

// HasTranslations reports whether any line carries a translation.
func (t *Timeline) HasTranslations() bool {
	if t == nil {
		return false
	}
	for i := range t.Lines {
		if t.Lines[i].Translation != "" {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (t *Timeline) Clone() *Timeline {
	if t == nil {
		return nil
	}
	c := *t
	c.Lines = make([]Line, len(t.Lines))
	for i, line := range t.Lines {
		if line.Words != nil {
			line.Words = append([]Word(nil), line.Words...)
		}
		c.Lines[i] = line
	}
	if t.Tags != nil {
		c.Tags = make(map[string]string, len(t.Tags))
		for k, v := range t.Tags {
			c.Tags[k] = v
		}
	}
	return &c
}

// WithTranslations returns a copy whose lines carry the given translations.
// translations must have one entry per line.
func (t *Timeline) WithTranslations(translations []string) *Timeline {
	c := t.Clone()
	for i := range c.Lines {
		if i < len(translations) {
			c.Lines[i].Translation = translations[i]
		}
	}
	return c
}

// WithTrackEnd returns a copy whose open last line ends at the track end.
// The timeline is returned unchanged when the end would not follow the last start.
func (t *Timeline) WithTrackEnd(end time.Duration) *Timeline {
	if t.IsEmpty() || !t.IsSynced() || end <= 0 {
		return t
	}
	last := t.Lines[len(t.Lines)-1]
	if last.HasEnd() || end <= last.Start {
		return t
	}
	c := t.Clone()
	c.Lines[len(c.Lines)-1].End = end
	return c
}

// Text returns the plain lyric text, one line per row.
func (t *Timeline) Text() string {
	if t == nil {
		return ""
	}
	rows := make([]string, len(t.Lines))
	for i := range t.Lines {
		rows[i] = t.Lines[i].Text
	}
	return strings.Join(rows, "\n")
}
