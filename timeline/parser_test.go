package timeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestParse_Timed(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantStarts []time.Duration
		wantTexts  []string
	}{
		{
			name:       "Basic lines",
			input:      "[00:01.00]First line\n[00:05.50]Second line",
			wantStarts: []time.Duration{ms(1000), ms(5500)},
			wantTexts:  []string{"First line", "Second line"},
		},
		{
			name:       "Unsorted input is sorted",
			input:      "[00:10.00]C\n[00:01.00]A\n[00:05.00]B",
			wantStarts: []time.Duration{ms(1000), ms(5000), ms(10000)},
			wantTexts:  []string{"A", "B", "C"},
		},
		{
			name:       "Repeated timestamps on one line",
			input:      "[00:01.00][00:10.00]Chorus\n[00:05.00]Verse",
			wantStarts: []time.Duration{ms(1000), ms(5000), ms(10000)},
			wantTexts:  []string{"Chorus", "Verse", "Chorus"},
		},
		{
			name:       "Duplicate timestamps collapse, last wins",
			input:      "[00:01.00]old\n[00:02.00]other\n[00:01.00]new",
			wantStarts: []time.Duration{ms(1000), ms(2000)},
			wantTexts:  []string{"new", "other"},
		},
		{
			name:       "Fraction precision",
			input:      "[00:01.5]a\n[00:02.05]b\n[00:03.005]c\n[00:04]d\n[01:02:50]e",
			wantStarts: []time.Duration{ms(1500), ms(2050), ms(3005), ms(4000), ms(62500)},
			wantTexts:  []string{"a", "b", "c", "d", "e"},
		},
		{
			name:       "Malformed lines are dropped",
			input:      "garbage\n[00:75.00]bad seconds\n[00:01.00]Good\n[xx:yy]nope",
			wantStarts: []time.Duration{ms(1000)},
			wantTexts:  []string{"Good"},
		},
		{
			name:       "Positive offset shows lyrics earlier",
			input:      "[offset:500]\n[00:01.00]A",
			wantStarts: []time.Duration{ms(500)},
			wantTexts:  []string{"A"},
		},
		{
			name:       "Negative offset shows lyrics later",
			input:      "[offset:-2000]\n[00:01.00]A\n[00:05.00]B",
			wantStarts: []time.Duration{ms(3000), ms(7000)},
			wantTexts:  []string{"A", "B"},
		},
		{
			name:       "Offset clamps at zero",
			input:      "[offset:+2000]\n[00:01.00]A\n[00:05.00]B",
			wantStarts: []time.Duration{0, ms(3000)},
			wantTexts:  []string{"A", "B"},
		},
		{
			name:       "Windows line endings",
			input:      "[00:01.00]A\r\n[00:02.00]B\r\n",
			wantStarts: []time.Duration{ms(1000), ms(2000)},
			wantTexts:  []string{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, err := Parse(tt.input, FormatAuto)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(tl.Lines) != len(tt.wantStarts) {
				t.Fatalf("Expected %d lines, got %d: %+v", len(tt.wantStarts), len(tl.Lines), tl.Lines)
			}
			for i, line := range tl.Lines {
				if line.Start != tt.wantStarts[i] {
					t.Errorf("Line %d: expected start %v, got %v", i, tt.wantStarts[i], line.Start)
				}
				if line.Text != tt.wantTexts[i] {
					t.Errorf("Line %d: expected text %q, got %q", i, tt.wantTexts[i], line.Text)
				}
			}
			if tl.Format != FormatTimed {
				t.Errorf("Expected format timed, got %v", tl.Format)
			}
		})
	}
}

func TestParse_MetadataTags(t *testing.T) {
	input := "[ar:Some Artist]\n[ti:Some Title]\n[al:Album]\n[by:someone]\n[00:01.00]Hello"

	tl, err := Parse(input, FormatAuto)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	expected := map[string]string{"ar": "Some Artist", "ti": "Some Title", "al": "Album", "by": "someone"}
	for k, v := range expected {
		if tl.Tags[k] != v {
			t.Errorf("Expected tag %s=%q, got %q", k, v, tl.Tags[k])
		}
	}
	if len(tl.Lines) != 1 || tl.Lines[0].Text != "Hello" {
		t.Errorf("Expected tags stripped from text, got %+v", tl.Lines)
	}
}

func TestParse_EndTimes(t *testing.T) {
	tl, err := Parse("[00:01.00]A\n[00:04.00]\n[00:10.00]B\n[00:12.00]C", FormatAuto)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(tl.Lines) != 3 {
		t.Fatalf("Expected blank timed line to be dropped, got %d lines", len(tl.Lines))
	}

	expectedEnds := []time.Duration{ms(4000), ms(12000), 0}
	for i, line := range tl.Lines {
		if line.End != expectedEnds[i] {
			t.Errorf("Line %d: expected end %v, got %v", i, expectedEnds[i], line.End)
		}
		if line.End != 0 && line.End <= line.Start {
			t.Errorf("Line %d: end %v does not follow start %v", i, line.End, line.Start)
		}
	}
}

func TestParse_WordTimed(t *testing.T) {
	input := "[00:01.00]<00:01.00>Hello <00:01.50>world <00:02.00>\n[00:03.00]<00:03.20>Next <00:03.60>line"

	tl, err := Parse(input, FormatAuto)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !tl.HasWordTiming {
		t.Fatal("Expected word timing")
	}
	if tl.Format != FormatWordTimed {
		t.Errorf("Expected word-timed format, got %v", tl.Format)
	}
	if len(tl.Lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(tl.Lines))
	}

	first := tl.Lines[0]
	if first.Text != "Hello world" {
		t.Errorf("Expected text 'Hello world', got %q", first.Text)
	}
	if first.End != ms(2000) {
		t.Errorf("Expected trailing word marker to end the line at 2s, got %v", first.End)
	}
	if len(first.Words) != 2 || first.Words[1].Start != ms(1500) || first.Words[1].Text != "world" {
		t.Errorf("Unexpected words: %+v", first.Words)
	}

	second := tl.Lines[1]
	if second.Start != ms(3200) {
		t.Errorf("Expected line start to follow the first word (3.2s), got %v", second.Start)
	}
}

func TestParse_InconsistentWordTiming(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Non-increasing words", "[00:05.00]<00:05.00>a <00:04.00>b\n[00:10.00]c"},
		{"Word past line end", "[00:01.00]<00:01.00>a <00:09.00>b\n[00:05.00]c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, err := Parse(tt.input, FormatAuto)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(tl.Lines) != 2 {
				t.Fatalf("Expected line timing to be kept, got %d lines", len(tl.Lines))
			}
			if tl.Lines[0].Words != nil {
				t.Errorf("Expected word timing to be dropped, got %+v", tl.Lines[0].Words)
			}
			if tl.HasWordTiming {
				t.Error("Expected HasWordTiming false")
			}
		})
	}
}

func TestParse_Untimed(t *testing.T) {
	tl, err := Parse("[ar:Someone]\nLine one\nLine two\n", FormatAuto)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tl.Format != FormatUntimed {
		t.Errorf("Expected untimed format, got %v", tl.Format)
	}
	if len(tl.Lines) != 1 {
		t.Fatalf("Expected a single block, got %d lines", len(tl.Lines))
	}
	if tl.Lines[0].Start != 0 || tl.Lines[0].Text != "Line one\nLine two" {
		t.Errorf("Unexpected block %+v", tl.Lines[0])
	}
	if tl.HasWordTiming {
		t.Error("Untimed text must not carry word timing")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		hint      Format
		wantErr   bool
		wantEmpty bool
	}{
		{"Timed hint with plain text", "just some words", FormatTimed, true, false},
		{"Timed hint with only blank markers", "[ar:x]\n[00:01.00]\n", FormatTimed, true, false},
		{"Auto with empty input", "", FormatAuto, false, true},
		{"Auto with only blank markers", "[00:01.00]\n[00:02.00]", FormatAuto, false, true},
		{"Untimed hint with timed text", "[00:01.00]A", FormatUntimed, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, err := Parse(tt.input, tt.hint)
			if tt.wantErr {
				if !errors.Is(err, ErrNoUsableLines) {
					t.Fatalf("Expected ErrNoUsableLines, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tl.IsEmpty() != tt.wantEmpty {
				t.Errorf("Expected IsEmpty %v, got %v", tt.wantEmpty, tl.IsEmpty())
			}
		})
	}
}

func TestParse_StartsNonDecreasing(t *testing.T) {
	// 37 is coprime with 50, so this visits every second once out of order
	var rows []string
	for i := 0; i < 50; i++ {
		sec := (i * 37) % 50
		rows = append(rows, fmt.Sprintf("[%02d:%02d.%02d]line %d", sec/60, sec%60, (i*13)%100, i))
	}

	tl, err := Parse(strings.Join(rows, "\n"), FormatTimed)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	for i := 1; i < len(tl.Lines); i++ {
		if tl.Lines[i].Start <= tl.Lines[i-1].Start {
			t.Fatalf("Starts not strictly increasing at %d: %v then %v", i, tl.Lines[i-1].Start, tl.Lines[i].Start)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Format
	}{
		{"Timed", "[ti:x]\n[00:01.00]hello", FormatTimed},
		{"Word timed", "[00:01.00]<00:01.00>hello <00:01.40>there", FormatWordTimed},
		{"Untimed", "hello\nthere", FormatUntimed},
		{"Tags only", "[ar:a]\n[ti:b]", FormatUntimed},
		{"Empty", "", FormatUntimed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.input); got != tt.expected {
				t.Errorf("Detect() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
