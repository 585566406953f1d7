package timeline

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFormatLRC_RoundTrip(t *testing.T) {
	input := strings.Join([]string{
		"[ar:Artist]",
		"[ti:Song]",
		"[00:01.00]<00:01.00>Hello <00:01.50>world",
		"[00:03.00]Plain line",
		"[00:06.00]",
		"[00:08.25]Last",
	}, "\n")

	original, err := Parse(input, FormatAuto)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	encoded := FormatLRC(original)
	reparsed, err := Parse(encoded, FormatAuto)
	if err != nil {
		t.Fatalf("Parse(encoded) error = %v", err)
	}

	if !reflect.DeepEqual(original, reparsed) {
		t.Errorf("Round trip mismatch\noriginal: %+v\nreparsed: %+v\nencoded:\n%s", original, reparsed, encoded)
	}
}

func TestFormatLRC(t *testing.T) {
	tl := &Timeline{
		Format: FormatTimed,
		Lines: []Line{
			{Start: 62500 * time.Millisecond, End: 70 * time.Second, Text: "one"},
		},
	}

	expected := "[01:02.50]one\n[01:10.00]\n"
	if got := FormatLRC(tl); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestFormatLRC_UntimedAndEmpty(t *testing.T) {
	untimed := &Timeline{Format: FormatUntimed, Lines: []Line{{Text: "a\nb"}}}
	if got := FormatLRC(untimed); got != "a\nb" {
		t.Errorf("Expected plain text, got %q", got)
	}
	if got := FormatLRC(Empty("x")); got != "" {
		t.Errorf("Expected empty output, got %q", got)
	}
}
