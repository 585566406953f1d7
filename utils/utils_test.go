package utils

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestCompressAndDecompressBytes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "Short string",
			data: []byte("Hello, world!"),
		},
		{
			name: "Timeline JSON",
			data: []byte(`{"v":1,"timeline":{"source":"lrclib","lines":[{"start":1000000000,"text":"Hello"}]}}`),
		},
		{
			name: "Empty input",
			data: []byte{},
		},
		{
			name: "LRC content",
			data: []byte("[ar:Artist]\n[00:01.00]First line\n[00:05.50]Second line\n"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := CompressBytes(tt.data)
			if err != nil {
				t.Fatalf("Failed to compress: %v", err)
			}
			if !IsCompressed(compressed) {
				t.Error("Expected compressed output to carry the gzip header")
			}

			decompressed, err := DecompressBytes(compressed)
			if err != nil {
				t.Fatalf("Failed to decompress: %v", err)
			}
			if !bytes.Equal(decompressed, tt.data) {
				t.Errorf("Expected %q, got %q", tt.data, decompressed)
			}
		})
	}
}

func TestCompressionRatio(t *testing.T) {
	data := []byte(strings.Repeat("[00:01.00]la la la la\n", 200))

	compressed, err := CompressBytes(data)
	if err != nil {
		t.Fatalf("Failed to compress: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Errorf("Expected compression to shrink repetitive input (%d >= %d)", len(compressed), len(data))
	}
}

func TestDecompressBytes_NotGzip(t *testing.T) {
	if _, err := DecompressBytes([]byte(`{"plain":"json"}`)); err == nil {
		t.Error("Expected error for non-gzip input")
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Lowercase", "Hello World", "hello world"},
		{"Punctuation stripped", "Don't Stop (Remix)!", "dont stop remix"},
		{"Whitespace collapsed", "  a   b\tc ", "a b c"},
		{"Unicode letters kept", "稻香 - 周杰伦", "稻香 周杰伦"},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.expected {
				t.Errorf("Sanitize(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"Identical", "Shape of You", "shape of you", 1.0},
		{"Both empty", "", "", 1.0},
		{"One empty", "abc", "", 0.0},
		{"One edit", "kitten", "sitten", 1.0 - 1.0/6.0},
		{"Classic distance", "kitten", "sitting", 1.0 - 3.0/7.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Similarity(%q, %q) = %f, expected %f", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}
