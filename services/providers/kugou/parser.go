package kugou

import (
	"encoding/base64"
	"regexp"
	"strings"
)

var (
	lrcTimeRegex = regexp.MustCompile(`\[(\d{2}):(\d{2})[\.:]+(\d{2,3})\]`)

	// Credit lines such as "[00:05.00]作词：xxx" (full-width colon)
	bannedRegex = regexp.MustCompile(`^\[\d{2}:\d{2}[\.:]\d{2,3}\].+：.+`)
)

const (
	// PureMusicText is the placeholder Kugou serves for instrumental tracks
	PureMusicText = "纯音乐，请欣赏"

	// MaxHeadTailLines bounds the credit scan at each end
	MaxHeadTailLines = 30
)

// IsInstrumental reports whether content is Kugou's instrumental placeholder
func IsInstrumental(content string) bool {
	return strings.Contains(content, PureMusicText)
}

// DecodeBase64Content decodes a base64 LRC body and drops a leading BOM
func DecodeBase64Content(encoded string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(string(decoded), "\ufeff"), nil
}

// NormalizeLyrics keeps only timed lines and trims credit blocks from the
// head and tail. Metadata tags and untimed lines are dropped.
func NormalizeLyrics(content string) string {
	content = strings.ReplaceAll(content, "&apos;", "'")

	var accepted []string
	for _, raw := range strings.Split(content, "\n") {
		raw = strings.TrimSpace(raw)
		if raw != "" && lrcTimeRegex.MatchString(raw) {
			accepted = append(accepted, raw)
		}
	}
	if len(accepted) == 0 {
		return content
	}

	// Drop everything up to the last credit line near the head
	head := 0
	limit := MaxHeadTailLines
	if limit > len(accepted) {
		limit = len(accepted)
	}
	for i := limit - 1; i >= 0; i-- {
		if bannedRegex.MatchString(accepted[i]) {
			head = i + 1
			break
		}
	}

	// And from the first credit line found scanning back from the tail
	tail := 0
	for i := 0; i < MaxHeadTailLines && i < len(accepted); i++ {
		idx := len(accepted) - 1 - i
		if idx < head {
			break
		}
		if bannedRegex.MatchString(accepted[idx]) {
			tail = i + 1
			break
		}
	}

	end := len(accepted) - tail
	if end < head {
		end = head
	}
	return strings.Join(accepted[head:end], "\n")
}
